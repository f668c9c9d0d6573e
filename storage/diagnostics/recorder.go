// Package diagnostics keeps operator-facing records of failed operations.
package diagnostics

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"todo-ledger/core/token"
	"todo-ledger/log"
)

// Event is one failed operation.
type Event struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Reference string    `json:"reference,omitempty"`
	At        time.Time `json:"at"`
}

// NewEvent describes err raised by op, optionally about the record at ref.
func NewEvent(op string, err error, ref token.Outpoint) Event {
	e := Event{
		ID:   ulid.Make().String(),
		Op:   op,
		Kind: token.Kind(err),
		At:   time.Now().UTC(),
	}
	if err != nil {
		e.Message = err.Error()
	}
	if !ref.IsZero() {
		e.Reference = ref.String()
	}
	return e
}

// Recorder persists diagnostic events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

type noop struct{}

func (noop) Record(context.Context, Event) error { return nil }

// Noop discards every event.
var Noop Recorder = noop{}

// LogRecorder writes events to a logger.
type LogRecorder struct {
	logger log.Logger
}

// NewLogRecorder returns a recorder logging through logger.
func NewLogRecorder(logger log.Logger) *LogRecorder {
	if logger == nil {
		logger = log.Noop
	}
	return &LogRecorder{logger: logger.WithValues(log.Kv{"svc": "diagnostics"})}
}

func (r *LogRecorder) Record(_ context.Context, e Event) error {
	r.logger.WithValues(log.Kv{
		"event_id":  e.ID,
		"op":        e.Op,
		"kind":      e.Kind,
		"reference": e.Reference,
	}).Errorf("operation failed: %s", e.Message)
	return nil
}

type multi []Recorder

// Multi fans an event out to every recorder and joins their errors.
func Multi(recorders ...Recorder) Recorder {
	return multi(recorders)
}

func (m multi) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

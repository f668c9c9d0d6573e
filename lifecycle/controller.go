// Package lifecycle creates, loads and completes task records.
package lifecycle

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"todo-ledger/bitcoin"
	"todo-ledger/bridge"
	"todo-ledger/codec"
	"todo-ledger/core/token"
	"todo-ledger/keys"
	"todo-ledger/log"
	"todo-ledger/metrics"
	"todo-ledger/storage/diagnostics"
	"todo-ledger/storage/records"
	"todo-ledger/wallet"
)

const (
	OpCreate   = "create"
	OpLoad     = "load"
	OpComplete = "complete"
)

// ControllerConfig is the configuration for the lifecycle controller.
type ControllerConfig struct {
	Keys           keys.Provider
	Submitter      wallet.Submitter
	Bridge         bridge.Fetcher
	Store          *records.Store
	Namespace      token.Namespace
	Scope          token.Scope
	MinAmount      int64
	DecryptWorkers int
	Diagnostics    diagnostics.Recorder
	Metrics        metrics.Recorder
	Logger         log.Logger
}

func (c *ControllerConfig) defaults() error {
	if c.Keys == nil {
		return fmt.Errorf("key provider is required")
	}
	if c.Submitter == nil {
		return fmt.Errorf("submitter is required")
	}
	if c.Bridge == nil {
		return fmt.Errorf("bridge is required")
	}
	if c.Store == nil {
		c.Store = records.NewStore()
	}
	if len(c.Namespace) == 0 {
		c.Namespace = token.DefaultNamespace
	}
	if c.Scope == (token.Scope{}) {
		c.Scope = token.DefaultScope
	}
	if c.MinAmount <= 0 {
		c.MinAmount = DefaultMinAmount
	}
	if c.DecryptWorkers <= 0 {
		c.DecryptWorkers = 4
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "lifecycle.Controller"})
	if c.Diagnostics == nil {
		c.Diagnostics = diagnostics.NewLogRecorder(c.Logger)
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop
	}
	return nil
}

// Controller runs the task record state machine:
//
//	Draft -> Submitting(create) -> Active -> Submitting(complete) -> Redeemed
//
// Drafts never enter the store and redeemed records are removed from it.
type Controller struct {
	keys      keys.Provider
	codec     *codec.Codec
	scripts   *bitcoin.ScriptBuilder
	submitter wallet.Submitter
	bridge    bridge.Fetcher
	store     *records.Store
	namespace token.Namespace
	scope     token.Scope
	minAmount int64
	workers   int
	diag      diagnostics.Recorder
	metrics   metrics.Recorder
	logger    log.Logger

	mu       sync.Mutex
	inflight map[token.Outpoint]struct{}
}

// NewController creates a new lifecycle controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cdc, err := codec.New(cfg.Keys)
	if err != nil {
		return nil, err
	}
	scripts, err := bitcoin.NewScriptBuilder(cfg.Keys, cfg.Namespace)
	if err != nil {
		return nil, err
	}
	return &Controller{
		keys:      cfg.Keys,
		codec:     cdc,
		scripts:   scripts,
		submitter: cfg.Submitter,
		bridge:    cfg.Bridge,
		store:     cfg.Store,
		namespace: cfg.Namespace,
		scope:     cfg.Scope,
		minAmount: cfg.MinAmount,
		workers:   cfg.DecryptWorkers,
		diag:      cfg.Diagnostics,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		inflight:  make(map[token.Outpoint]struct{}),
	}, nil
}

// MinAmount is the enforced minimum amount in satoshis.
func (c *Controller) MinAmount() int64 { return c.minAmount }

// List returns the current records, most recent first.
func (c *Controller) List() []token.TaskRecord {
	return c.store.Snapshot()
}

// Identity returns the hex compressed identity key records are indexed under.
func (c *Controller) Identity(ctx context.Context) (string, error) {
	key, err := c.identity(ctx)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key.SerializeCompressed()), nil
}

// Create validates req, locks its amount behind the encrypted text and puts
// the new record at the head of the store. Nothing is stored on failure.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (token.TaskRecord, error) {
	start := time.Now()
	rec, err := c.create(ctx, req)
	return rec, c.finish(ctx, OpCreate, start, rec.Reference, err)
}

func (c *Controller) create(ctx context.Context, req CreateRequest) (token.TaskRecord, error) {
	amount, err := validate(req, c.minAmount)
	if err != nil {
		return token.TaskRecord{}, err
	}

	payload, err := c.codec.Encrypt(ctx, req.Text, c.scope)
	if err != nil {
		return token.TaskRecord{}, fmt.Errorf("encrypt task: %w", err)
	}
	script, err := c.scripts.LockingScript(ctx, payload, c.scope)
	if err != nil {
		return token.TaskRecord{}, fmt.Errorf("lock task: %w", err)
	}

	// Once dispatched a ledger submission cannot be retracted, so the
	// caller's cancellation is not propagated past this point.
	ctx = context.WithoutCancel(ctx)
	res, err := c.submitter.CreateAction(ctx, wallet.CreateActionArgs{
		Description: "Create a TODO task",
		Outputs: []wallet.Output{{
			Satoshis:      amount,
			LockingScript: script,
			Description:   "New TODO task",
		}},
		Topics: []string{c.namespace.Topic()},
	})
	if err != nil {
		return token.TaskRecord{}, submissionErr(err)
	}

	rec := token.TaskRecord{
		Text:          req.Text,
		Amount:        amount,
		Reference:     res.OutputReference(0),
		LockingScript: script,
		State:         token.StateActive,
	}
	if err := c.store.Prepend(rec); err != nil {
		// A concurrent load already picked the record up from the bridge.
		c.logger.Warningf("record %s already present: %v", rec.Reference, err)
	}
	c.logger.Infof("created task %s locking %d sats (bridge ref %q)", rec.Reference, amount, res.BridgeReference)
	return rec.Clone(), nil
}

// Load replaces the store with the records the bridge holds for this
// identity. Records whose payload cannot be decrypted are kept with
// token.PlaceholderText. When the bridge fails the store is left as it was.
func (c *Controller) Load(ctx context.Context) ([]token.TaskRecord, error) {
	start := time.Now()
	recs, err := c.load(ctx)
	return recs, c.finish(ctx, OpLoad, start, token.Outpoint{}, err)
}

func (c *Controller) load(ctx context.Context) ([]token.TaskRecord, error) {
	identity, err := c.identity(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.bridge.FetchOwned(ctx, c.namespace, identity)
	if err != nil {
		if !errors.Is(err, token.ErrBridgeUnavailable) {
			err = fmt.Errorf("%v: %w", err, token.ErrBridgeUnavailable)
		}
		return nil, err
	}

	payloads := make([][]byte, len(raw))
	for i, r := range raw {
		p, err := c.scripts.Payload(r.LockingScript)
		if err != nil {
			c.logger.Debugf("record %s: %v", r.Reference, err)
			continue
		}
		payloads[i] = p
	}
	results, err := c.codec.DecryptAll(ctx, payloads, c.scope, c.workers)
	if err != nil {
		return nil, fmt.Errorf("decrypt tasks: %w", err)
	}

	recs := make([]token.TaskRecord, len(raw))
	failures := 0
	for i, r := range raw {
		rec := token.TaskRecord{
			Text:          results[i].Text,
			Amount:        r.Amount,
			Reference:     r.Reference,
			LockingScript: r.LockingScript,
			State:         token.StateActive,
		}
		if results[i].Err != nil {
			failures++
			rec.Text = token.PlaceholderText
			rec.Undecryptable = true
			c.logger.Warningf("record %s: %v", r.Reference, results[i].Err)
		}
		recs[i] = rec
	}
	// The bridge answers oldest first; the store is newest first.
	slices.Reverse(recs)
	c.markInFlight(recs)

	if dropped := c.store.ReplaceAll(recs); dropped > 0 {
		c.logger.Warningf("bridge returned %d duplicate references", dropped)
	}
	c.metrics.AddDecryptFailures(failures)
	c.logger.Debugf("loaded %d records (%d undecryptable)", len(recs), failures)
	return c.store.Snapshot(), nil
}

// Complete redeems the active record at ref and removes it from the store.
// On failure the record stays active and unchanged.
func (c *Controller) Complete(ctx context.Context, ref token.Outpoint) (token.TaskRecord, error) {
	start := time.Now()
	rec, err := c.complete(ctx, ref)
	return rec, c.finish(ctx, OpComplete, start, ref, err)
}

func (c *Controller) complete(ctx context.Context, ref token.Outpoint) (token.TaskRecord, error) {
	rec, ok := c.store.Get(ref)
	if !ok {
		return token.TaskRecord{}, fmt.Errorf("%s: %w", ref, token.ErrNotFound)
	}
	if !c.begin(ref) {
		return token.TaskRecord{}, fmt.Errorf("%s: %w", ref, token.ErrInFlight)
	}
	defer c.end(ref)

	_ = c.store.SetState(ref, token.StateSubmittingComplete)
	restore := func() { _ = c.store.SetState(ref, token.StateActive) }

	unlock, err := c.scripts.UnlockingScript(ctx, rec.LockingScript, c.scope, rec.Reference, rec.Amount)
	if err != nil {
		restore()
		return token.TaskRecord{}, fmt.Errorf("unlock task: %w", err)
	}

	ctx = context.WithoutCancel(ctx)
	res, err := c.submitter.CreateAction(ctx, wallet.CreateActionArgs{
		Description: "Complete a TODO task",
		Inputs: []wallet.Input{{
			Outpoint:        rec.Reference,
			LockingScript:   rec.LockingScript,
			Satoshis:        rec.Amount,
			UnlockingScript: unlock,
			Description:     "Complete a TODO task",
		}},
		Topics: []string{c.namespace.Topic()},
	})
	if err != nil {
		restore()
		return token.TaskRecord{}, submissionErr(err)
	}

	if removed, ok := c.store.RemoveByIdentity(ref); ok {
		rec = removed
	}
	rec.State = token.StateRedeemed
	c.logger.Infof("completed task %s, redeemed %d sats in %s", ref, rec.Amount, res.TxID)
	return rec, nil
}

func (c *Controller) begin(ref token.Outpoint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[ref]; ok {
		return false
	}
	c.inflight[ref] = struct{}{}
	return true
}

// markInFlight keeps records whose redemption is still being submitted in
// Submitting(complete) when a load replaces the store underneath them.
func (c *Controller) markInFlight(recs []token.TaskRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range recs {
		if _, ok := c.inflight[recs[i].Reference]; ok {
			recs[i].State = token.StateSubmittingComplete
		}
	}
}

func (c *Controller) end(ref token.Outpoint) {
	c.mu.Lock()
	delete(c.inflight, ref)
	c.mu.Unlock()
}

func (c *Controller) identity(ctx context.Context) (*btcec.PublicKey, error) {
	key, err := c.keys.IdentityKey(ctx)
	if err != nil {
		if !errors.Is(err, token.ErrKeyUnavailable) {
			err = fmt.Errorf("%v: %w", err, token.ErrKeyUnavailable)
		}
		return nil, err
	}
	return key, nil
}

// finish is the operation boundary: it records metrics and, on failure, one
// diagnostic event, and wraps err for the caller.
func (c *Controller) finish(ctx context.Context, op string, start time.Time, ref token.Outpoint, err error) error {
	c.metrics.ObserveOperation(op, token.Kind(err), time.Since(start))
	c.metrics.SetActiveRecords(c.store.Len())
	if err == nil {
		return nil
	}
	if derr := c.diag.Record(context.WithoutCancel(ctx), diagnostics.NewEvent(op, err, ref)); derr != nil {
		c.logger.Warningf("could not record diagnostic: %v", derr)
	}
	return &OperationError{Op: op, Err: err}
}

func submissionErr(err error) error {
	if errors.Is(err, token.ErrSubmission) {
		return err
	}
	return &token.SubmissionError{Message: "submit action", Err: err}
}

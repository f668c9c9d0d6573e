// Package records holds the ordered, in-memory list of task records.
package records

import (
	"fmt"
	"sync"

	"todo-ledger/core/token"
)

// Store keeps task records most-recent-first with at most one record per
// reference. It has a single writer lock; every mutation builds a new slice
// and swaps it in, so readers never observe a half-mutated sequence.
type Store struct {
	mu      sync.RWMutex
	records []token.TaskRecord
	index   map[token.Outpoint]struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{index: make(map[token.Outpoint]struct{})}
}

// Prepend inserts r at the head of the list.
func (s *Store) Prepend(r token.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[r.Reference]; ok {
		return fmt.Errorf("%s: %w", r.Reference, token.ErrDuplicateRecord)
	}
	next := make([]token.TaskRecord, 0, len(s.records)+1)
	next = append(next, r.Clone())
	next = append(next, s.records...)
	s.records = next
	s.index[r.Reference] = struct{}{}
	return nil
}

// RemoveByIdentity removes the record whose reference is ref. Position is
// never used, so concurrent inserts cannot make it remove the wrong record.
func (s *Store) RemoveByIdentity(ref token.Outpoint) (token.TaskRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[ref]; !ok {
		return token.TaskRecord{}, false
	}
	var removed token.TaskRecord
	next := make([]token.TaskRecord, 0, len(s.records)-1)
	for _, r := range s.records {
		if r.Reference == ref {
			removed = r
			continue
		}
		next = append(next, r)
	}
	s.records = next
	delete(s.index, ref)
	return removed.Clone(), true
}

// ReplaceAll discards the current contents and installs records in the
// given order. Later duplicates of a reference are dropped; the number
// dropped is returned.
func (s *Store) ReplaceAll(records []token.TaskRecord) int {
	next := make([]token.TaskRecord, 0, len(records))
	index := make(map[token.Outpoint]struct{}, len(records))
	dropped := 0
	for _, r := range records {
		if _, ok := index[r.Reference]; ok {
			dropped++
			continue
		}
		index[r.Reference] = struct{}{}
		next = append(next, r.Clone())
	}

	s.mu.Lock()
	s.records = next
	s.index = index
	s.mu.Unlock()
	return dropped
}

// SetState moves the record at ref to state. Moves the lifecycle does not
// allow fail with token.ErrInvalidTransition.
func (s *Store) SetState(ref token.Outpoint, state token.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[ref]; !ok {
		return fmt.Errorf("%s: %w", ref, token.ErrNotFound)
	}
	next := make([]token.TaskRecord, len(s.records))
	copy(next, s.records)
	for i := range next {
		if next[i].Reference != ref {
			continue
		}
		if !next[i].State.CanBecome(state) {
			return fmt.Errorf("%s: %s to %s: %w", ref, next[i].State, state, token.ErrInvalidTransition)
		}
		next[i].State = state
	}
	s.records = next
	return nil
}

// Get returns a copy of the record at ref.
func (s *Store) Get(ref token.Outpoint) (token.TaskRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.index[ref]; !ok {
		return token.TaskRecord{}, false
	}
	for _, r := range s.records {
		if r.Reference == ref {
			return r.Clone(), true
		}
	}
	return token.TaskRecord{}, false
}

// Snapshot returns a copy of every record, most recent first.
func (s *Store) Snapshot() []token.TaskRecord {
	s.mu.RLock()
	records := s.records
	s.mu.RUnlock()

	out := make([]token.TaskRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

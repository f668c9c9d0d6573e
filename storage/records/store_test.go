package records_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-ledger/core/token"
	"todo-ledger/storage/records"
)

func rec(n int) token.TaskRecord {
	return token.TaskRecord{
		Text:          fmt.Sprintf("task %d", n),
		Amount:        int64(1000 + n),
		Reference:     token.Outpoint{TxID: fmt.Sprintf("%064x", n), Vout: 0},
		LockingScript: []byte{byte(n)},
		State:         token.StateActive,
	}
}

func texts(rs []token.TaskRecord) []string {
	var out []string
	for _, r := range rs {
		out = append(out, r.Text)
	}
	return out
}

func TestPrependPlacesAtHead(t *testing.T) {
	s := records.NewStore()
	require.NoError(t, s.Prepend(rec(1)))
	require.NoError(t, s.Prepend(rec(2)))
	require.NoError(t, s.Prepend(rec(3)))

	assert.Equal(t, []string{"task 3", "task 2", "task 1"}, texts(s.Snapshot()))
}

func TestPrependRejectsDuplicateReference(t *testing.T) {
	s := records.NewStore()
	require.NoError(t, s.Prepend(rec(1)))

	dup := rec(1)
	dup.Text = "other"
	err := s.Prepend(dup)
	assert.True(t, errors.Is(err, token.ErrDuplicateRecord))
	assert.Equal(t, []string{"task 1"}, texts(s.Snapshot()))
}

func TestRemoveByIdentity(t *testing.T) {
	tests := map[string]struct {
		remove  token.Outpoint
		expOK   bool
		expLeft []string
	}{
		"head": {
			remove:  rec(3).Reference,
			expOK:   true,
			expLeft: []string{"task 2", "task 1"},
		},
		"middle": {
			remove:  rec(2).Reference,
			expOK:   true,
			expLeft: []string{"task 3", "task 1"},
		},
		"tail": {
			remove:  rec(1).Reference,
			expOK:   true,
			expLeft: []string{"task 3", "task 2"},
		},
		"missing": {
			remove:  rec(9).Reference,
			expOK:   false,
			expLeft: []string{"task 3", "task 2", "task 1"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			s := records.NewStore()
			s.ReplaceAll([]token.TaskRecord{rec(3), rec(2), rec(1)})

			removed, ok := s.RemoveByIdentity(test.remove)
			assert.Equal(t, test.expOK, ok)
			if ok {
				assert.Equal(t, test.remove, removed.Reference)
			}
			assert.Equal(t, test.expLeft, texts(s.Snapshot()))

			// A removed reference may be prepended again.
			if ok {
				assert.NoError(t, s.Prepend(removed))
			}
		})
	}
}

func TestReplaceAllDropsDuplicates(t *testing.T) {
	s := records.NewStore()
	require.NoError(t, s.Prepend(rec(7)))

	dropped := s.ReplaceAll([]token.TaskRecord{rec(1), rec(2), rec(1)})
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"task 1", "task 2"}, texts(s.Snapshot()))
	_, ok := s.Get(rec(7).Reference)
	assert.False(t, ok)
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := records.NewStore()
	require.NoError(t, s.Prepend(rec(1)))

	snap := s.Snapshot()
	snap[0].Text = "mutated"
	snap[0].LockingScript[0] = 0xff
	require.NoError(t, s.Prepend(rec(2)))

	got, ok := s.Get(rec(1).Reference)
	require.True(t, ok)
	assert.Equal(t, "task 1", got.Text)
	assert.Equal(t, []byte{1}, got.LockingScript)
	assert.Len(t, snap, 1)
}

func TestSetState(t *testing.T) {
	s := records.NewStore()
	require.NoError(t, s.Prepend(rec(1)))

	require.NoError(t, s.SetState(rec(1).Reference, token.StateSubmittingComplete))
	got, _ := s.Get(rec(1).Reference)
	assert.Equal(t, token.StateSubmittingComplete, got.State)

	err := s.SetState(rec(2).Reference, token.StateActive)
	assert.True(t, errors.Is(err, token.ErrNotFound))

	require.NoError(t, s.SetState(rec(1).Reference, token.StateActive))
	err = s.SetState(rec(1).Reference, token.StateRedeemed)
	assert.True(t, errors.Is(err, token.ErrInvalidTransition))
	got, _ = s.Get(rec(1).Reference)
	assert.Equal(t, token.StateActive, got.State)
}

func TestConcurrentMutations(t *testing.T) {
	s := records.NewStore()
	s.ReplaceAll([]token.TaskRecord{rec(0)})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, s.Prepend(rec(n)))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()

	_, ok := s.RemoveByIdentity(rec(0).Reference)
	assert.True(t, ok)
	assert.Equal(t, 50, s.Len())
}

// Package bridgemock provides testify mocks for the bridge package.
package bridgemock

import (
	"context"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/mock"

	"todo-ledger/core/token"
)

// MockFetcher is a mock implementation of bridge.Fetcher.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchOwned(ctx context.Context, namespace token.Namespace, identity *btcec.PublicKey) ([]token.RawRecord, error) {
	ret := m.Called(ctx, namespace, identity)
	var recs []token.RawRecord
	if v := ret.Get(0); v != nil {
		recs = v.([]token.RawRecord)
	}
	return recs, ret.Error(1)
}

// Package walletmock provides testify mocks for the wallet package.
package walletmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"todo-ledger/wallet"
)

// MockSubmitter is a mock implementation of wallet.Submitter.
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) CreateAction(ctx context.Context, args wallet.CreateActionArgs) (*wallet.CreateActionResult, error) {
	ret := m.Called(ctx, args)
	var res *wallet.CreateActionResult
	if v := ret.Get(0); v != nil {
		res = v.(*wallet.CreateActionResult)
	}
	return res, ret.Error(1)
}

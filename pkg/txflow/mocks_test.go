package txflow

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type mockSubmitter struct {
	chainID     int64
	from        common.Address
	balanceOfFn func(ctx context.Context, token, owner common.Address) (*big.Int, error)
	submitFn    func(ctx context.Context, to common.Address, contractABI, method string, args ...interface{}) (common.Hash, error)
	waitMinedFn func(ctx context.Context, hash common.Hash, pollInterval time.Duration) (*types.Receipt, error)
}

func (m *mockSubmitter) ChainID() int64 { return m.chainID }

func (m *mockSubmitter) From() common.Address { return m.from }

func (m *mockSubmitter) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return m.balanceOfFn(ctx, token, owner)
}

func (m *mockSubmitter) Submit(ctx context.Context, to common.Address, contractABI, method string, args ...interface{}) (common.Hash, error) {
	return m.submitFn(ctx, to, contractABI, method, args...)
}

func (m *mockSubmitter) WaitMined(ctx context.Context, hash common.Hash, pollInterval time.Duration) (*types.Receipt, error) {
	return m.waitMinedFn(ctx, hash, pollInterval)
}

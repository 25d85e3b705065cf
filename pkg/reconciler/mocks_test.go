package reconciler

import (
	"context"

	"github.com/poolparty/pool-backend/pkg/pool"
	"github.com/poolparty/pool-backend/pkg/subgraph"
)

type mockContractReader struct {
	getContractPoolsFn func(ctx context.Context) ([]*pool.ContractRecord, error)
	getPoolInfoFn      func(ctx context.Context, poolID uint64) (*pool.ContractRecord, error)
}

func (m *mockContractReader) GetContractPools(ctx context.Context) ([]*pool.ContractRecord, error) {
	return m.getContractPoolsFn(ctx)
}

func (m *mockContractReader) GetPoolInfo(ctx context.Context, poolID uint64) (*pool.ContractRecord, error) {
	return m.getPoolInfoFn(ctx, poolID)
}

type mockSubgraphReader struct {
	fetchAllPoolsFn  func(ctx context.Context) (*subgraph.AllPoolsResult, error)
	fetchUserPoolsFn func(ctx context.Context, address string) (*subgraph.UserPoolsResult, error)
}

func (m *mockSubgraphReader) FetchAllPools(ctx context.Context) (*subgraph.AllPoolsResult, error) {
	return m.fetchAllPoolsFn(ctx)
}

func (m *mockSubgraphReader) FetchUserPools(ctx context.Context, address string) (*subgraph.UserPoolsResult, error) {
	return m.fetchUserPoolsFn(ctx, address)
}

type mockPoolLister struct {
	listPoolsFn func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error)
}

func (m *mockPoolLister) ListPools(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
	return m.listPoolsFn(ctx, chainID)
}

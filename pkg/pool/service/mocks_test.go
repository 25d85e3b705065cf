package service

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/poolparty/pool-backend/pkg/pool"
	"github.com/poolparty/pool-backend/pkg/poolstore"
	"github.com/poolparty/pool-backend/pkg/reconciler"
)

type mockStore struct {
	createPoolFn         func(ctx context.Context, rec *pool.DBRecord) error
	getPoolFn            func(ctx context.Context, internalID string) (*pool.DBRecord, error)
	getPoolByContractFn  func(ctx context.Context, chainID int64, contractID uint64) (*pool.DBRecord, error)
	listPoolsFn          func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error)
	updatePoolStatusFn   func(ctx context.Context, internalID, status string) error
	setContractIDFn      func(ctx context.Context, internalID string, contractID uint64) error
	addParticipantFn     func(ctx context.Context, poolID, walletAddress, txHash string) error
	listParticipantsFn   func(ctx context.Context, poolID string) ([]string, error)
	upsertUserFn         func(ctx context.Context, walletAddress, displayName string) error
	getUserFn            func(ctx context.Context, walletAddress string) (*poolstore.User, error)
}

func (m *mockStore) CreatePool(ctx context.Context, rec *pool.DBRecord) error {
	return m.createPoolFn(ctx, rec)
}

func (m *mockStore) GetPool(ctx context.Context, internalID string) (*pool.DBRecord, error) {
	return m.getPoolFn(ctx, internalID)
}

func (m *mockStore) GetPoolByContractID(ctx context.Context, chainID int64, contractID uint64) (*pool.DBRecord, error) {
	return m.getPoolByContractFn(ctx, chainID, contractID)
}

func (m *mockStore) ListPools(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
	return m.listPoolsFn(ctx, chainID)
}

func (m *mockStore) UpdatePoolStatus(ctx context.Context, internalID, status string) error {
	return m.updatePoolStatusFn(ctx, internalID, status)
}

func (m *mockStore) SetContractID(ctx context.Context, internalID string, contractID uint64) error {
	return m.setContractIDFn(ctx, internalID, contractID)
}

func (m *mockStore) AddParticipant(ctx context.Context, poolID, walletAddress, txHash string) error {
	return m.addParticipantFn(ctx, poolID, walletAddress, txHash)
}

func (m *mockStore) ListParticipants(ctx context.Context, poolID string) ([]string, error) {
	return m.listParticipantsFn(ctx, poolID)
}

func (m *mockStore) UpsertUser(ctx context.Context, walletAddress, displayName string) error {
	return m.upsertUserFn(ctx, walletAddress, displayName)
}

func (m *mockStore) GetUser(ctx context.Context, walletAddress string) (*poolstore.User, error) {
	return m.getUserFn(ctx, walletAddress)
}

type mockChainClient struct {
	chainID          int64
	from             common.Address
	poolContract     common.Address
	hasContract      bool
	balanceOfFn      func(ctx context.Context, token, owner common.Address) (*big.Int, error)
	submitFn         func(ctx context.Context, to common.Address, contractABI, method string, args ...interface{}) (common.Hash, error)
	waitMinedFn      func(ctx context.Context, hash common.Hash, pollInterval time.Duration) (*types.Receipt, error)
	poolIDFromRcptFn func(receipt *types.Receipt) (uint64, error)
	getPoolInfoFn    func(ctx context.Context, poolID uint64) (*pool.ContractRecord, error)
	tokenDecimalsFn  func(ctx context.Context, token common.Address) (uint8, error)
}

func (m *mockChainClient) ChainID() int64               { return m.chainID }
func (m *mockChainClient) From() common.Address         { return m.from }
func (m *mockChainClient) PoolContract() common.Address { return m.poolContract }
func (m *mockChainClient) HasPoolContract() bool        { return m.hasContract }

func (m *mockChainClient) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return m.balanceOfFn(ctx, token, owner)
}

func (m *mockChainClient) Submit(ctx context.Context, to common.Address, contractABI, method string, args ...interface{}) (common.Hash, error) {
	return m.submitFn(ctx, to, contractABI, method, args...)
}

func (m *mockChainClient) WaitMined(ctx context.Context, hash common.Hash, pollInterval time.Duration) (*types.Receipt, error) {
	return m.waitMinedFn(ctx, hash, pollInterval)
}

func (m *mockChainClient) PoolIDFromReceipt(receipt *types.Receipt) (uint64, error) {
	return m.poolIDFromRcptFn(receipt)
}

func (m *mockChainClient) GetPoolInfo(ctx context.Context, poolID uint64) (*pool.ContractRecord, error) {
	return m.getPoolInfoFn(ctx, poolID)
}

func (m *mockChainClient) GetTokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	return m.tokenDecimalsFn(ctx, token)
}

type mockChainProvider struct {
	clients map[int64]ChainClient
}

func (m *mockChainProvider) Client(chainID int64) ChainClient {
	return m.clients[chainID]
}

type mockViews struct {
	reconcileFn    func(ctx context.Context, chainID int64) *reconciler.Result
	fromSubgraphFn func(ctx context.Context, chainID int64) *reconciler.Result
	userPoolsFn    func(ctx context.Context, address string, partition pool.Partition, chainID int64) *reconciler.Result
	invalidations  []string
}

func (m *mockViews) Reconcile(ctx context.Context, chainID int64) *reconciler.Result {
	return m.reconcileFn(ctx, chainID)
}

func (m *mockViews) UpcomingPoolsFromSubgraph(ctx context.Context, chainID int64) *reconciler.Result {
	return m.fromSubgraphFn(ctx, chainID)
}

func (m *mockViews) UserPools(ctx context.Context, address string, partition pool.Partition, chainID int64) *reconciler.Result {
	return m.userPoolsFn(ctx, address, partition, chainID)
}

func (m *mockViews) Invalidate(chainID int64, address string) {
	m.invalidations = append(m.invalidations, address)
}

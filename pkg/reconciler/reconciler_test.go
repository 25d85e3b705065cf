package reconciler

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poolparty/pool-backend/pkg/pool"
)

const testChainID int64 = 11155111

func contractPool(id uint64, status pool.ContractStatus, start time.Time) *pool.ContractRecord {
	return &pool.ContractRecord{
		ID:               id,
		Name:             "pool",
		Host:             common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Token:            common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		TokenDecimals:    6,
		TokenSymbol:      "USDC",
		DepositPerPerson: big.NewInt(15_000000),
		StartTime:        start,
		EndTime:          start.Add(24 * time.Hour),
		Balance:          big.NewInt(0),
		Status:           status,
	}
}

func dbRow(contractID uint64, status string) *pool.DBRecord {
	cid := contractID
	return &pool.DBRecord{
		InternalID:  "internal-" + status,
		ContractID:  &cid,
		ChainID:     testChainID,
		Name:        "pool",
		BannerImage: "https://img.example/banner.png",
		SoftCap:     10,
		Status:      status,
		HostAddress: "0x00000000000000000000000000000000000000aa",
	}
}

func newTestReconciler(contract *mockContractReader, lister *mockPoolLister, sg *mockSubgraphReader) *Reconciler {
	contracts := map[int64]ContractReader{}
	if contract != nil {
		contracts[testChainID] = contract
	}
	subgraphs := map[int64]SubgraphReader{}
	if sg != nil {
		subgraphs[testChainID] = sg
	}
	return New(lister, contracts, subgraphs, NewCache(0), zap.NewNop())
}

func TestReconcileInactivePoolWithUnconfirmedRowIsVisible(t *testing.T) {
	start := time.Now().Add(48 * time.Hour)
	contract := &mockContractReader{
		getContractPoolsFn: func(ctx context.Context) ([]*pool.ContractRecord, error) {
			return []*pool.ContractRecord{contractPool(90, pool.StatusInactive, start)}, nil
		},
	}
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			return []*pool.DBRecord{dbRow(90, pool.DBStatusUnconfirmed)}, nil
		},
	}

	result := newTestReconciler(contract, lister, nil).Reconcile(context.Background(), testChainID)

	require.Len(t, result.Pools, 1)
	assert.Equal(t, uint64(90), result.Pools[0].ID)
	assert.Equal(t, pool.StatusInactive, result.Pools[0].Status)
	assert.Equal(t, "https://img.example/banner.png", result.Pools[0].Image)
	assert.Equal(t, 10, result.Pools[0].SoftCap)
	assert.Equal(t, "15", result.Pools[0].DepositAmount)
	assert.Equal(t, 1, result.Metadata.VisiblePools)
	assert.Equal(t, 1, result.Metadata.SyncedPools)
}

func TestReconcileStartedPoolExcludedFromUpcoming(t *testing.T) {
	contract := &mockContractReader{
		getContractPoolsFn: func(ctx context.Context) ([]*pool.ContractRecord, error) {
			return []*pool.ContractRecord{contractPool(172, pool.StatusStarted, time.Now().Add(-time.Hour))}, nil
		},
	}
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			return []*pool.DBRecord{dbRow(172, pool.DBStatusStarted)}, nil
		},
	}

	result := newTestReconciler(contract, lister, nil).Reconcile(context.Background(), testChainID)

	assert.Empty(t, result.Pools)
	assert.Equal(t, 1, result.Metadata.TotalContractPools)
	assert.Equal(t, 1, result.Metadata.TotalDBPools)
}

func TestReconcileContractPoolWithoutDBRowNeverVisible(t *testing.T) {
	contract := &mockContractReader{
		getContractPoolsFn: func(ctx context.Context) ([]*pool.ContractRecord, error) {
			return []*pool.ContractRecord{
				contractPool(1, pool.StatusInactive, time.Now()),
				contractPool(2, pool.StatusDepositEnabled, time.Now()),
			}, nil
		},
	}
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			return []*pool.DBRecord{dbRow(2, pool.DBStatusDepositsEnabled)}, nil
		},
	}

	result := newTestReconciler(contract, lister, nil).Reconcile(context.Background(), testChainID)

	require.Len(t, result.Pools, 1)
	assert.Equal(t, uint64(2), result.Pools[0].ID)
}

func TestReconcileUnsyncedRowIsExcluded(t *testing.T) {
	contract := &mockContractReader{
		getContractPoolsFn: func(ctx context.Context) ([]*pool.ContractRecord, error) {
			return []*pool.ContractRecord{contractPool(5, pool.StatusInactive, time.Now())}, nil
		},
	}
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			draft := dbRow(0, pool.DBStatusDraft)
			draft.ContractID = nil
			return []*pool.DBRecord{draft, dbRow(5, pool.DBStatusInactive)}, nil
		},
	}

	result := newTestReconciler(contract, lister, nil).Reconcile(context.Background(), testChainID)

	require.Len(t, result.Pools, 1)
	assert.Equal(t, uint64(5), result.Pools[0].ID)
	assert.Equal(t, 1, result.Metadata.SyncedPools)
	assert.Equal(t, 2, result.Metadata.TotalDBPools)
}

func TestReconcileSortInvariant(t *testing.T) {
	base := time.Now().Truncate(time.Second)
	contract := &mockContractReader{
		getContractPoolsFn: func(ctx context.Context) ([]*pool.ContractRecord, error) {
			return []*pool.ContractRecord{
				contractPool(1, pool.StatusInactive, base.Add(3*time.Hour)),
				contractPool(2, pool.StatusDepositEnabled, base.Add(time.Hour)),
				contractPool(3, pool.StatusInactive, base.Add(5*time.Hour)),
				contractPool(4, pool.StatusDepositEnabled, base.Add(2*time.Hour)),
			}, nil
		},
	}
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			return []*pool.DBRecord{
				dbRow(1, pool.DBStatusInactive),
				dbRow(2, pool.DBStatusDepositsEnabled),
				dbRow(3, pool.DBStatusInactive),
				dbRow(4, pool.DBStatusDepositsEnabled),
			}, nil
		},
	}

	result := newTestReconciler(contract, lister, nil).Reconcile(context.Background(), testChainID)

	require.Len(t, result.Pools, 4)
	for i := 1; i < len(result.Pools); i++ {
		prev, cur := result.Pools[i-1], result.Pools[i]
		assert.GreaterOrEqual(t, uint8(prev.Status), uint8(cur.Status))
		if prev.Status == cur.Status {
			assert.False(t, prev.StartDate.Before(cur.StartDate))
		}
	}
	assert.Equal(t, uint64(4), result.Pools[0].ID)
	assert.Equal(t, uint64(2), result.Pools[1].ID)
	assert.Equal(t, uint64(3), result.Pools[2].ID)
	assert.Equal(t, uint64(1), result.Pools[3].ID)
}

func TestReconcileIsIdempotentForUnchangedInputs(t *testing.T) {
	contract := &mockContractReader{
		getContractPoolsFn: func(ctx context.Context) ([]*pool.ContractRecord, error) {
			return []*pool.ContractRecord{
				contractPool(1, pool.StatusDepositEnabled, time.Unix(1_900_000_000, 0)),
				contractPool(2, pool.StatusInactive, time.Unix(1_900_100_000, 0)),
			}, nil
		},
	}
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			return []*pool.DBRecord{
				dbRow(1, pool.DBStatusDepositsEnabled),
				dbRow(2, pool.DBStatusUnconfirmed),
			}, nil
		},
	}

	r := newTestReconciler(contract, lister, nil)
	first := r.Reconcile(context.Background(), testChainID)
	second := r.Reconcile(context.Background(), testChainID)

	assert.Equal(t, first.Pools, second.Pools)
	assert.Equal(t, first.Metadata, second.Metadata)
}

func TestReconcileSourceFailureDegradesToEmpty(t *testing.T) {
	contract := &mockContractReader{
		getContractPoolsFn: func(ctx context.Context) ([]*pool.ContractRecord, error) {
			return nil, errors.New("rpc: connection refused")
		},
	}
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			return nil, errors.New("pg: connection reset")
		},
	}

	result := newTestReconciler(contract, lister, nil).Reconcile(context.Background(), testChainID)

	assert.Empty(t, result.Pools)
	assert.Equal(t, CacheMiss, result.Metadata.CacheStatus)
	assert.Zero(t, result.Metadata.TotalContractPools)
	assert.Zero(t, result.Metadata.TotalDBPools)
}

func TestReconcileDBFailureDoesNotAbortContractRead(t *testing.T) {
	contract := &mockContractReader{
		getContractPoolsFn: func(ctx context.Context) ([]*pool.ContractRecord, error) {
			return []*pool.ContractRecord{contractPool(7, pool.StatusInactive, time.Now())}, nil
		},
	}
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			return nil, errors.New("pg: timeout")
		},
	}

	result := newTestReconciler(contract, lister, nil).Reconcile(context.Background(), testChainID)

	// The contract pool has no database match, so nothing is visible, but
	// the metadata still reflects the successful contract read.
	assert.Empty(t, result.Pools)
	assert.Equal(t, 1, result.Metadata.TotalContractPools)
	assert.Zero(t, result.Metadata.TotalDBPools)
}

func TestReconcileUnconfiguredChainReturnsEmpty(t *testing.T) {
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			return nil, nil
		},
	}

	result := newTestReconciler(nil, lister, nil).Reconcile(context.Background(), 999)

	assert.Empty(t, result.Pools)
	assert.Equal(t, CacheMiss, result.Metadata.CacheStatus)
}

func TestReconcileCacheHit(t *testing.T) {
	calls := 0
	contract := &mockContractReader{
		getContractPoolsFn: func(ctx context.Context) ([]*pool.ContractRecord, error) {
			calls++
			return []*pool.ContractRecord{contractPool(1, pool.StatusInactive, time.Now())}, nil
		},
	}
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			return []*pool.DBRecord{dbRow(1, pool.DBStatusInactive)}, nil
		},
	}

	r := New(
		lister,
		map[int64]ContractReader{testChainID: contract},
		nil,
		NewCache(time.Minute),
		zap.NewNop(),
	)

	first := r.Reconcile(context.Background(), testChainID)
	second := r.Reconcile(context.Background(), testChainID)

	assert.Equal(t, 1, calls)
	assert.Equal(t, CacheMiss, first.Metadata.CacheStatus)
	assert.Equal(t, CacheHit, second.Metadata.CacheStatus)
	assert.Equal(t, first.Pools, second.Pools)
}

func TestInvalidateDropsChainEntry(t *testing.T) {
	calls := 0
	contract := &mockContractReader{
		getContractPoolsFn: func(ctx context.Context) ([]*pool.ContractRecord, error) {
			calls++
			return []*pool.ContractRecord{contractPool(1, pool.StatusInactive, time.Now())}, nil
		},
	}
	lister := &mockPoolLister{
		listPoolsFn: func(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
			return []*pool.DBRecord{dbRow(1, pool.DBStatusInactive)}, nil
		},
	}

	r := New(
		lister,
		map[int64]ContractReader{testChainID: contract},
		nil,
		NewCache(time.Minute),
		zap.NewNop(),
	)

	r.Reconcile(context.Background(), testChainID)
	r.Invalidate(testChainID, "0xabc")
	result := r.Reconcile(context.Background(), testChainID)

	assert.Equal(t, 2, calls)
	assert.Equal(t, CacheMiss, result.Metadata.CacheStatus)
}

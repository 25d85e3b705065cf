// Package reconciler merges the three independently-updated views of pool
// state (contract, database, subgraph) into one coherent, user-facing list.
// The three sources are eventually consistent; mismatches are an expected
// transient during pool creation and are handled by exclusion, never by
// error.
package reconciler

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/poolparty/pool-backend/internal/metrics"
	"github.com/poolparty/pool-backend/pkg/pool"
	"github.com/poolparty/pool-backend/pkg/subgraph"
)

// CacheStatus values reported in result metadata.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// ContractReader reads authoritative pool state from one chain.
type ContractReader interface {
	GetContractPools(ctx context.Context) ([]*pool.ContractRecord, error)
	GetPoolInfo(ctx context.Context, poolID uint64) (*pool.ContractRecord, error)
}

// SubgraphReader reads the indexer projection for one chain.
type SubgraphReader interface {
	FetchAllPools(ctx context.Context) (*subgraph.AllPoolsResult, error)
	FetchUserPools(ctx context.Context, address string) (*subgraph.UserPoolsResult, error)
}

// PoolLister reads the database mirror.
type PoolLister interface {
	ListPools(ctx context.Context, chainID int64) ([]*pool.DBRecord, error)
}

// Metadata carries the diagnostic counters of one reconciliation pass.
// Operators watch these to detect desync incidents; they are not behavioral.
type Metadata struct {
	TotalContractPools int    `json:"totalContractPools"`
	TotalDBPools       int    `json:"totalDbPools"`
	VisiblePools       int    `json:"visiblePools"`
	SyncedPools        int    `json:"syncedPools"`
	CacheStatus        string `json:"cacheStatus"`
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Pools    []pool.View `json:"pools"`
	Metadata Metadata    `json:"metadata"`
}

// Reconciler computes reconciled pool views on demand. Safe for concurrent
// use; results are snapshots with no ordering guarantee across calls.
type Reconciler struct {
	store     PoolLister
	contracts map[int64]ContractReader
	subgraphs map[int64]SubgraphReader
	cache     *Cache
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a reconciler over the configured chains. Chains with no
// contract reader or no subgraph reader simply contribute empty results.
func New(
	store PoolLister,
	contracts map[int64]ContractReader,
	subgraphs map[int64]SubgraphReader,
	cache *Cache,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		store:     store,
		contracts: contracts,
		subgraphs: subgraphs,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// Reconcile merges contract state and the database mirror for one chain into
// the upcoming-pools view. No error escapes: every failure path degrades to
// an empty result with cache status "miss".
func (r *Reconciler) Reconcile(ctx context.Context, chainID int64) *Result {
	chainLabel := strconv.FormatInt(chainID, 10)

	if cached, ok := r.cache.get(listKey(chainID)); ok {
		metrics.ReconcileRuns.WithLabelValues(chainLabel, CacheHit).Inc()
		hit := *cached
		hit.Metadata.CacheStatus = CacheHit
		return &hit
	}

	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues(chainLabel).Observe(time.Since(start).Seconds())
	}()
	metrics.ReconcileRuns.WithLabelValues(chainLabel, CacheMiss).Inc()

	contractPools, dbPools := r.fetchSources(ctx, chainID)

	// No data anywhere is not a sync incident, just an empty chain.
	if len(contractPools) == 0 && len(dbPools) == 0 {
		return emptyResult()
	}

	result := r.merge(contractPools, dbPools, chainLabel)
	r.cache.put(listKey(chainID), result)
	return result
}

// fetchSources reads the contract and the database concurrently. Each
// failure degrades to an empty slice for that source without aborting the
// other; reconciliation latency is the max of the two reads, not the sum.
func (r *Reconciler) fetchSources(ctx context.Context, chainID int64) ([]*pool.ContractRecord, []*pool.DBRecord) {
	chainLabel := strconv.FormatInt(chainID, 10)

	var (
		wg            sync.WaitGroup
		contractPools []*pool.ContractRecord
		dbPools       []*pool.DBRecord
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		reader, ok := r.contracts[chainID]
		if !ok {
			return
		}
		pools, err := reader.GetContractPools(ctx)
		if err != nil {
			metrics.SourceFailures.WithLabelValues(chainLabel, "contract").Inc()
			r.logger.Warn("Contract pool read failed, degrading to empty",
				zap.Int64("chain_id", chainID),
				zap.Error(err))
			return
		}
		contractPools = pools
	}()

	go func() {
		defer wg.Done()
		records, err := r.store.ListPools(ctx, chainID)
		if err != nil {
			metrics.SourceFailures.WithLabelValues(chainLabel, "database").Inc()
			r.logger.Warn("Database pool read failed, degrading to empty",
				zap.Int64("chain_id", chainID),
				zap.Error(err))
			return
		}
		dbPools = records
	}()

	wg.Wait()
	return contractPools, dbPools
}

// merge applies eligibility filtering, the db-match requirement, enrichment
// and the deterministic sort to one pair of source snapshots.
func (r *Reconciler) merge(contractPools []*pool.ContractRecord, dbPools []*pool.DBRecord, chainLabel string) *Result {
	byContractID := make(map[uint64]*pool.DBRecord, len(dbPools))
	synced := 0
	for _, rec := range dbPools {
		if !rec.Synced() {
			continue
		}
		synced++
		byContractID[*rec.ContractID] = rec
	}
	metrics.DesyncedPools.WithLabelValues(chainLabel).Set(float64(len(dbPools) - synced))

	views := make([]pool.View, 0, len(contractPools))
	for _, cp := range contractPools {
		if !pool.EligibleContractStatus(cp.Status) {
			continue
		}

		// Require a matching database row with a visible status. Pools
		// failing either check are dropped silently: a contract pool the
		// database has not caught up with is a transient desync, not an
		// error.
		rec, ok := byContractID[cp.ID]
		if !ok || !pool.VisibleForUpcoming(rec.Status) {
			continue
		}

		views = append(views, buildView(cp, rec))
	}

	sortViews(views)
	metrics.VisiblePools.WithLabelValues(chainLabel).Set(float64(len(views)))

	return &Result{
		Pools: views,
		Metadata: Metadata{
			TotalContractPools: len(contractPools),
			TotalDBPools:       len(dbPools),
			VisiblePools:       len(views),
			SyncedPools:        synced,
			CacheStatus:        CacheMiss,
		},
	}
}

// UpcomingPoolsFromSubgraph is the low-latency list path. The subgraph
// replaces the O(n) on-chain enumeration with one indexer query; per-pool
// contract reads then run only for candidates the database says are
// visible. Any subgraph failure degrades to the empty result shape.
func (r *Reconciler) UpcomingPoolsFromSubgraph(ctx context.Context, chainID int64) *Result {
	chainLabel := strconv.FormatInt(chainID, 10)

	sg, ok := r.subgraphs[chainID]
	if !ok {
		return emptyResult()
	}

	all, err := sg.FetchAllPools(ctx)
	if err != nil {
		metrics.SourceFailures.WithLabelValues(chainLabel, "subgraph").Inc()
		r.logger.Warn("Subgraph pool read failed, degrading to empty",
			zap.Int64("chain_id", chainID),
			zap.Error(err))
		return emptyResult()
	}
	if all.Sync != nil {
		metrics.SubgraphLag.WithLabelValues(chainLabel).Set(float64(all.Sync.LagSeconds))
	}

	dbPools, err := r.store.ListPools(ctx, chainID)
	if err != nil {
		metrics.SourceFailures.WithLabelValues(chainLabel, "database").Inc()
		return emptyResult()
	}

	byContractID := make(map[uint64]*pool.DBRecord, len(dbPools))
	synced := 0
	for _, rec := range dbPools {
		if !rec.Synced() {
			continue
		}
		synced++
		byContractID[*rec.ContractID] = rec
	}

	reader := r.contracts[chainID]
	views := make([]pool.View, 0, len(all.PoolCreateds))
	for _, created := range all.PoolCreateds {
		poolID, err := strconv.ParseUint(created.PoolID, 10, 64)
		if err != nil {
			continue
		}
		rec, ok := byContractID[poolID]
		if !ok || !pool.VisibleForUpcoming(rec.Status) {
			continue
		}
		if reader == nil {
			continue
		}

		cp, err := reader.GetPoolInfo(ctx, poolID)
		if err != nil {
			continue
		}
		if !pool.EligibleContractStatus(cp.Status) {
			continue
		}
		views = append(views, buildView(cp, rec))
	}

	sortViews(views)

	return &Result{
		Pools: views,
		Metadata: Metadata{
			TotalContractPools: len(all.PoolCreateds),
			TotalDBPools:       len(dbPools),
			VisiblePools:       len(views),
			SyncedPools:        synced,
			CacheStatus:        CacheMiss,
		},
	}
}

// Invalidate drops the cache entries a confirmed transaction could have
// affected: the chain's global list and, when an actor is known, their
// user-pools partitions.
func (r *Reconciler) Invalidate(chainID int64, address string) {
	r.cache.invalidate(listKey(chainID))
	if address != "" {
		r.cache.invalidatePrefix(userKeyPrefix(chainID, address))
	}
}

// buildView projects one matched (contract, database) pair into the
// user-facing shape, pulling in the metadata only the database carries.
func buildView(cp *pool.ContractRecord, rec *pool.DBRecord) pool.View {
	return pool.View{
		ID:              cp.ID,
		Name:            cp.Name,
		Image:           rec.BannerImage,
		StartDate:       cp.StartTime,
		EndDate:         cp.EndTime,
		Status:          cp.Status,
		NumParticipants: len(cp.Participants),
		SoftCap:         rec.SoftCap,
		DepositAmount:   pool.FormatAmount(cp.DepositPerPerson, cp.TokenDecimals),
		TokenSymbol:     cp.TokenSymbol,
	}
}

// sortViews orders views by contract status descending, then start date
// descending. The most active pools surface first; the exact order is part
// of the list contract.
func sortViews(views []pool.View) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Status != views[j].Status {
			return views[i].Status > views[j].Status
		}
		return views[i].StartDate.After(views[j].StartDate)
	})
}

func emptyResult() *Result {
	return &Result{
		Pools:    []pool.View{},
		Metadata: Metadata{CacheStatus: CacheMiss},
	}
}

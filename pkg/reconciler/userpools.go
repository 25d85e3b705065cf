package reconciler

import (
	"context"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/poolparty/pool-backend/internal/metrics"
	"github.com/poolparty/pool-backend/pkg/pool"
)

// UserPools partitions the wallet's pools into one of the upcoming, live or
// past buckets. Membership comes from subgraph deposit events when the
// indexer is reachable and falls back to the contract's participant set; the
// host of a pool is always a member of it. Same degradation contract as
// Reconcile: failures produce an empty result, never an error.
func (r *Reconciler) UserPools(ctx context.Context, address string, partition pool.Partition, chainID int64) *Result {
	key := userKey(chainID, address, string(partition))
	if cached, ok := r.cache.get(key); ok {
		hit := *cached
		hit.Metadata.CacheStatus = CacheHit
		return &hit
	}

	contractPools, dbPools := r.fetchSources(ctx, chainID)
	if len(contractPools) == 0 {
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

	deposited := r.depositedPoolIDs(ctx, chainID, address)
	account := common.HexToAddress(address)
	now := r.now()

	views := make([]pool.View, 0, len(contractPools))
	for _, cp := range contractPools {
		rec, ok := byContractID[cp.ID]
		if !ok {
			continue
		}

		// Deleted pools are invisible everywhere, membership or not.
		if cp.Status == pool.StatusDeleted || pool.MapDBStatus(rec.Status) == pool.StatusDeleted {
			continue
		}

		member := deposited[cp.ID] || cp.HasParticipant(account) || cp.Host == account
		if !member {
			continue
		}

		bucket := classify(cp, now)
		if bucket != partition {
			continue
		}
		// The upcoming bucket carries the same visibility rule as the public
		// list. Pools that progressed past deposits stay reachable through
		// the past bucket once their end date elapses.
		if bucket == pool.PartitionUpcoming &&
			(!pool.EligibleContractStatus(cp.Status) || !pool.VisibleForUpcoming(rec.Status)) {
			continue
		}

		views = append(views, buildView(cp, rec))
	}

	sortViews(views)

	result := &Result{
		Pools: views,
		Metadata: Metadata{
			TotalContractPools: len(contractPools),
			TotalDBPools:       len(dbPools),
			VisiblePools:       len(views),
			SyncedPools:        synced,
			CacheStatus:        CacheMiss,
		},
	}
	r.cache.put(key, result)
	return result
}

// classify buckets a pool by its dates. Pools that are neither upcoming nor
// past are live.
func classify(cp *pool.ContractRecord, now time.Time) pool.Partition {
	switch {
	case cp.StartTime.After(now):
		return pool.PartitionUpcoming
	case pool.VisibleForPast(cp.Status, cp.EndTime, now):
		return pool.PartitionPast
	default:
		return pool.PartitionLive
	}
}

// depositedPoolIDs reads the wallet's deposit events from the subgraph.
// Advisory membership source only; a failed or missing subgraph yields an
// empty set and the contract participant check takes over.
func (r *Reconciler) depositedPoolIDs(ctx context.Context, chainID int64, address string) map[uint64]bool {
	sg, ok := r.subgraphs[chainID]
	if !ok {
		return nil
	}

	resp, err := sg.FetchUserPools(ctx, address)
	if err != nil {
		metrics.SourceFailures.WithLabelValues(strconv.FormatInt(chainID, 10), "subgraph").Inc()
		r.logger.Warn("Subgraph user pools read failed, falling back to contract participants",
			zap.Int64("chain_id", chainID),
			zap.String("address", address),
			zap.Error(err))
		return nil
	}

	ids := make(map[uint64]bool, len(resp.Deposits))
	for _, dep := range resp.Deposits {
		id, err := strconv.ParseUint(dep.PoolID, 10, 64)
		if err != nil {
			continue
		}
		ids[id] = true
	}
	return ids
}

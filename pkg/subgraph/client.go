// Package subgraph queries the event indexer. The subgraph is a low-latency
// substitute for O(n) on-chain reads and is never a hard dependency:
// callers degrade to an empty result set when a query fails, and never use
// it for write-path decisions.
package subgraph

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/machinebox/graphql"
	"go.uber.org/zap"
)

// PoolCreated is the indexer projection of a pool creation event.
type PoolCreated struct {
	PoolID                 string `json:"poolId"`
	PoolName               string `json:"poolName"`
	DepositAmountPerPerson string `json:"depositAmountPerPerson"`
	Timestamp              string `json:"timestamp_"`
}

// Deposit is the indexer projection of a deposit event.
type Deposit struct {
	PoolID    string `json:"poolId"`
	Sender    string `json:"sender"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp_"`
}

// SyncStatus is the indexer lag envelope.
type SyncStatus struct {
	LatestBlock int64 `json:"latest_block"`
	SyncedBlock int64 `json:"synced_block"`
	LagSeconds  int64 `json:"lag_seconds"`
}

// AllPoolsResult is the response shape of FetchAllPools.
type AllPoolsResult struct {
	PoolCreateds []PoolCreated `json:"poolCreateds"`
	Sync         *SyncStatus   `json:"sync_status"`
}

// UserPoolsResult is the response shape of FetchUserPools.
type UserPoolsResult struct {
	PoolCreateds []PoolCreated `json:"poolCreateds"`
	Deposits     []Deposit     `json:"deposits"`
}

// Client is a GraphQL client bound to one chain's subgraph deployment.
type Client struct {
	gql    *graphql.Client
	url    string
	maxLag time.Duration
	logger *zap.Logger
}

// New creates a subgraph client. Returns nil when no URL is configured for
// the chain; callers treat a nil client as "source absent".
func New(url string, requestTimeout, maxLag time.Duration, logger *zap.Logger) *Client {
	if url == "" {
		return nil
	}
	httpClient := &http.Client{Timeout: requestTimeout}
	return &Client{
		gql:    graphql.NewClient(url, graphql.WithHTTPClient(httpClient)),
		url:    url,
		maxLag: maxLag,
		logger: logger,
	}
}

const allPoolsQuery = `
query AllPools($first: Int!) {
  poolCreateds(first: $first, orderBy: timestamp_, orderDirection: desc) {
    poolId
    poolName
    depositAmountPerPerson
    timestamp_
  }
  sync_status {
    latest_block
    synced_block
    lag_seconds
  }
}`

// FetchAllPools returns every pool creation event the indexer knows about.
func (c *Client) FetchAllPools(ctx context.Context) (*AllPoolsResult, error) {
	req := graphql.NewRequest(allPoolsQuery)
	req.Var("first", 1000)

	var resp AllPoolsResult
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("subgraph allPools query: %w", err)
	}

	c.observeLag(resp.Sync)
	return &resp, nil
}

const userPoolsQuery = `
query UserPools($address: String!) {
  poolCreateds(first: 1000, orderBy: timestamp_, orderDirection: desc) {
    poolId
    poolName
    depositAmountPerPerson
    timestamp_
  }
  deposits(where: {sender: $address}) {
    poolId
    sender
    amount
    timestamp_
  }
}`

// FetchUserPools returns all pools plus the deposit events of one wallet.
func (c *Client) FetchUserPools(ctx context.Context, address string) (*UserPoolsResult, error) {
	req := graphql.NewRequest(userPoolsQuery)
	req.Var("address", address)

	var resp UserPoolsResult
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("subgraph userPools query: %w", err)
	}
	return &resp, nil
}

const participationQuery = `
query Participation($poolId: String!, $address: String!) {
  deposits(first: 1, where: {poolId: $poolId, sender: $address}) {
    poolId
  }
}`

// CheckUserParticipation reports whether the wallet has a deposit event for
// the pool. Advisory only: the write path re-checks against the contract.
func (c *Client) CheckUserParticipation(ctx context.Context, poolID uint64, address string) (bool, error) {
	req := graphql.NewRequest(participationQuery)
	req.Var("poolId", strconv.FormatUint(poolID, 10))
	req.Var("address", address)

	var resp struct {
		Deposits []Deposit `json:"deposits"`
	}
	if err := c.gql.Run(ctx, req, &resp); err != nil {
		return false, fmt.Errorf("subgraph participation query: %w", err)
	}
	return len(resp.Deposits) > 0, nil
}

// observeLag surfaces indexer lag above the operational threshold.
func (c *Client) observeLag(sync *SyncStatus) {
	if sync == nil {
		return
	}
	if time.Duration(sync.LagSeconds)*time.Second > c.maxLag {
		c.logger.Warn("Subgraph is lagging",
			zap.Int64("lag_seconds", sync.LagSeconds),
			zap.Int64("latest_block", sync.LatestBlock),
			zap.Int64("synced_block", sync.SyncedBlock),
			zap.String("url", c.url))
	}
}

// TimestampToTime converts a subgraph Unix-seconds timestamp to wall-clock
// time. Pure; malformed input yields the zero time.
func TimestampToTime(ts string) time.Time {
	seconds, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}

// Package service implements the pool API operations on top of the
// reconciler, the chain clients and the database mirror.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/poolparty/pool-backend/pkg/app/errors"
	"github.com/poolparty/pool-backend/pkg/auth"
	"github.com/poolparty/pool-backend/pkg/config"
	"github.com/poolparty/pool-backend/pkg/pool"
	"github.com/poolparty/pool-backend/pkg/poolstore"
	"github.com/poolparty/pool-backend/pkg/reconciler"
	"github.com/poolparty/pool-backend/pkg/txflow"
)

// ChainClient is the per-chain surface the service needs. Satisfied by
// chain.Client.
type ChainClient interface {
	txflow.Submitter
	PoolContract() common.Address
	HasPoolContract() bool
	PoolIDFromReceipt(receipt *types.Receipt) (uint64, error)
	GetPoolInfo(ctx context.Context, poolID uint64) (*pool.ContractRecord, error)
	GetTokenDecimals(ctx context.Context, token common.Address) (uint8, error)
}

// ChainProvider hands out the client for a chain, nil when unconfigured.
type ChainProvider interface {
	Client(chainID int64) ChainClient
}

// Views is the reconciliation surface the service reads lists from.
type Views interface {
	Reconcile(ctx context.Context, chainID int64) *reconciler.Result
	UpcomingPoolsFromSubgraph(ctx context.Context, chainID int64) *reconciler.Result
	UserPools(ctx context.Context, address string, partition pool.Partition, chainID int64) *reconciler.Result
	Invalidate(chainID int64, address string)
}

// Service wires pool reads and writes together. One transaction flow may be
// in flight per wallet; flows for distinct wallets run independently.
type Service struct {
	store  poolstore.Store
	chains ChainProvider
	views  Views
	cfg    *config.Config
	logger *zap.Logger

	mu    sync.Mutex
	flows map[string]*txflow.Orchestrator

	// async runs detached work; replaced with a synchronous runner in tests.
	async func(fn func())
}

// NewService creates the pool service.
func NewService(
	store poolstore.Store,
	chains ChainProvider,
	views Views,
	cfg *config.Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:  store,
		chains: chains,
		views:  views,
		cfg:    cfg,
		logger: logger,
		flows:  make(map[string]*txflow.Orchestrator),
		async:  func(fn func()) { go fn() },
	}
}

// ListUpcoming returns the reconciled upcoming-pools view. The subgraph fast
// path is tried first; an empty or degraded subgraph result falls back to
// the full contract enumeration.
func (s *Service) ListUpcoming(ctx context.Context, chainID int64) *reconciler.Result {
	fast := s.views.UpcomingPoolsFromSubgraph(ctx, chainID)
	if len(fast.Pools) > 0 {
		return fast
	}
	return s.views.Reconcile(ctx, chainID)
}

// UserPools returns the wallet's pools for one partition.
func (s *Service) UserPools(ctx context.Context, address string, partition pool.Partition, chainID int64) *reconciler.Result {
	return s.views.UserPools(ctx, address, partition, chainID)
}

// CreatePoolRequest carries the host's new-pool parameters. Times are Unix
// seconds; DepositAmount is a human-readable token amount.
type CreatePoolRequest struct {
	ChainID       int64  `json:"chainId"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	BannerImage   string `json:"bannerImage"`
	SoftCap       int    `json:"softCap"`
	TermsURL      string `json:"termsUrl"`
	TokenAddress  string `json:"tokenAddress"`
	DepositAmount string `json:"depositAmount"`
	StartTime     int64  `json:"startTime"`
	EndTime       int64  `json:"endTime"`
}

// FlowResponse acknowledges an accepted transaction flow. The caller polls
// TxStatus for progress.
type FlowResponse struct {
	PoolID string       `json:"poolId,omitempty"`
	PlanID string       `json:"planId"`
	Status txflow.State `json:"status"`
}

// CreatePool persists the metadata row and starts the createPool contract
// write. The row stays unconfirmed, and therefore invisible to reconciled
// views, until the write confirms and the contract id is attached.
func (s *Service) CreatePool(ctx context.Context, wallet string, req *CreatePoolRequest) (*FlowResponse, error) {
	if req.Name == "" {
		return nil, apperrors.BadRequestError(nil, "name is required")
	}
	if !common.IsHexAddress(req.TokenAddress) {
		return nil, apperrors.BadRequestError(nil, "tokenAddress must be a hex address")
	}
	if req.EndTime <= req.StartTime {
		return nil, apperrors.BadRequestError(nil, "endTime must be after startTime")
	}

	chainID := s.resolveChainID(req.ChainID)
	client := s.chains.Client(chainID)
	if client == nil || !client.HasPoolContract() {
		return nil, apperrors.BadRequestError(nil, fmt.Sprintf("chain %d has no pool contract", chainID))
	}

	token := common.HexToAddress(req.TokenAddress)
	decimals, err := client.GetTokenDecimals(ctx, token)
	if err != nil {
		return nil, apperrors.DependencyError(err, "failed to read token decimals")
	}
	amount, err := pool.ParseAmount(req.DepositAmount, decimals)
	if err != nil || amount.Sign() <= 0 {
		return nil, apperrors.BadRequestError(err, "depositAmount is invalid")
	}

	rec := &pool.DBRecord{
		InternalID:  uuid.New().String(),
		ChainID:     chainID,
		Name:        req.Name,
		Description: req.Description,
		BannerImage: req.BannerImage,
		SoftCap:     req.SoftCap,
		TermsURL:    req.TermsURL,
		Status:      pool.DBStatusUnconfirmed,
		HostAddress: auth.NormalizeAddress(wallet),
	}
	if err := s.store.CreatePool(ctx, rec); err != nil {
		return nil, apperrors.GeneralError(err)
	}

	plan := txflow.CreatePlan(
		chainID,
		client.PoolContract(),
		big.NewInt(req.StartTime),
		big.NewInt(req.EndTime),
		req.Name,
		amount,
		token,
	)

	orch := s.orchestratorFor(wallet, chainID, client)
	if err := s.startFlow(orch, plan, wallet, chainID, func(outcome txflow.Outcome) {
		s.confirmCreate(rec, client, chainID, outcome)
	}); err != nil {
		return nil, err
	}

	return &FlowResponse{PoolID: rec.InternalID, PlanID: plan.ID, Status: txflow.StatePending}, nil
}

// confirmCreate attaches the freshly minted contract id to the metadata row
// once the createPool write has confirmed. The id comes out of the confirmed
// transaction's own PoolCreated log; two creates confirming back to back
// therefore cannot claim each other's pool.
func (s *Service) confirmCreate(rec *pool.DBRecord, client ChainClient, chainID int64, outcome txflow.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	receipt, err := client.WaitMined(ctx, common.HexToHash(outcome.Hash), 0)
	if err != nil {
		s.logger.Error("Pool created on chain but receipt read failed; row stays unconfirmed",
			zap.String("pool_id", rec.InternalID),
			zap.String("tx_hash", outcome.Hash),
			zap.Error(err))
		return
	}

	contractID, err := client.PoolIDFromReceipt(receipt)
	if err != nil {
		s.logger.Error("Pool created on chain but contract id read failed; row stays unconfirmed",
			zap.String("pool_id", rec.InternalID),
			zap.String("tx_hash", outcome.Hash),
			zap.Error(err))
		return
	}

	if err := s.store.SetContractID(ctx, rec.InternalID, contractID); err != nil {
		s.logger.Error("Failed to attach contract id to pool row",
			zap.String("pool_id", rec.InternalID),
			zap.Uint64("contract_id", contractID),
			zap.Error(err))
		return
	}
	if err := s.store.UpdatePoolStatus(ctx, rec.InternalID, pool.DBStatusInactive); err != nil {
		s.logger.Error("Failed to update pool status after confirmation",
			zap.String("pool_id", rec.InternalID),
			zap.Error(err))
	}

	s.logger.Info("Pool confirmed on chain",
		zap.String("pool_id", rec.InternalID),
		zap.Uint64("contract_id", contractID),
		zap.Int64("chain_id", chainID))
}

// JoinPool starts the approve-then-deposit flow for the wallet.
func (s *Service) JoinPool(ctx context.Context, wallet, internalID string, chainID int64) (*FlowResponse, error) {
	chainID = s.resolveChainID(chainID)

	rec, err := s.store.GetPool(ctx, internalID)
	if err != nil {
		if errors.Is(err, poolstore.ErrPoolNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "pool not found")
		}
		return nil, apperrors.GeneralError(err)
	}
	if !rec.Synced() {
		return nil, apperrors.ConflictError(nil, "pool is not confirmed on chain yet")
	}
	if !pool.VisibleForUpcoming(rec.Status) {
		return nil, apperrors.ConflictError(nil, "pool is no longer accepting deposits")
	}

	client := s.chains.Client(chainID)
	if client == nil || !client.HasPoolContract() {
		return nil, apperrors.BadRequestError(nil, fmt.Sprintf("chain %d has no pool contract", chainID))
	}

	info, err := client.GetPoolInfo(ctx, *rec.ContractID)
	if err != nil {
		return nil, apperrors.DependencyError(err, "failed to read pool state")
	}
	if !pool.EligibleContractStatus(info.Status) {
		return nil, apperrors.ConflictError(nil, "pool is no longer accepting deposits")
	}
	if info.HasParticipant(common.HexToAddress(wallet)) {
		return nil, apperrors.ConflictError(nil, "wallet already joined this pool")
	}

	plan := txflow.JoinPlan(chainID, client.PoolContract(), info.Token, info.ID, info.DepositPerPerson)

	orch := s.orchestratorFor(wallet, chainID, client)
	if err := s.startFlow(orch, plan, wallet, chainID, func(outcome txflow.Outcome) {
		wctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.store.AddParticipant(wctx, rec.InternalID, auth.NormalizeAddress(wallet), outcome.Hash); err != nil {
			s.logger.Error("Failed to record participant after confirmed deposit",
				zap.String("pool_id", rec.InternalID),
				zap.String("wallet", wallet),
				zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}

	return &FlowResponse{PoolID: rec.InternalID, PlanID: plan.ID, Status: txflow.StatePending}, nil
}

// transitions maps API lifecycle actions to the contract method and the
// database label a confirmed transition lands on.
var transitions = map[string]struct {
	method   string
	dbStatus string
}{
	"enable-deposit": {"enableDeposit", pool.DBStatusDepositsEnabled},
	"start":          {"startPool", pool.DBStatusStarted},
	"end":            {"endPool", pool.DBStatusEnded},
}

// AdminTransition runs a host-only lifecycle write (enable-deposit, start,
// end) against the pool contract.
func (s *Service) AdminTransition(ctx context.Context, wallet, internalID, action string, chainID int64) (*FlowResponse, error) {
	transition, ok := transitions[action]
	if !ok {
		return nil, apperrors.BadRequestError(nil, "unknown transition "+action)
	}

	chainID = s.resolveChainID(chainID)

	rec, err := s.store.GetPool(ctx, internalID)
	if err != nil {
		if errors.Is(err, poolstore.ErrPoolNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "pool not found")
		}
		return nil, apperrors.GeneralError(err)
	}
	if rec.HostAddress != auth.NormalizeAddress(wallet) {
		return nil, apperrors.ForbiddenError(nil, "only the host may change pool state")
	}
	if !rec.Synced() {
		return nil, apperrors.ConflictError(nil, "pool is not confirmed on chain yet")
	}

	client := s.chains.Client(chainID)
	if client == nil || !client.HasPoolContract() {
		return nil, apperrors.BadRequestError(nil, fmt.Sprintf("chain %d has no pool contract", chainID))
	}

	plan := txflow.AdminPlan(chainID, client.PoolContract(), *rec.ContractID, transition.method)

	orch := s.orchestratorFor(wallet, chainID, client)
	if err := s.startFlow(orch, plan, wallet, chainID, func(outcome txflow.Outcome) {
		wctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.store.UpdatePoolStatus(wctx, rec.InternalID, transition.dbStatus); err != nil {
			s.logger.Error("Failed to update pool status after confirmed transition",
				zap.String("pool_id", rec.InternalID),
				zap.String("status", transition.dbStatus),
				zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}

	return &FlowResponse{PoolID: rec.InternalID, PlanID: plan.ID, Status: txflow.StatePending}, nil
}

// TxStatus returns the wallet's active flow outcome, idle when no flow has
// run.
func (s *Service) TxStatus(wallet string, chainID int64) txflow.Outcome {
	chainID = s.resolveChainID(chainID)

	s.mu.Lock()
	orch, ok := s.flows[flowKey(wallet, chainID)]
	s.mu.Unlock()

	if !ok {
		return txflow.Outcome{Status: txflow.StateIdle}
	}
	return orch.Status()
}

// TxReset returns the wallet's terminal flow to idle.
func (s *Service) TxReset(wallet string, chainID int64) error {
	chainID = s.resolveChainID(chainID)

	s.mu.Lock()
	orch, ok := s.flows[flowKey(wallet, chainID)]
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if err := orch.Reset(); err != nil {
		return apperrors.ConflictError(err, "a transaction is still in flight")
	}
	return nil
}

// startFlow reserves the wallet's flow for the plan, rejecting the request
// when one is already in flight, then runs it on a detached context.
// onConfirmed runs only for a confirmed outcome, after which the affected
// cache entries are dropped.
func (s *Service) startFlow(orch *txflow.Orchestrator, plan txflow.Plan, wallet string, chainID int64, onConfirmed func(txflow.Outcome)) error {
	// The reservation is atomic: of two simultaneous requests exactly one
	// schedules its plan, the other gets the conflict.
	if err := orch.Begin(plan); err != nil {
		return apperrors.ConflictError(err, "a transaction is already in flight for this wallet")
	}

	s.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		outcome, err := orch.Execute(ctx, plan, txflow.Options{
			OnSuccess: func() {
				s.views.Invalidate(chainID, auth.NormalizeAddress(wallet))
			},
			OnInsufficientFunds: func() {
				s.logger.Info("Wallet balance below required deposit, flow needs on-ramp",
					zap.String("wallet", wallet),
					zap.String("plan_id", plan.ID),
					zap.Int64("chain_id", chainID))
			},
		})
		if err != nil {
			// The reservation was superseded before the flow ran.
			s.logger.Warn("Transaction flow rejected",
				zap.String("plan_id", plan.ID),
				zap.Error(err))
			return
		}
		if outcome.Status == txflow.StateConfirmed && onConfirmed != nil {
			onConfirmed(outcome)
		}
	})
	return nil
}

func (s *Service) orchestratorFor(wallet string, chainID int64, client ChainClient) *txflow.Orchestrator {
	key := flowKey(wallet, chainID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if orch, ok := s.flows[key]; ok {
		return orch
	}
	orch := txflow.New(client, s.cfg.TxFlow, s.logger)
	s.flows[key] = orch
	return orch
}

func (s *Service) resolveChainID(chainID int64) int64 {
	if chainID != 0 {
		return chainID
	}
	return s.cfg.DefaultChainID()
}

func flowKey(wallet string, chainID int64) string {
	return fmt.Sprintf("%s:%d", auth.NormalizeAddress(wallet), chainID)
}

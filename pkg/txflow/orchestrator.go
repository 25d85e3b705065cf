package txflow

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/poolparty/pool-backend/internal/metrics"
	"github.com/poolparty/pool-backend/pkg/config"
)

// State names one position in the flow state machine:
// idle -> pending -> confirming -> {confirmed | failed | cancelled},
// with Reset returning any terminal state to idle.
type State string

const (
	StateIdle       State = "idle"
	StatePending    State = "pending"
	StateConfirming State = "confirming"
	StateConfirmed  State = "confirmed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether the state accepts no further transitions except
// Reset.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed || s == StateCancelled
}

// Outcome is the externally visible result of the active flow. Exactly one
// outcome exists per orchestrator at a time; Reset supersedes it atomically.
type Outcome struct {
	PlanID string `json:"planId,omitempty"`
	Hash   string `json:"hash,omitempty"`
	Status State  `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`

	// On-ramp affordance, populated when the balance pre-check fails. The
	// client keys its funding CTA off these instead of parsing Reason.
	OnRampRequired bool   `json:"onRampRequired,omitempty"`
	Token          string `json:"token,omitempty"`
	RequiredAmount string `json:"requiredAmount,omitempty"`
}

// ErrFlowInFlight is returned when a flow is started or reset while a
// previous run is still pending or confirming. Concurrent submissions
// against one wallet risk a double spend of the approval, so the second
// caller is rejected, never interleaved.
var ErrFlowInFlight = errors.New("transaction flow already in flight")

// Submitter is the chain write surface the orchestrator drives. Satisfied
// by chain.Client.
type Submitter interface {
	ChainID() int64
	From() common.Address
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Submit(ctx context.Context, to common.Address, contractABI string, method string, args ...interface{}) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash, pollInterval time.Duration) (*types.Receipt, error)
}

// Options tunes one Execute run.
type Options struct {
	// OnSuccess fires exactly once, after the final step is confirmed.
	OnSuccess func()
	// OnInsufficientFunds fires instead of any submission when the balance
	// pre-check fails; callers typically open an on-ramp.
	OnInsufficientFunds func()
}

// Orchestrator sequences the steps of one plan at a time over a single
// submitter. Safe for concurrent use; only one flow may be in flight.
type Orchestrator struct {
	submitter Submitter
	cfg       config.TxFlowConfig
	logger    *zap.Logger

	mu      sync.Mutex
	outcome Outcome
}

// New creates an orchestrator over one chain submitter.
func New(submitter Submitter, cfg config.TxFlowConfig, logger *zap.Logger) *Orchestrator {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 3 * time.Minute
	}
	return &Orchestrator{
		submitter: submitter,
		cfg:       cfg,
		logger:    logger,
		outcome:   Outcome{Status: StateIdle},
	}
}

// Status returns a snapshot of the active outcome.
func (o *Orchestrator) Status() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcome
}

// Reset returns a terminal flow to idle so a new plan can run. Rejected
// while a flow is in flight.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.outcome.Status == StatePending || o.outcome.Status == StateConfirming {
		return ErrFlowInFlight
	}
	o.outcome = Outcome{Status: StateIdle}
	return nil
}

// Begin reserves the flow for plan, transitioning idle or a terminal state
// to pending. Callers that hand Execute to a background goroutine reserve
// first so the losing request of a double submit is rejected before anything
// is scheduled, not silently dropped inside the goroutine.
func (o *Orchestrator) Begin(plan Plan) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.outcome.Status == StatePending || o.outcome.Status == StateConfirming {
		return ErrFlowInFlight
	}
	o.outcome = Outcome{PlanID: plan.ID, Status: StatePending}
	return nil
}

// Execute runs the plan to a terminal state and returns the final outcome.
// It blocks through submission and confirmation; callers poll Status for
// progress. The only error return is ErrFlowInFlight.
func (o *Orchestrator) Execute(ctx context.Context, plan Plan, opts Options) (Outcome, error) {
	o.mu.Lock()
	switch {
	case o.outcome.Status == StatePending && o.outcome.PlanID == plan.ID:
		// Reserved for this plan by Begin.
	case o.outcome.Status == StatePending || o.outcome.Status == StateConfirming:
		o.mu.Unlock()
		return Outcome{}, ErrFlowInFlight
	default:
		o.outcome = Outcome{PlanID: plan.ID, Status: StatePending}
	}
	o.mu.Unlock()

	if o.submitter.ChainID() != plan.ChainID {
		err := &ChainMismatchError{Required: plan.ChainID, Actual: o.submitter.ChainID()}
		return o.finish(plan, err), nil
	}

	// Balance pre-check on raw base-unit integers. Comparing formatted
	// display values against raw balances is the bug class this guards
	// against; no submission happens for a flow guaranteed to revert.
	if plan.RequiredAmount != nil {
		balance, err := o.submitter.BalanceOf(ctx, plan.Token, o.submitter.From())
		if err != nil {
			return o.finish(plan, err), nil
		}
		if balance.Cmp(plan.RequiredAmount) < 0 {
			o.logger.Info("Insufficient funds, skipping submission",
				zap.String("plan_id", plan.ID),
				zap.String("balance", balance.String()),
				zap.String("required", plan.RequiredAmount.String()))
			o.mu.Lock()
			o.outcome.OnRampRequired = true
			o.outcome.Token = plan.Token.Hex()
			o.outcome.RequiredAmount = plan.RequiredAmount.String()
			o.mu.Unlock()
			if opts.OnInsufficientFunds != nil {
				opts.OnInsufficientFunds()
			}
			return o.fail(plan, StateFailed, ReasonInsufficientFunds, "balance below required deposit"), nil
		}
	}

	chainLabel := strconv.FormatInt(plan.ChainID, 10)

	// Steps run strictly in order; step N+1 is never submitted until step
	// N's submission has succeeded.
	var lastHash common.Hash
	for _, step := range plan.Steps {
		hash, err := o.submitStep(ctx, step)
		if err != nil {
			return o.finish(plan, err), nil
		}
		lastHash = hash
		metrics.TransactionsSent.WithLabelValues(chainLabel, step.Method).Inc()
	}

	o.setState(StateConfirming, lastHash.Hex())

	confirmCtx, cancel := context.WithTimeout(ctx, o.cfg.ConfirmTimeout)
	defer cancel()

	receipt, err := o.submitter.WaitMined(confirmCtx, lastHash, o.cfg.PollingInterval)
	if err != nil {
		return o.finish(plan, err), nil
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return o.finish(plan, &RevertError{}), nil
	}

	o.mu.Lock()
	o.outcome.Status = StateConfirmed
	final := o.outcome
	o.mu.Unlock()

	metrics.TransactionOutcomes.WithLabelValues(chainLabel, string(StateConfirmed)).Inc()
	o.logger.Info("Transaction flow confirmed",
		zap.String("plan_id", plan.ID),
		zap.String("tx_hash", lastHash.Hex()),
		zap.Int64("chain_id", plan.ChainID))

	if opts.OnSuccess != nil {
		opts.OnSuccess()
	}
	return final, nil
}

func (o *Orchestrator) submitStep(ctx context.Context, step Step) (common.Hash, error) {
	submitCtx := ctx
	if o.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, o.cfg.SubmitTimeout)
		defer cancel()
	}
	return o.submitter.Submit(submitCtx, step.To, step.ABIKind, step.Method, step.Args...)
}

func (o *Orchestrator) setState(state State, hash string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcome.Status = state
	if hash != "" {
		o.outcome.Hash = hash
	}
}

// finish classifies err and records the terminal state it maps to.
func (o *Orchestrator) finish(plan Plan, err error) Outcome {
	state, reason := Classify(err)
	return o.fail(plan, state, reason, err.Error())
}

func (o *Orchestrator) fail(plan Plan, state State, reason, message string) Outcome {
	o.mu.Lock()
	o.outcome.Status = state
	o.outcome.Reason = reason
	o.outcome.Error = message
	final := o.outcome
	o.mu.Unlock()

	metrics.TransactionOutcomes.WithLabelValues(strconv.FormatInt(plan.ChainID, 10), string(state)).Inc()

	if state == StateCancelled {
		o.logger.Info("Transaction flow cancelled",
			zap.String("plan_id", plan.ID))
	} else {
		o.logger.Warn("Transaction flow failed",
			zap.String("plan_id", plan.ID),
			zap.String("reason", reason),
			zap.String("error", message))
	}
	return final
}

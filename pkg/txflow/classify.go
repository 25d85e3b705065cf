package txflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure reasons carried in Outcome.Reason. Stable strings: clients key
// messaging off them.
const (
	ReasonInsufficientFunds = "INSUFFICIENT_FUNDS"
	ReasonUserRejected      = "USER_REJECTED"
	ReasonChainMismatch     = "CHAIN_MISMATCH"
	ReasonReverted          = "REVERTED"
	ReasonTimeout           = "TIMEOUT"
	ReasonNetworkError      = "NETWORK_ERROR"
)

// ErrUserRejected marks a signer-side rejection of a transaction. Distinct
// from failure: the user changed their mind, nothing is wrong.
var ErrUserRejected = errors.New("user rejected transaction")

// ChainMismatchError reports a plan targeting a different network than the
// submitter is bound to. Carries the required chain so callers can prompt a
// network switch instead of showing a generic failure.
type ChainMismatchError struct {
	Required int64
	Actual   int64
}

func (e *ChainMismatchError) Error() string {
	return fmt.Sprintf("transaction requires chain %d but submitter is bound to chain %d", e.Required, e.Actual)
}

// RevertError carries the underlying revert reason where available.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "transaction reverted"
	}
	return "transaction reverted: " + e.Reason
}

// Classify maps a submission or confirmation error to the terminal state
// and reason it should produce. A user rejection is the only path to
// cancelled; everything else is a failure with a specific reason.
func Classify(err error) (State, string) {
	var mismatch *ChainMismatchError
	var revert *RevertError

	switch {
	case errors.Is(err, ErrUserRejected):
		return StateCancelled, ReasonUserRejected
	case errors.As(err, &mismatch):
		return StateFailed, ReasonChainMismatch
	case errors.As(err, &revert):
		return StateFailed, ReasonReverted
	case errors.Is(err, context.DeadlineExceeded):
		return StateFailed, ReasonTimeout
	case strings.Contains(err.Error(), "execution reverted"):
		return StateFailed, ReasonReverted
	case strings.Contains(strings.ToLower(err.Error()), "user rejected"),
		strings.Contains(strings.ToLower(err.Error()), "user denied"):
		return StateCancelled, ReasonUserRejected
	default:
		return StateFailed, ReasonNetworkError
	}
}

package pool

import "time"

// Database status labels for the pools table. The chain only learns about a
// subset of these; draft and unconfirmed exist before the contract write
// confirms, paused is a host-side veil over a started pool.
const (
	DBStatusDraft           = "draft"
	DBStatusUnconfirmed     = "unconfirmed"
	DBStatusInactive        = "inactive"
	DBStatusDepositsEnabled = "depositsEnabled"
	DBStatusStarted         = "started"
	DBStatusPaused          = "paused"
	DBStatusEnded           = "ended"
	DBStatusDeleted         = "deleted"
)

// dbStatusTable is the single mapping from database labels to the contract
// enum. Unknown or empty labels map to StatusInactive on purpose: a row we
// cannot classify is treated like one that has not started, which keeps it
// out of nothing it should be in and avoids surfacing bogus state.
var dbStatusTable = map[string]ContractStatus{
	DBStatusDraft:           StatusInactive,
	DBStatusUnconfirmed:     StatusInactive,
	DBStatusInactive:        StatusInactive,
	DBStatusDepositsEnabled: StatusDepositEnabled,
	DBStatusStarted:         StatusStarted,
	DBStatusPaused:          StatusStarted,
	DBStatusEnded:           StatusEnded,
	DBStatusDeleted:         StatusDeleted,
}

// MapDBStatus maps a database status label to the contract status enum.
// Total function: unknown and empty labels yield StatusInactive.
func MapDBStatus(label string) ContractStatus {
	if status, ok := dbStatusTable[label]; ok {
		return status
	}
	return StatusInactive
}

// VisibleForUpcoming reports whether a pool with the given database status
// belongs in upcoming lists. This single inequality is the business rule the
// whole list pipeline hangs on.
func VisibleForUpcoming(label string) bool {
	return MapDBStatus(label) <= StatusDepositEnabled
}

// EligibleContractStatus reports whether an on-chain status qualifies a pool
// for the upcoming eligibility set. Same inequality as VisibleForUpcoming,
// applied to the contract side of the merge.
func EligibleContractStatus(status ContractStatus) bool {
	return status <= StatusDepositEnabled
}

// VisibleForPast reports whether a pool qualifies for past lists: it has
// progressed beyond deposits and its end date has elapsed.
func VisibleForPast(status ContractStatus, endDate time.Time, now time.Time) bool {
	return status > StatusDepositEnabled && endDate.Before(now)
}

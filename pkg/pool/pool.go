// Package pool holds the pool domain model shared by the chain reader, the
// database mirror and the reconciler.
package pool

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ContractStatus is the numeric status enum of the pool contract.
//
// The numeric order is load-bearing: list visibility is decided by comparing
// against StatusDepositEnabled (see VisibleForUpcoming), so these values must
// never be renumbered without migrating stored database status labels.
type ContractStatus uint8

const (
	StatusInactive       ContractStatus = 0
	StatusDepositEnabled ContractStatus = 1
	StatusStarted        ContractStatus = 2
	StatusEnded          ContractStatus = 3
	// StatusDeleted is terminal and reachable from any state; every other
	// transition is monotonically non-decreasing.
	StatusDeleted ContractStatus = 4
)

func (s ContractStatus) String() string {
	switch s {
	case StatusInactive:
		return "INACTIVE"
	case StatusDepositEnabled:
		return "DEPOSIT_ENABLED"
	case StatusStarted:
		return "STARTED"
	case StatusEnded:
		return "ENDED"
	case StatusDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// ContractRecord is the authoritative on-chain truth for one pool. It is
// produced by chain reads only and never mutated locally.
type ContractRecord struct {
	ID               uint64
	Name             string
	Host             common.Address
	Token            common.Address
	TokenDecimals    uint8
	TokenSymbol      string
	DepositPerPerson *big.Int // token base units
	StartTime        time.Time
	EndTime          time.Time
	Balance          *big.Int // token base units
	Status           ContractStatus
	Participants     []common.Address
}

// HasParticipant reports whether addr has deposited into the pool.
func (r *ContractRecord) HasParticipant(addr common.Address) bool {
	for _, p := range r.Participants {
		if p == addr {
			return true
		}
	}
	return false
}

// View is the reconciled, user-facing projection of a pool. It exists only
// when a contract record and a matching database row agree; it is computed
// on demand and never persisted.
type View struct {
	ID              uint64         `json:"id"`
	Name            string         `json:"name"`
	Image           string         `json:"image,omitempty"`
	StartDate       time.Time      `json:"startDate"`
	EndDate         time.Time      `json:"endDate"`
	Status          ContractStatus `json:"status"`
	NumParticipants int            `json:"numParticipants"`
	SoftCap         int            `json:"softCap,omitempty"`
	DepositAmount   string         `json:"depositAmount,omitempty"`
	TokenSymbol     string         `json:"tokenSymbol,omitempty"`
}

// Partition identifies a user-pools bucket.
type Partition string

const (
	PartitionUpcoming Partition = "upcoming"
	PartitionPast     Partition = "past"
	// PartitionLive covers pools with startDate <= now <= endDate, which
	// belong to neither of the other buckets.
	PartitionLive Partition = "live"
)

// ParsePartition validates a partition query value.
func ParsePartition(s string) (Partition, bool) {
	switch Partition(s) {
	case PartitionUpcoming, PartitionPast, PartitionLive:
		return Partition(s), true
	}
	return "", false
}

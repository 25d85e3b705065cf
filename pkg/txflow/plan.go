// Package txflow drives multi-step contract writes to completion. One
// orchestrator owns one wallet's flow at a time: steps are submitted
// strictly in order, the final step is waited to confirmation, and the
// outcome is classified into a terminal state the API can expose.
package txflow

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/poolparty/pool-backend/pkg/chain"
)

// Step is one contract write descriptor.
type Step struct {
	To      common.Address
	ABIKind string
	Method  string
	Args    []interface{}
}

// Plan is an ordered list of write steps executed as one user action.
// RequiredAmount, when set, triggers the balance pre-check against Token
// before anything is submitted.
type Plan struct {
	ID             string
	ChainID        int64
	PoolID         uint64
	Steps          []Step
	Token          common.Address
	RequiredAmount *big.Int
}

// JoinPlan builds the approve-then-deposit sequence for joining a pool. The
// approval must exist before the deposit call that spends it, so the step
// order is a hard guarantee, not an optimization.
func JoinPlan(chainID int64, poolContract, token common.Address, poolID uint64, amount *big.Int) Plan {
	return Plan{
		ID:      uuid.New().String(),
		ChainID: chainID,
		PoolID:  poolID,
		Steps: []Step{
			{
				To:      token,
				ABIKind: chain.ABIKindERC20,
				Method:  "approve",
				Args:    []interface{}{poolContract, amount},
			},
			{
				To:      poolContract,
				ABIKind: chain.ABIKindPool,
				Method:  "deposit",
				Args:    []interface{}{new(big.Int).SetUint64(poolID), amount},
			},
		},
		Token:          token,
		RequiredAmount: amount,
	}
}

// AdminPlan builds a single-step lifecycle transition (enableDeposit,
// startPool, endPool) for a pool.
func AdminPlan(chainID int64, poolContract common.Address, poolID uint64, method string) Plan {
	return Plan{
		ID:      uuid.New().String(),
		ChainID: chainID,
		PoolID:  poolID,
		Steps: []Step{
			{
				To:      poolContract,
				ABIKind: chain.ABIKindPool,
				Method:  method,
				Args:    []interface{}{new(big.Int).SetUint64(poolID)},
			},
		},
	}
}

// CreatePlan builds the createPool write. Argument order follows the
// contract: times first, then name, amount and token.
func CreatePlan(chainID int64, poolContract common.Address, startTime, endTime *big.Int, name string, depositPerPerson *big.Int, token common.Address) Plan {
	return Plan{
		ID:      uuid.New().String(),
		ChainID: chainID,
		Steps: []Step{
			{
				To:      poolContract,
				ABIKind: chain.ABIKindPool,
				Method:  "createPool",
				Args:    []interface{}{startTime, endTime, name, depositPerPerson, token},
			},
		},
	}
}

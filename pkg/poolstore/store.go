// Package poolstore provides Postgres persistence for the pools mirror.
package poolstore

import (
	"context"
	"errors"

	"github.com/poolparty/pool-backend/pkg/pool"
)

var (
	ErrPoolNotFound = errors.New("pool not found")
	ErrUserNotFound = errors.New("user not found")
)

// Store is the data-access interface the reconciler and the pool service
// depend on. Defined here to keep callers decoupled from bun.
type Store interface {
	CreatePool(ctx context.Context, rec *pool.DBRecord) error
	GetPool(ctx context.Context, internalID string) (*pool.DBRecord, error)
	GetPoolByContractID(ctx context.Context, chainID int64, contractID uint64) (*pool.DBRecord, error)
	ListPools(ctx context.Context, chainID int64) ([]*pool.DBRecord, error)
	UpdatePoolStatus(ctx context.Context, internalID, status string) error
	SetContractID(ctx context.Context, internalID string, contractID uint64) error

	AddParticipant(ctx context.Context, poolID, walletAddress, txHash string) error
	ListParticipants(ctx context.Context, poolID string) ([]string, error)

	UpsertUser(ctx context.Context, walletAddress, displayName string) error
	GetUser(ctx context.Context, walletAddress string) (*User, error)
}

// User is display metadata for a host or participant.
type User struct {
	WalletAddress string
	DisplayName   string
	AvatarURL     string
}

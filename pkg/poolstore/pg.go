package poolstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/poolparty/pool-backend/pkg/pool"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the pool store
func NewStore(db *bun.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) CreatePool(ctx context.Context, rec *pool.DBRecord) error {
	dao := toPoolDao(rec)

	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	return nil
}

func (s *pgStore) GetPool(ctx context.Context, internalID string) (*pool.DBRecord, error) {
	dao := new(PoolDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", internalID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}

	return toRecord(dao), nil
}

func (s *pgStore) GetPoolByContractID(ctx context.Context, chainID int64, contractID uint64) (*pool.DBRecord, error) {
	dao := new(PoolDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("chain_id = ?", chainID).
		Where("contract_id = ?", int64(contractID)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPoolNotFound
		}
		return nil, fmt.Errorf("failed to get pool by contract id: %w", err)
	}

	return toRecord(dao), nil
}

func (s *pgStore) ListPools(ctx context.Context, chainID int64) ([]*pool.DBRecord, error) {
	var daos []PoolDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("chain_id = ?", chainID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}

	records := make([]*pool.DBRecord, len(daos))
	for i := range daos {
		records[i] = toRecord(&daos[i])
	}
	return records, nil
}

func (s *pgStore) UpdatePoolStatus(ctx context.Context, internalID, status string) error {
	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model((*PoolDao)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", now).
		Where("id = ?", internalID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update pool status: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrPoolNotFound
	}
	return nil
}

func (s *pgStore) SetContractID(ctx context.Context, internalID string, contractID uint64) error {
	now := time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model((*PoolDao)(nil)).
		Set("contract_id = ?", int64(contractID)).
		Set("updated_at = ?", now).
		Where("id = ?", internalID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set contract id: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrPoolNotFound
	}
	return nil
}

func (s *pgStore) AddParticipant(ctx context.Context, poolID, walletAddress, txHash string) error {
	dao := &ParticipantDao{
		PoolID:        poolID,
		WalletAddress: walletAddress,
	}
	if txHash != "" {
		dao.TxHash = &txHash
	}

	// Re-joining after a retried deposit must stay a no-op.
	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (pool_id, wallet_address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

func (s *pgStore) ListParticipants(ctx context.Context, poolID string) ([]string, error) {
	var addresses []string
	err := s.db.NewSelect().
		Model((*ParticipantDao)(nil)).
		Column("wallet_address").
		Where("pool_id = ?", poolID).
		Order("created_at ASC").
		Scan(ctx, &addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return addresses, nil
}

func (s *pgStore) UpsertUser(ctx context.Context, walletAddress, displayName string) error {
	dao := &UserDao{
		WalletAddress: walletAddress,
	}
	if displayName != "" {
		dao.DisplayName = &displayName
	}

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (wallet_address) DO UPDATE").
		Set("display_name = COALESCE(EXCLUDED.display_name, u.display_name)").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *pgStore) GetUser(ctx context.Context, walletAddress string) (*User, error) {
	dao := new(UserDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("wallet_address = ?", walletAddress).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user := &User{WalletAddress: dao.WalletAddress}
	if dao.DisplayName != nil {
		user.DisplayName = *dao.DisplayName
	}
	if dao.AvatarURL != nil {
		user.AvatarURL = *dao.AvatarURL
	}
	return user, nil
}

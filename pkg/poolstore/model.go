package poolstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/poolparty/pool-backend/pkg/pool"
)

// PoolDao is a data access object that maps directly to the 'pools' table in PostgreSQL.
type PoolDao struct {
	bun.BaseModel `bun:"table:pools,alias:p"`
	ID            string     `bun:"id,pk,type:varchar(36)"`
	ContractID    *int64     `bun:"contract_id,unique:uq_pools_chain_contract"`
	ChainID       int64      `bun:"chain_id,notnull,unique:uq_pools_chain_contract"`
	Name          string     `bun:"name,notnull,type:varchar(255)"`
	Description   *string    `bun:"description,type:text"`
	BannerImage   *string    `bun:"banner_image,type:varchar(500)"`
	SoftCap       *int       `bun:"soft_cap"`
	TermsURL      *string    `bun:"terms_url,type:varchar(500)"`
	Status        string     `bun:"status,notnull,type:varchar(32)"`
	HostAddress   string     `bun:"host_address,notnull,type:varchar(42)"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     *time.Time `bun:"updated_at"`
}

// ParticipantDao maps to the 'pool_participants' join table.
type ParticipantDao struct {
	bun.BaseModel `bun:"table:pool_participants,alias:pp"`
	ID            int64     `bun:"id,pk,autoincrement"`
	PoolID        string    `bun:"pool_id,notnull,unique:uq_participants_pool_wallet,type:varchar(36)"`
	WalletAddress string    `bun:"wallet_address,notnull,unique:uq_participants_pool_wallet,type:varchar(42)"`
	TxHash        *string   `bun:"tx_hash,type:varchar(66)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// UserDao maps to the 'users' table, holding display metadata for hosts and
// participants.
type UserDao struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	ID            int64     `bun:"id,pk,autoincrement"`
	WalletAddress string    `bun:"wallet_address,unique,notnull,type:varchar(42)"`
	DisplayName   *string   `bun:"display_name,type:varchar(255)"`
	AvatarURL     *string   `bun:"avatar_url,type:varchar(500)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// toPoolDao converts a pool.DBRecord to PoolDao.
func toPoolDao(rec *pool.DBRecord) *PoolDao {
	dao := &PoolDao{
		ID:          rec.InternalID,
		ChainID:     rec.ChainID,
		Name:        rec.Name,
		Status:      rec.Status,
		HostAddress: rec.HostAddress,
	}

	if rec.ContractID != nil {
		cid := int64(*rec.ContractID)
		dao.ContractID = &cid
	}
	if rec.Description != "" {
		dao.Description = &rec.Description
	}
	if rec.BannerImage != "" {
		dao.BannerImage = &rec.BannerImage
	}
	if rec.SoftCap != 0 {
		dao.SoftCap = &rec.SoftCap
	}
	if rec.TermsURL != "" {
		dao.TermsURL = &rec.TermsURL
	}

	return dao
}

// toRecord converts a PoolDao to pool.DBRecord.
func toRecord(dao *PoolDao) *pool.DBRecord {
	rec := &pool.DBRecord{
		InternalID:  dao.ID,
		ChainID:     dao.ChainID,
		Name:        dao.Name,
		Status:      dao.Status,
		HostAddress: dao.HostAddress,
		CreatedAt:   dao.CreatedAt,
	}

	if dao.ContractID != nil {
		cid := uint64(*dao.ContractID)
		rec.ContractID = &cid
	}
	if dao.Description != nil {
		rec.Description = *dao.Description
	}
	if dao.BannerImage != nil {
		rec.BannerImage = *dao.BannerImage
	}
	if dao.SoftCap != nil {
		rec.SoftCap = *dao.SoftCap
	}
	if dao.TermsURL != nil {
		rec.TermsURL = *dao.TermsURL
	}
	if dao.UpdatedAt != nil {
		rec.UpdatedAt = *dao.UpdatedAt
	}

	return rec
}

package pool

import "time"

// DBRecord is the mutable metadata mirror of a pool, owned by the
// persistence layer. ContractID is nil until the creating contract write
// confirms; such rows are "unsynced" and excluded from every reconciled
// view.
type DBRecord struct {
	InternalID  string
	ContractID  *uint64
	ChainID     int64
	Name        string
	Description string
	BannerImage string
	SoftCap     int
	TermsURL    string
	Status      string
	HostAddress string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Synced reports whether the row corresponds to a confirmed contract pool.
func (r *DBRecord) Synced() bool {
	return r.ContractID != nil
}

package schema

// TrustLine represents the trust_lines table - one row per (holder, issuer,
// currency) triple. The issuer's own pseudo-line for an asset is never
// stored; it is synthesized in memory on demand.
type TrustLine struct {
	// HolderID is the check-encoded account identifier of the trustor
	HolderID string `gorm:"column:holder_id;primaryKey;type:varchar(56);not null;index:idx_trust_lines_holder"`
	// IssuerID is the check-encoded account identifier of the asset issuer
	IssuerID string `gorm:"column:issuer_id;primaryKey;type:varchar(56);not null"`
	// CurrencyCode is the unpacked 4-character asset code
	CurrencyCode string `gorm:"column:currency_code;primaryKey;type:varchar(4);not null"`
	// Limit is the maximum balance the holder will accept
	Limit int64 `gorm:"column:limit;not null;default:0;check:chk_trust_lines_limit,\"limit\" >= 0"`
	// Balance is the currently held amount, always within [0, limit]
	Balance int64 `gorm:"column:balance;not null;default:0;check:chk_trust_lines_balance,balance >= 0"`
	// Flags packs the line's permission bits (bit 0 = authorized); decoded
	// at the store boundary, never inspected by business logic
	Flags uint32 `gorm:"column:flags;not null"`
}

// TableName specifies the table name for the TrustLine model
func (TrustLine) TableName() string {
	return "trust_lines"
}

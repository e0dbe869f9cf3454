package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"gorm.io/gorm"

	"github.com/lightpoint/trustlines/internal/domain"
	"github.com/lightpoint/trustlines/internal/journal"
	"github.com/lightpoint/trustlines/internal/store/schema"
)

// authorizedFlag is bit 0 of the flags column. Flags are decoded here, at
// the storage boundary; everything above this package sees a bool.
const authorizedFlag uint32 = 1 << 0

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL trust-line store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection by accessing the underlying *sql.DB.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings
// into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// database/sql treats MaxIdleConns above MaxOpenConns as MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// encodeKey maps a line key onto its row identity. The issuer's own
// pseudo-line has no row, so encoding such a key is a usage error.
func encodeKey(op string, key domain.LineKey) (holderID, issuerID, currencyCode string, err error) {
	if key.Asset.IsNative() {
		return "", "", "", &domain.UsageError{Op: op, Reason: "native asset has no trust line"}
	}
	if key.IsIssuer() {
		return "", "", "", &domain.UsageError{Op: op, Reason: "issuer's own trust line is not storage-backed"}
	}
	return key.Holder.String(), key.Asset.Issuer.String(), key.Asset.Code.String(), nil
}

// encodeLine maps a holder line onto its row form.
func encodeLine(line *domain.HolderLine) schema.TrustLine {
	var flags uint32
	if line.Authorized {
		flags |= authorizedFlag
	}
	return schema.TrustLine{
		HolderID:     line.Holder.String(),
		IssuerID:     line.Asset.Issuer.String(),
		CurrencyCode: line.Asset.Code.String(),
		Limit:        line.Limit,
		Balance:      line.Balance,
		Flags:        flags,
	}
}

// decodeRow maps a row back onto a holder line, re-checking the entity
// invariants so storage corruption surfaces on the way in.
func decodeRow(row *schema.TrustLine) (*domain.HolderLine, error) {
	holder, err := domain.ParseAccountID(row.HolderID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode holder id: %w", err)
	}

	issuer, err := domain.ParseAccountID(row.IssuerID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode issuer id: %w", err)
	}

	code, err := domain.NewCurrencyCode(row.CurrencyCode)
	if err != nil {
		return nil, fmt.Errorf("failed to decode currency code: %w", err)
	}

	line := &domain.HolderLine{
		Holder:     holder,
		Asset:      domain.NewCreditAsset(code, issuer),
		Limit:      row.Limit,
		Balance:    row.Balance,
		Authorized: row.Flags&authorizedFlag != 0,
	}

	if err := line.Validate(); err != nil {
		return nil, fmt.Errorf("stored trust line violates invariants: %w", err)
	}

	return line, nil
}

// Exists checks whether a row for the key exists
func (s *pgStore) Exists(ctx context.Context, key domain.LineKey) (bool, error) {
	holderID, issuerID, currencyCode, err := encodeKey("exists", key)
	if err != nil {
		return false, err
	}

	var count int64
	err = s.db.WithContext(ctx).
		Model(&schema.TrustLine{}).
		Where("holder_id = ? AND issuer_id = ? AND currency_code = ?", holderID, issuerID, currencyCode).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check trust line existence: %w", err)
	}

	return count > 0, nil
}

// Load fetches the trust line for (holder, asset), synthesizing the issuer
// pseudo-line when the holder is the asset's issuer
func (s *pgStore) Load(ctx context.Context, holder domain.AccountID, asset domain.Asset) (domain.Line, error) {
	key := domain.LineKey{Holder: holder, Asset: asset}
	if !asset.IsNative() && key.IsIssuer() {
		return domain.NewIssuerLine(asset), nil
	}

	holderID, issuerID, currencyCode, err := encodeKey("load", key)
	if err != nil {
		return nil, err
	}

	var row schema.TrustLine
	err = s.db.WithContext(ctx).
		Where("holder_id = ? AND issuer_id = ? AND currency_code = ?", holderID, issuerID, currencyCode).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load trust line: %w", err)
	}

	line, err := decodeRow(&row)
	if err != nil {
		return nil, err
	}

	return line, nil
}

// LoadByHolder returns every trust line held by the account as a finite,
// restartable sequence
func (s *pgStore) LoadByHolder(ctx context.Context, holder domain.AccountID) iter.Seq2[*domain.HolderLine, error] {
	return func(yield func(*domain.HolderLine, error) bool) {
		rows, err := s.db.WithContext(ctx).
			Model(&schema.TrustLine{}).
			Where("holder_id = ?", holder.String()).
			Rows()
		if err != nil {
			yield(nil, fmt.Errorf("failed to query trust lines: %w", err))
			return
		}
		defer func() {
			_ = rows.Close()
		}()

		for rows.Next() {
			var row schema.TrustLine
			if err := s.db.ScanRows(rows, &row); err != nil {
				yield(nil, fmt.Errorf("failed to scan trust line: %w", err))
				return
			}

			line, err := decodeRow(&row)
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(line, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("failed to iterate trust lines: %w", err))
		}
	}
}

// IssuerHasOutstandingBalance reports whether any trust line for the issuer
// currently carries a positive balance
func (s *pgStore) IssuerHasOutstandingBalance(ctx context.Context, issuer domain.AccountID) (bool, error) {
	var exists bool
	err := s.db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM trust_lines WHERE issuer_id = ? AND balance > 0)", issuer.String()).
		Scan(&exists).Error
	if err != nil {
		return false, fmt.Errorf("failed to probe issuer liability: %w", err)
	}

	return exists, nil
}

// Add inserts a new trust line. The balance column takes its default of 0;
// only (holder, issuer, currency, limit, flags) are written.
func (s *pgStore) Add(ctx context.Context, line domain.Line, sink journal.Sink) error {
	holderLine, ok := line.(*domain.HolderLine)
	if !ok {
		// The issuer pseudo-line has no row to maintain.
		return nil
	}

	if holderLine.Key().IsIssuer() {
		return &domain.UsageError{Op: "add", Reason: "issuer's own trust line is not storage-backed"}
	}

	if err := holderLine.Validate(); err != nil {
		return err
	}

	row := encodeLine(holderLine)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Select("holder_id", "issuer_id", "currency_code", "limit", "flags").Create(&row)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return &domain.ConsistencyError{Op: "add trust line", Rows: 0}
			}
			return fmt.Errorf("failed to insert trust line: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return &domain.ConsistencyError{Op: "add trust line", Rows: res.RowsAffected}
		}

		return record(ctx, tx, sink, journal.Entry{
			Kind: journal.KindAdded,
			Key:  holderLine.Key(),
			Line: holderLine,
			At:   time.Now().UTC(),
		})
	})
}

// Change updates balance, limit, and flags of an existing row keyed by the
// line's triple
func (s *pgStore) Change(ctx context.Context, line domain.Line, sink journal.Sink) error {
	holderLine, ok := line.(*domain.HolderLine)
	if !ok {
		return nil
	}

	if holderLine.Key().IsIssuer() {
		return &domain.UsageError{Op: "change", Reason: "issuer's own trust line is not storage-backed"}
	}

	if err := holderLine.Validate(); err != nil {
		return err
	}

	row := encodeLine(holderLine)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&schema.TrustLine{}).
			Where("holder_id = ? AND issuer_id = ? AND currency_code = ?", row.HolderID, row.IssuerID, row.CurrencyCode).
			Select("balance", "limit", "flags").
			Updates(schema.TrustLine{Balance: row.Balance, Limit: row.Limit, Flags: row.Flags})
		if res.Error != nil {
			return fmt.Errorf("failed to update trust line: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return &domain.ConsistencyError{Op: "change trust line", Rows: res.RowsAffected}
		}

		return record(ctx, tx, sink, journal.Entry{
			Kind: journal.KindModified,
			Key:  holderLine.Key(),
			Line: holderLine,
			At:   time.Now().UTC(),
		})
	})
}

// Delete removes the row for the key
func (s *pgStore) Delete(ctx context.Context, key domain.LineKey, sink journal.Sink) error {
	holderID, issuerID, currencyCode, err := encodeKey("delete", key)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("holder_id = ? AND issuer_id = ? AND currency_code = ?", holderID, issuerID, currencyCode).
			Delete(&schema.TrustLine{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete trust line: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return &domain.ConsistencyError{Op: "delete trust line", Rows: res.RowsAffected}
		}

		return record(ctx, tx, sink, journal.Entry{
			Kind: journal.KindDeleted,
			Key:  key,
			At:   time.Now().UTC(),
		})
	})
}

func record(ctx context.Context, tx *gorm.DB, sink journal.Sink, entry journal.Entry) error {
	if sink == nil {
		return nil
	}
	if err := sink.Record(ctx, tx, entry); err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

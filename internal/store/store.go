package store

import (
	"context"
	"iter"

	"github.com/lightpoint/trustlines/internal/domain"
	"github.com/lightpoint/trustlines/internal/journal"
	"github.com/lightpoint/trustlines/internal/store/schema"
)

// Store defines the persistence contract for trust lines.
//
// Mutations run inside the ambient transaction scope of the database handle
// the store was built on; the store never begins or commits an outer
// transaction on the caller's behalf beyond the single unit of work each
// mutating call needs. Each successful mutation affects exactly one row and
// notifies the journal sink within the same transaction.
type Store interface {
	// Exists checks whether a row for the key exists. Querying the
	// issuer's own pseudo-line is a usage error, not a miss.
	Exists(ctx context.Context, key domain.LineKey) (bool, error)

	// Load fetches the trust line for (holder, asset). When the holder is
	// the asset's issuer, the pseudo-line is synthesized without touching
	// storage. A missing row yields (nil, nil).
	Load(ctx context.Context, holder domain.AccountID, asset domain.Asset) (domain.Line, error)

	// LoadByHolder returns every trust line held by the account as a
	// finite, restartable sequence; each range over it re-issues the query.
	LoadByHolder(ctx context.Context, holder domain.AccountID) iter.Seq2[*domain.HolderLine, error]

	// IssuerHasOutstandingBalance reports whether any trust line for the
	// issuer currently carries a positive balance.
	IssuerHasOutstandingBalance(ctx context.Context, issuer domain.AccountID) (bool, error)

	// Add inserts a new trust line with an implicit zero balance. The
	// issuer pseudo-line is silently skipped; a holder line keyed on its
	// own issuer is a usage error, never a row.
	Add(ctx context.Context, line domain.Line, sink journal.Sink) error

	// Change updates balance, limit, and flags of an existing row keyed by
	// the line's triple. The issuer pseudo-line is silently skipped; a
	// holder line keyed on its own issuer is a usage error.
	Change(ctx context.Context, line domain.Line, sink journal.Sink) error

	// Delete removes the row for the key. Deleting a key with no row is a
	// consistency error, not a silent success.
	Delete(ctx context.Context, key domain.LineKey, sink journal.Sink) error
}

// JournalStore defines the interface for reading the changes journal and
// persisting per-consumer cursors into it.
type JournalStore interface {
	// ListChanges reads journal entries past a cursor, oldest first.
	ListChanges(ctx context.Context, afterCursor int64, limit int) ([]schema.ChangesJournal, error)

	// GetJournalCursor retrieves the persisted bridge cursor for a consumer
	GetJournalCursor(ctx context.Context, consumer string) (int64, error)
	// SetJournalCursor stores the bridge cursor for a consumer
	SetJournalCursor(ctx context.Context, consumer string, cursor int64) error
}

// Package journal records every successful trust-line mutation so the wider
// ledger view stays consistent with storage. The store notifies a Sink inside
// the same transaction scope as the write itself.
package journal

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lightpoint/trustlines/internal/domain"
)

// Kind discriminates the journal entry variants.
type Kind string

const (
	// KindAdded records a newly inserted trust line
	KindAdded Kind = "added"
	// KindModified records an update to an existing trust line
	KindModified Kind = "modified"
	// KindDeleted records a removed trust line
	KindDeleted Kind = "deleted"
)

// Entry describes one successful mutation.
type Entry struct {
	Kind Kind
	Key  domain.LineKey
	// Line is the entity's state after the change; nil for deletes.
	Line *domain.HolderLine
	At   time.Time
}

// Sink receives one Entry per successful add/change/delete. Durable sinks
// write through tx so the journal participates in the caller's transaction;
// in-memory sinks ignore it. A Sink error aborts the enclosing transaction.
type Sink interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
}

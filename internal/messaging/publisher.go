package messaging

import (
	"context"

	"github.com/lightpoint/trustlines/internal/store/schema"
)

// Publisher defines the interface for publishing journal entries to a
// message broker.
type Publisher interface {
	// PublishChange publishes a single journal entry
	PublishChange(ctx context.Context, change schema.ChangesJournal) error
	// Close closes the connection
	Close()
}

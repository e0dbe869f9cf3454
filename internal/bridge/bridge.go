package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/lightpoint/trustlines/internal/logger"
	"github.com/lightpoint/trustlines/internal/messaging"
	"github.com/lightpoint/trustlines/internal/store"
	"github.com/lightpoint/trustlines/internal/store/schema"
)

// Config holds the configuration for the journal bridge
type Config struct {
	ConsumerName string
	PollInterval time.Duration
	BatchSize    int
}

// Bridge defines the interface for the journal bridge
type Bridge interface {
	// Run starts the bridge loop and blocks until ctx is canceled
	Run(ctx context.Context) error
}

type bridge struct {
	journal   store.JournalStore
	publisher messaging.Publisher
	config    Config
}

// NewBridge creates a new journal bridge. The bridge tails the changes
// journal past the last persisted cursor and forwards each entry to the
// message broker, advancing the cursor only after the whole batch went out.
func NewBridge(cfg Config, js store.JournalStore, pub messaging.Publisher) Bridge {
	return &bridge{
		journal:   js,
		publisher: pub,
		config:    cfg,
	}
}

// Run starts the journal bridge
func (b *bridge) Run(ctx context.Context) error {
	logger.Info("Starting journal bridge",
		zap.String("consumer", b.config.ConsumerName),
		zap.Duration("poll_interval", b.config.PollInterval),
		zap.Int("batch_size", b.config.BatchSize),
	)

	ticker := time.NewTicker(b.config.PollInterval)
	defer ticker.Stop()

	for {
		// Drain everything currently in the journal before sleeping.
		for {
			n, err := b.forwardBatch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.ErrorCtx(ctx, err, zap.String("message", "Failed to forward journal batch"))
				break
			}
			if n == 0 {
				break
			}
		}

		select {
		case <-ctx.Done():
			logger.Info("Journal bridge stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// forwardBatch publishes the next batch of journal entries and advances the
// persisted cursor. Returns the number of entries forwarded.
func (b *bridge) forwardBatch(ctx context.Context) (int, error) {
	cursor, err := b.journal.GetJournalCursor(ctx, b.config.ConsumerName)
	if err != nil {
		return 0, fmt.Errorf("failed to load journal cursor: %w", err)
	}

	changes, err := b.journal.ListChanges(ctx, cursor, b.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list changes: %w", err)
	}
	if len(changes) == 0 {
		return 0, nil
	}

	for _, change := range changes {
		if err := b.publishWithRetry(ctx, change); err != nil {
			return 0, fmt.Errorf("failed to publish change %d: %w", change.Cursor, err)
		}
	}

	last := changes[len(changes)-1].Cursor
	if err := b.journal.SetJournalCursor(ctx, b.config.ConsumerName, last); err != nil {
		return 0, fmt.Errorf("failed to advance journal cursor: %w", err)
	}

	logger.InfoCtx(ctx, "Forwarded journal batch",
		zap.Int("count", len(changes)),
		zap.Int64("cursor", last),
	)

	return len(changes), nil
}

// publishWithRetry publishes a single journal entry with exponential backoff
func (b *bridge) publishWithRetry(ctx context.Context, change schema.ChangesJournal) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 5 * time.Minute
	bo.RandomizationFactor = 0.5 // Add jitter to prevent thundering herd

	backoffWithContext := backoff.WithContext(bo, ctx)

	operation := func() error {
		return b.publisher.PublishChange(ctx, change)
	}

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Publish failed, retrying",
			zap.Error(err),
			zap.Int64("cursor", change.Cursor),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration),
		)
	}

	if err := backoff.RetryNotify(operation, backoffWithContext, notifyOnError); err != nil {
		return fmt.Errorf("failed after %d attempts: %w", attemptCount, err)
	}

	return nil
}

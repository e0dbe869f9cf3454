package journal

import (
	"context"

	"gorm.io/gorm"

	"github.com/lightpoint/trustlines/internal/domain"
)

// Delta is an in-memory sink that tracks the net effect of one ledger-apply
// pass per trust-line key. It assumes the single-writer model: no two
// mutations to the same key are recorded concurrently.
type Delta struct {
	added    map[domain.LineKey]*domain.HolderLine
	modified map[domain.LineKey]*domain.HolderLine
	deleted  map[domain.LineKey]struct{}
}

// NewDelta creates an empty delta for a new batch.
func NewDelta() *Delta {
	return &Delta{
		added:    make(map[domain.LineKey]*domain.HolderLine),
		modified: make(map[domain.LineKey]*domain.HolderLine),
		deleted:  make(map[domain.LineKey]struct{}),
	}
}

// Record folds the entry into the batch's net delta. An entry added and then
// modified stays an add with the newer state; an entry added and then deleted
// within the batch cancels out entirely.
func (d *Delta) Record(_ context.Context, _ *gorm.DB, entry Entry) error {
	key := entry.Key

	switch entry.Kind {
	case KindAdded:
		line := *entry.Line
		d.added[key] = &line
		delete(d.deleted, key)
	case KindModified:
		line := *entry.Line
		if _, ok := d.added[key]; ok {
			d.added[key] = &line
		} else {
			d.modified[key] = &line
		}
	case KindDeleted:
		if _, ok := d.added[key]; ok {
			delete(d.added, key)
			return nil
		}
		delete(d.modified, key)
		d.deleted[key] = struct{}{}
	}

	return nil
}

// Added returns the entries created during the batch.
func (d *Delta) Added() []*domain.HolderLine {
	return linesOf(d.added)
}

// Modified returns the entries updated during the batch.
func (d *Delta) Modified() []*domain.HolderLine {
	return linesOf(d.modified)
}

// Deleted returns the keys removed during the batch.
func (d *Delta) Deleted() []domain.LineKey {
	keys := make([]domain.LineKey, 0, len(d.deleted))
	for key := range d.deleted {
		keys = append(keys, key)
	}
	return keys
}

func linesOf(m map[domain.LineKey]*domain.HolderLine) []*domain.HolderLine {
	lines := make([]*domain.HolderLine, 0, len(m))
	for _, line := range m {
		lines = append(lines, line)
	}
	return lines
}

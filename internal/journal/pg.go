package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/lightpoint/trustlines/internal/store/schema"
)

type pgJournal struct{}

// NewPGJournal creates a sink that appends to the changes_journal table
// through the transaction handle it is given, so journal rows commit and
// roll back together with the mutation they describe.
func NewPGJournal() Sink {
	return pgJournal{}
}

// Record appends one changes_journal row for the entry.
func (pgJournal) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	row := schema.ChangesJournal{
		SubjectType: schema.SubjectTypeTrustLine,
		SubjectID:   entry.Key.String(),
		ChangeType:  changeTypeFor(entry.Kind),
		ChangedAt:   entry.At,
	}

	if entry.Line != nil {
		meta := schema.TrustLineChangeMeta{
			Holder:     entry.Line.Holder.String(),
			Issuer:     entry.Line.Asset.Issuer.String(),
			Currency:   entry.Line.Asset.Code.String(),
			Limit:      entry.Line.Limit,
			Balance:    entry.Line.Balance,
			Authorized: entry.Line.Authorized,
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal change meta: %w", err)
		}
		row.Meta = metaJSON
	}

	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create change journal entry: %w", err)
	}

	return nil
}

func changeTypeFor(kind Kind) schema.ChangeType {
	switch kind {
	case KindAdded:
		return schema.ChangeTypeAdded
	case KindModified:
		return schema.ChangeTypeModified
	default:
		return schema.ChangeTypeDeleted
	}
}

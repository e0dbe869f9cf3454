package schema

import (
	"time"

	"gorm.io/datatypes"
)

// ChangeType identifies what happened to the subject entity.
type ChangeType string

const (
	// ChangeTypeAdded indicates a new entry was inserted
	ChangeTypeAdded ChangeType = "added"
	// ChangeTypeModified indicates an existing entry was updated
	ChangeTypeModified ChangeType = "modified"
	// ChangeTypeDeleted indicates an entry was removed
	ChangeTypeDeleted ChangeType = "deleted"
)

// SubjectType represents the kind of ledger entity that was changed
type SubjectType string

const (
	// SubjectTypeTrustLine indicates a change to a trust line row
	SubjectTypeTrustLine SubjectType = "trust_line"
)

// ChangesJournal represents the changes_journal table - the ledger-wide
// journal of added/modified/deleted entries, written in the same
// transaction as the change itself
type ChangesJournal struct {
	// Cursor is an auto-incrementing sequence number for ordering and pagination
	Cursor int64 `gorm:"column:cursor;primaryKey;autoIncrement"`
	// SubjectType identifies what kind of entity changed
	SubjectType SubjectType `gorm:"column:subject_type;not null;type:text"`
	// SubjectID is the canonical key of the changed entity
	SubjectID string `gorm:"column:subject_id;not null;type:text"`
	// ChangeType records whether the entry was added, modified, or deleted
	ChangeType ChangeType `gorm:"column:change_type;not null;type:text"`
	// ChangedAt is the timestamp when the change occurred
	ChangedAt time.Time `gorm:"column:changed_at;not null;default:now();type:timestamptz"`
	// Meta carries the entry's state after the change as JSON (empty for deletes)
	Meta datatypes.JSON `gorm:"column:meta;type:jsonb"`
}

// TableName specifies the table name for the ChangesJournal model
func (ChangesJournal) TableName() string {
	return "changes_journal"
}

// TrustLineChangeMeta is the jsonb payload recorded for trust-line changes.
type TrustLineChangeMeta struct {
	Holder     string `json:"holder"`
	Issuer     string `json:"issuer"`
	Currency   string `json:"currency"`
	Limit      int64  `json:"limit"`
	Balance    int64  `json:"balance"`
	Authorized bool   `json:"authorized"`
}

package dto

import (
	"encoding/json"
	"time"

	"github.com/lightpoint/trustlines/internal/domain"
	"github.com/lightpoint/trustlines/internal/store/schema"
)

// TrustLine is the wire representation of a trust line.
type TrustLine struct {
	Holder     string `json:"holder"`
	Issuer     string `json:"issuer"`
	Currency   string `json:"currency"`
	Limit      int64  `json:"limit"`
	Balance    int64  `json:"balance"`
	Authorized bool   `json:"authorized"`
	// IssuerLine marks the synthetic unbounded line an issuer holds for
	// its own asset.
	IssuerLine bool `json:"issuer_line,omitempty"`
}

// FromLine maps either trust-line variant onto the wire form.
func FromLine(line domain.Line) TrustLine {
	switch l := line.(type) {
	case *domain.HolderLine:
		return TrustLine{
			Holder:     l.Holder.String(),
			Issuer:     l.Asset.Issuer.String(),
			Currency:   l.Asset.Code.String(),
			Limit:      l.Limit,
			Balance:    l.Balance,
			Authorized: l.Authorized,
		}
	default:
		key := line.Key()
		return TrustLine{
			Holder:     key.Holder.String(),
			Issuer:     key.Asset.Issuer.String(),
			Currency:   key.Asset.Code.String(),
			Limit:      line.MaxAmountReceive(),
			Balance:    0,
			Authorized: true,
			IssuerLine: true,
		}
	}
}

// TrustLinesResponse wraps a holder's trust lines.
type TrustLinesResponse struct {
	TrustLines []TrustLine `json:"trust_lines"`
}

// IssuerOutstandingResponse reports the issuer-liability probe.
type IssuerOutstandingResponse struct {
	Issuer      string `json:"issuer"`
	Outstanding bool   `json:"outstanding"`
}

// Change is the wire representation of one journal entry.
type Change struct {
	Cursor      int64           `json:"cursor"`
	SubjectType string          `json:"subject_type"`
	SubjectID   string          `json:"subject_id"`
	ChangeType  string          `json:"change_type"`
	ChangedAt   time.Time       `json:"changed_at"`
	Meta        json.RawMessage `json:"meta,omitempty"`
}

// FromJournalRow maps a journal row onto the wire form.
func FromJournalRow(row schema.ChangesJournal) Change {
	return Change{
		Cursor:      row.Cursor,
		SubjectType: string(row.SubjectType),
		SubjectID:   row.SubjectID,
		ChangeType:  string(row.ChangeType),
		ChangedAt:   row.ChangedAt,
		Meta:        json.RawMessage(row.Meta),
	}
}

// ChangesResponse wraps a page of journal entries. NextCursor is the anchor
// for the next page, 0 when the page was empty.
type ChangesResponse struct {
	Changes    []Change `json:"changes"`
	NextCursor int64    `json:"next_cursor,omitempty"`
}

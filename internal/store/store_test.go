package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lightpoint/trustlines/internal/domain"
	"github.com/lightpoint/trustlines/internal/journal"
	"github.com/lightpoint/trustlines/internal/store/schema"
)

// InitDB creates a store (and the raw handle backing it) for one test; the
// harness rolls everything back afterwards.
type InitDB func(t *testing.T) (Store, *gorm.DB)

// =============================================================================
// Test Data Builders
// =============================================================================

func accountID(fill byte) domain.AccountID {
	var id domain.AccountID
	for i := range id {
		id[i] = fill
	}
	return id
}

func creditAsset(t *testing.T, code string, issuer domain.AccountID) domain.Asset {
	t.Helper()
	c, err := domain.NewCurrencyCode(code)
	require.NoError(t, err)
	return domain.NewCreditAsset(c, issuer)
}

func buildTestLine(t *testing.T, holder, issuer domain.AccountID, code string, limit int64) *domain.HolderLine {
	t.Helper()
	return domain.NewHolderLine(holder, creditAsset(t, code, issuer), limit, true)
}

func journalRows(t *testing.T, db *gorm.DB) []schema.ChangesJournal {
	t.Helper()
	var rows []schema.ChangesJournal
	require.NoError(t, db.Order(`"cursor" ASC`).Find(&rows).Error)
	return rows
}

// mustLoadHolderLine loads a line and asserts it is a storage-backed one.
func mustLoadHolderLine(t *testing.T, s Store, holder domain.AccountID, asset domain.Asset) *domain.HolderLine {
	t.Helper()
	line, err := s.Load(context.Background(), holder, asset)
	require.NoError(t, err)
	require.NotNil(t, line)
	holderLine, ok := line.(*domain.HolderLine)
	require.True(t, ok)
	return holderLine
}

// RunStoreTests runs the full store suite against an implementation
func RunStoreTests(t *testing.T, initDB InitDB) {
	t.Run("AddAndLoad", func(t *testing.T) { testAddAndLoad(t, initDB) })
	t.Run("AddRejectsInvalid", func(t *testing.T) { testAddRejectsInvalid(t, initDB) })
	t.Run("AddDuplicate", func(t *testing.T) { testAddDuplicate(t, initDB) })
	t.Run("IssuerPseudoLine", func(t *testing.T) { testIssuerPseudoLine(t, initDB) })
	t.Run("Exists", func(t *testing.T) { testExists(t, initDB) })
	t.Run("LoadByHolder", func(t *testing.T) { testLoadByHolder(t, initDB) })
	t.Run("IssuerHasOutstandingBalance", func(t *testing.T) { testIssuerHasOutstandingBalance(t, initDB) })
	t.Run("Change", func(t *testing.T) { testChange(t, initDB) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, initDB) })
	t.Run("Journal", func(t *testing.T) { testJournal(t, initDB) })
	t.Run("JournalCursor", func(t *testing.T) { testJournalCursor(t, initDB) })
	t.Run("ListChanges", func(t *testing.T) { testListChanges(t, initDB) })
}

func testAddAndLoad(t *testing.T, initDB InitDB) {
	s, _ := initDB(t)
	ctx := context.Background()

	holder := accountID(0x01)
	issuer := accountID(0x02)
	line := buildTestLine(t, holder, issuer, "USD", 1000)

	require.NoError(t, s.Add(ctx, line, nil))

	t.Run("round trip preserves limit, balance, and flags", func(t *testing.T) {
		loaded := mustLoadHolderLine(t, s, holder, line.Asset)
		assert.Equal(t, holder, loaded.Holder)
		assert.Equal(t, line.Asset, loaded.Asset)
		assert.Equal(t, int64(1000), loaded.Limit)
		assert.Equal(t, int64(0), loaded.Balance)
		assert.True(t, loaded.Authorized)
	})

	t.Run("unauthorized flag round trips too", func(t *testing.T) {
		frozen := buildTestLine(t, holder, issuer, "EUR", 500)
		frozen.SetAuthorized(false)
		require.NoError(t, s.Add(ctx, frozen, nil))

		loaded := mustLoadHolderLine(t, s, holder, frozen.Asset)
		assert.False(t, loaded.Authorized)
	})

	t.Run("missing key is a normal not-found result", func(t *testing.T) {
		absent, err := s.Load(ctx, accountID(0x0f), line.Asset)
		require.NoError(t, err)
		assert.Nil(t, absent)
	})

	t.Run("balance column is implicitly zero on insert", func(t *testing.T) {
		// A working copy with a non-zero balance still inserts as zero;
		// balances only move through Change.
		dirty := buildTestLine(t, accountID(0x03), issuer, "USD", 1000)
		dirty.Balance = 700
		require.NoError(t, s.Add(ctx, dirty, nil))

		loaded := mustLoadHolderLine(t, s, dirty.Holder, dirty.Asset)
		assert.Equal(t, int64(0), loaded.Balance)
	})
}

func testAddRejectsInvalid(t *testing.T, initDB InitDB) {
	s, db := initDB(t)
	ctx := context.Background()

	holder := accountID(0x01)
	issuer := accountID(0x02)

	tests := []struct {
		name string
		line *domain.HolderLine
	}{
		{"native asset", &domain.HolderLine{Holder: holder, Asset: domain.NativeAsset(), Limit: 100}},
		{"negative balance", &domain.HolderLine{Holder: holder, Asset: creditAsset(t, "USD", issuer), Limit: 100, Balance: -1}},
		{"balance above limit", &domain.HolderLine{Holder: holder, Asset: creditAsset(t, "USD", issuer), Limit: 100, Balance: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Add(ctx, tt.line, nil)
			require.Error(t, err)
			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)

			err = s.Change(ctx, tt.line, nil)
			require.Error(t, err)
			assert.ErrorAs(t, err, &verr)
		})
	}

	// Nothing reached storage or the journal.
	var count int64
	require.NoError(t, db.Model(&schema.TrustLine{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, journalRows(t, db))
}

func testAddDuplicate(t *testing.T, initDB InitDB) {
	s, _ := initDB(t)
	ctx := context.Background()

	line := buildTestLine(t, accountID(0x01), accountID(0x02), "USD", 1000)
	require.NoError(t, s.Add(ctx, line, nil))

	err := s.Add(ctx, line, nil)
	require.Error(t, err)
	var cerr *domain.ConsistencyError
	assert.ErrorAs(t, err, &cerr)
}

func testIssuerPseudoLine(t *testing.T, initDB InitDB) {
	s, db := initDB(t)
	ctx := context.Background()

	issuer := accountID(0x02)
	asset := creditAsset(t, "USD", issuer)

	t.Run("load synthesizes the pseudo-line without a row", func(t *testing.T) {
		line, err := s.Load(ctx, issuer, asset)
		require.NoError(t, err)
		require.NotNil(t, line)

		issuerLine, ok := line.(domain.IssuerLine)
		require.True(t, ok)
		assert.True(t, issuerLine.IsAuthorized())
		assert.True(t, issuerLine.AddBalance(1<<40))
	})

	t.Run("add and change are silent no-ops", func(t *testing.T) {
		require.NoError(t, s.Add(ctx, domain.NewIssuerLine(asset), journal.NewPGJournal()))
		require.NoError(t, s.Change(ctx, domain.NewIssuerLine(asset), journal.NewPGJournal()))

		var count int64
		require.NoError(t, db.Model(&schema.TrustLine{}).Count(&count).Error)
		assert.Zero(t, count)
		assert.Empty(t, journalRows(t, db))
	})

	t.Run("holder line keyed on its own issuer is a usage error", func(t *testing.T) {
		// A working copy that dresses the issuer up as an ordinary holder
		// must be rejected, not persisted as a phantom row the read path
		// could never reach.
		selfLine := domain.NewHolderLine(issuer, asset, 100, true)

		err := s.Add(ctx, selfLine, journal.NewPGJournal())
		require.Error(t, err)
		var uerr *domain.UsageError
		assert.ErrorAs(t, err, &uerr)

		err = s.Change(ctx, selfLine, journal.NewPGJournal())
		require.Error(t, err)
		assert.ErrorAs(t, err, &uerr)

		var count int64
		require.NoError(t, db.Model(&schema.TrustLine{}).Count(&count).Error)
		assert.Zero(t, count)
		assert.Empty(t, journalRows(t, db))
	})

	t.Run("delete by issuer key is a usage error", func(t *testing.T) {
		err := s.Delete(ctx, domain.LineKey{Holder: issuer, Asset: asset}, nil)
		require.Error(t, err)
		var uerr *domain.UsageError
		assert.ErrorAs(t, err, &uerr)
	})
}

func testExists(t *testing.T, initDB InitDB) {
	s, _ := initDB(t)
	ctx := context.Background()

	holder := accountID(0x01)
	issuer := accountID(0x02)
	line := buildTestLine(t, holder, issuer, "USD", 1000)
	require.NoError(t, s.Add(ctx, line, nil))

	t.Run("present", func(t *testing.T) {
		ok, err := s.Exists(ctx, line.Key())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("absent", func(t *testing.T) {
		ok, err := s.Exists(ctx, domain.LineKey{Holder: accountID(0x0f), Asset: line.Asset})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("issuer key is a usage error, not a miss", func(t *testing.T) {
		_, err := s.Exists(ctx, domain.LineKey{Holder: issuer, Asset: line.Asset})
		require.Error(t, err)
		var uerr *domain.UsageError
		assert.ErrorAs(t, err, &uerr)
	})
}

func testLoadByHolder(t *testing.T, initDB InitDB) {
	s, _ := initDB(t)
	ctx := context.Background()

	holder := accountID(0x01)
	other := accountID(0x03)
	issuerA := accountID(0x02)
	issuerB := accountID(0x04)

	require.NoError(t, s.Add(ctx, buildTestLine(t, holder, issuerA, "USD", 100), nil))
	require.NoError(t, s.Add(ctx, buildTestLine(t, holder, issuerA, "EUR", 200), nil))
	require.NoError(t, s.Add(ctx, buildTestLine(t, holder, issuerB, "USD", 300), nil))
	require.NoError(t, s.Add(ctx, buildTestLine(t, other, issuerA, "USD", 400), nil))

	collect := func() []*domain.HolderLine {
		var lines []*domain.HolderLine
		for line, err := range s.LoadByHolder(ctx, holder) {
			require.NoError(t, err)
			lines = append(lines, line)
		}
		return lines
	}

	lines := collect()
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Equal(t, holder, line.Holder)
	}

	t.Run("sequence is restartable", func(t *testing.T) {
		assert.Len(t, collect(), 3)
	})

	t.Run("early break is safe", func(t *testing.T) {
		var seen int
		for _, err := range s.LoadByHolder(ctx, holder) {
			require.NoError(t, err)
			seen++
			break
		}
		assert.Equal(t, 1, seen)

		// And the sequence can still be ranged again afterwards.
		assert.Len(t, collect(), 3)
	})

	t.Run("no lines yields an empty sequence", func(t *testing.T) {
		for line, err := range s.LoadByHolder(ctx, accountID(0x7f)) {
			t.Fatalf("unexpected element %v, %v", line, err)
		}
	})
}

func testIssuerHasOutstandingBalance(t *testing.T, initDB InitDB) {
	s, _ := initDB(t)
	ctx := context.Background()

	holder := accountID(0x01)
	issuer := accountID(0x02)
	line := buildTestLine(t, holder, issuer, "USD", 1000)
	require.NoError(t, s.Add(ctx, line, nil))

	outstanding, err := s.IssuerHasOutstandingBalance(ctx, issuer)
	require.NoError(t, err)
	assert.False(t, outstanding, "zero balances are not outstanding")

	require.True(t, line.AddBalance(250))
	require.NoError(t, s.Change(ctx, line, nil))

	outstanding, err = s.IssuerHasOutstandingBalance(ctx, issuer)
	require.NoError(t, err)
	assert.True(t, outstanding)

	outstanding, err = s.IssuerHasOutstandingBalance(ctx, accountID(0x7f))
	require.NoError(t, err)
	assert.False(t, outstanding, "unknown issuer has no liability")
}

func testChange(t *testing.T, initDB InitDB) {
	s, db := initDB(t)
	ctx := context.Background()

	holder := accountID(0x01)
	issuer := accountID(0x02)
	line := buildTestLine(t, holder, issuer, "USD", 1000)
	require.NoError(t, s.Add(ctx, line, nil))

	t.Run("updates balance, limit, and flags in place", func(t *testing.T) {
		require.True(t, line.AddBalance(500))
		line.Limit = 2000
		line.SetAuthorized(false)

		require.NoError(t, s.Change(ctx, line, nil))

		loaded := mustLoadHolderLine(t, s, holder, line.Asset)
		assert.Equal(t, int64(500), loaded.Balance)
		assert.Equal(t, int64(2000), loaded.Limit)
		assert.False(t, loaded.Authorized)

		// The key triple is untouched: still exactly one row.
		var count int64
		require.NoError(t, db.Model(&schema.TrustLine{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("missing row is a consistency error", func(t *testing.T) {
		ghost := buildTestLine(t, accountID(0x0f), issuer, "USD", 100)
		err := s.Change(ctx, ghost, nil)
		require.Error(t, err)
		var cerr *domain.ConsistencyError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, int64(0), cerr.Rows)
	})
}

func testDelete(t *testing.T, initDB InitDB) {
	s, _ := initDB(t)
	ctx := context.Background()

	line := buildTestLine(t, accountID(0x01), accountID(0x02), "USD", 1000)
	require.NoError(t, s.Add(ctx, line, nil))

	require.NoError(t, s.Delete(ctx, line.Key(), nil))

	loaded, err := s.Load(ctx, line.Holder, line.Asset)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	t.Run("deleting a missing key is a consistency error", func(t *testing.T) {
		err := s.Delete(ctx, line.Key(), nil)
		require.Error(t, err)
		var cerr *domain.ConsistencyError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, int64(0), cerr.Rows)
	})
}

func testJournal(t *testing.T, initDB InitDB) {
	s, db := initDB(t)
	ctx := context.Background()
	sink := journal.NewPGJournal()

	line := buildTestLine(t, accountID(0x01), accountID(0x02), "USD", 1000)

	require.NoError(t, s.Add(ctx, line, sink))

	require.True(t, line.AddBalance(123))
	require.NoError(t, s.Change(ctx, line, sink))

	require.NoError(t, s.Delete(ctx, line.Key(), sink))

	rows := journalRows(t, db)
	require.Len(t, rows, 3)

	assert.Equal(t, schema.ChangeTypeAdded, rows[0].ChangeType)
	assert.Equal(t, schema.ChangeTypeModified, rows[1].ChangeType)
	assert.Equal(t, schema.ChangeTypeDeleted, rows[2].ChangeType)

	for _, row := range rows {
		assert.Equal(t, schema.SubjectTypeTrustLine, row.SubjectType)
		assert.Equal(t, line.Key().String(), row.SubjectID)
		assert.WithinDuration(t, time.Now().UTC(), row.ChangedAt, time.Minute)
	}

	var meta schema.TrustLineChangeMeta
	require.NoError(t, json.Unmarshal(rows[1].Meta, &meta))
	assert.Equal(t, int64(123), meta.Balance)
	assert.Equal(t, int64(1000), meta.Limit)
	assert.True(t, meta.Authorized)
	assert.Equal(t, "USD", meta.Currency)

	assert.Empty(t, rows[2].Meta, "deletes carry no meta")

	t.Run("in-memory delta sees the same entries", func(t *testing.T) {
		delta := journal.NewDelta()
		other := buildTestLine(t, accountID(0x05), accountID(0x02), "EUR", 10)
		require.NoError(t, s.Add(ctx, other, delta))
		require.NoError(t, s.Change(ctx, other, delta))

		require.Len(t, delta.Added(), 1)
		assert.Empty(t, delta.Modified(), "add then change folds into the add")
	})
}

func testJournalCursor(t *testing.T, initDB InitDB) {
	_, db := initDB(t)
	js := NewJournalStore(db)
	ctx := context.Background()

	cursor, err := js.GetJournalCursor(ctx, "bridge")
	require.NoError(t, err)
	assert.Zero(t, cursor, "missing cursor starts from the beginning")

	require.NoError(t, js.SetJournalCursor(ctx, "bridge", 42))

	cursor, err = js.GetJournalCursor(ctx, "bridge")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor)

	// Cursors are per consumer.
	cursor, err = js.GetJournalCursor(ctx, "other")
	require.NoError(t, err)
	assert.Zero(t, cursor)
}

func testListChanges(t *testing.T, initDB InitDB) {
	s, db := initDB(t)
	js := NewJournalStore(db)
	ctx := context.Background()
	sink := journal.NewPGJournal()

	issuer := accountID(0x02)
	for _, fill := range []byte{0x11, 0x12, 0x13} {
		require.NoError(t, s.Add(ctx, buildTestLine(t, accountID(fill), issuer, "USD", 100), sink))
	}

	all, err := js.ListChanges(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Cursors are strictly increasing and pagination resumes past them.
	assert.Less(t, all[0].Cursor, all[1].Cursor)
	assert.Less(t, all[1].Cursor, all[2].Cursor)

	rest, err := js.ListChanges(ctx, all[0].Cursor, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, all[1].Cursor, rest[0].Cursor)

	limited, err := js.ListChanges(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

package quota

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nugget/searchhub/internal/settings"
)

func testStore(t *testing.T) *settings.Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	s, err := settings.NewStoreWithDB(db)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordUseAndRemaining(t *testing.T) {
	l := NewLedger(testStore(t), nil)

	if got := l.Remaining("brave", 10); got != 10 {
		t.Errorf("expected 10 remaining, got %d", got)
	}
	l.RecordUse("brave")
	l.RecordUse("brave")
	l.RecordUse("brave")
	if got := l.Count("brave"); got != 3 {
		t.Errorf("expected count 3, got %d", got)
	}
	if got := l.Remaining("brave", 10); got != 7 {
		t.Errorf("expected 7 remaining, got %d", got)
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	l := NewLedger(nil, nil)

	l.RecordUse("brave")
	l.RecordUse("brave")
	if got := l.Remaining("brave", 1); got != 0 {
		t.Errorf("expected 0 remaining, got %d", got)
	}
}

func TestPersistenceAcrossRestart(t *testing.T) {
	store := testStore(t)

	l := NewLedger(store, nil)
	l.RecordUse("brave")
	l.RecordUse("brave")
	l.RecordUse("searxng")

	// Simulate a process restart by building a fresh ledger from the
	// same store.
	l2 := NewLedger(store, nil)
	if got := l2.Count("brave"); got != 2 {
		t.Errorf("expected brave count 2 after restart, got %d", got)
	}
	if got := l2.Count("searxng"); got != 1 {
		t.Errorf("expected searxng count 1 after restart, got %d", got)
	}
	if got := l2.Total("brave"); got != 2 {
		t.Errorf("expected brave total 2 after restart, got %d", got)
	}
}

func TestMonthRollover(t *testing.T) {
	store := testStore(t)
	l := NewLedger(store, nil)

	now := time.Date(2026, time.September, 15, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.RecordUse("brave")
	l.RecordUse("brave")
	if got := l.Month(); got != "2026-09" {
		t.Fatalf("expected month 2026-09, got %q", got)
	}

	// Advance the wall clock past the month boundary. Any ledger
	// operation must reset the counters before processing.
	now = time.Date(2026, time.October, 1, 0, 0, 1, 0, time.UTC)

	if got := l.Count("brave"); got != 0 {
		t.Errorf("expected count reset to 0 after rollover, got %d", got)
	}
	if got := l.Month(); got != "2026-10" {
		t.Errorf("expected month stamp 2026-10, got %q", got)
	}

	// Totals are all-time and survive the rollover.
	if got := l.Total("brave"); got != 2 {
		t.Errorf("expected total 2 after rollover, got %d", got)
	}

	// The reset state must have been persisted.
	l2 := NewLedger(store, nil)
	l2.now = func() time.Time { return now }
	if got := l2.Count("brave"); got != 0 {
		t.Errorf("expected persisted count 0 after rollover, got %d", got)
	}
}

func TestRolloverBeforeIncrement(t *testing.T) {
	l := NewLedger(nil, nil)

	now := time.Date(2026, time.August, 31, 23, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.RecordUse("brave")

	now = time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	l.RecordUse("brave")

	// The August use must not carry into September's count.
	if got := l.Count("brave"); got != 1 {
		t.Errorf("expected count 1 in new month, got %d", got)
	}
}

func TestNilStoreIsInMemoryOnly(t *testing.T) {
	l := NewLedger(nil, nil)
	l.RecordUse("searxng")
	if got := l.Count("searxng"); got != 1 {
		t.Errorf("expected in-memory count 1, got %d", got)
	}
}

func TestSnapshot(t *testing.T) {
	l := NewLedger(nil, nil)
	l.RecordUse("brave")

	snap := l.Snapshot()
	if snap["brave_month_count"] != "1" {
		t.Errorf("expected brave_month_count 1, got %q", snap["brave_month_count"])
	}
	if snap["current_month"] == "" {
		t.Error("expected current_month in snapshot")
	}
}

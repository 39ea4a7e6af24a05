// Package quota tracks per-provider search API usage against monthly
// limits. Counters live in memory and are written through to the
// settings store on every mutation, so usage accounting survives
// restarts. Counters reset when the calendar month advances.
//
// Persistence failures never block a search: quota tracking degrades
// to best-effort and the in-memory state stays authoritative for the
// rest of the process lifetime.
package quota

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nugget/searchhub/internal/settings"
)

const namespace = "quota"

// keyMonth stores the year-month stamp the monthly counters belong to.
const keyMonth = "current_month"

// Ledger tracks usage counts per provider. All methods are safe for
// concurrent use; the month-rollover check runs under the same lock
// as every read and increment, so an interleaved rollover can never
// lose or double-count a use.
type Ledger struct {
	store  *settings.Store
	logger *slog.Logger

	mu     sync.Mutex
	month  string           // year-month stamp, e.g. "2026-09"
	counts map[string]int   // per-provider count this month
	totals map[string]int64 // per-provider all-time count

	now func() time.Time // injectable for rollover boundary tests
}

// NewLedger creates a ledger, loading any persisted counters from the
// settings store. A nil store is allowed and leaves the ledger purely
// in-memory.
func NewLedger(store *settings.Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		store:  store,
		logger: logger.With("component", "quota"),
		counts: make(map[string]int),
		totals: make(map[string]int64),
		now:    time.Now,
	}
	l.load()
	return l
}

// monthStamp formats t as a year-month stamp.
func monthStamp(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func (l *Ledger) load() {
	if l.store == nil {
		l.month = monthStamp(l.now())
		return
	}

	all, err := l.store.All(namespace)
	if err != nil {
		l.logger.Warn("failed to load quota state, starting fresh", "error", err)
		l.month = monthStamp(l.now())
		return
	}

	l.month = all[keyMonth]
	if l.month == "" {
		l.month = monthStamp(l.now())
	}
	for k, v := range all {
		switch {
		case k == keyMonth:
		case strings.HasSuffix(k, "_month_count"):
			n, err := strconv.Atoi(v)
			if err != nil {
				continue
			}
			l.counts[strings.TrimSuffix(k, "_month_count")] = n
		case strings.HasSuffix(k, "_total"):
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				continue
			}
			l.totals[strings.TrimSuffix(k, "_total")] = n
		}
	}
}

// checkRollover zeroes all monthly counters when the wall-clock month
// has advanced past the stored stamp. Callers must hold l.mu. It runs
// before every read or write so no stale-month counts leak into a new
// month.
func (l *Ledger) checkRollover() {
	current := monthStamp(l.now())
	if current == l.month {
		return
	}

	l.logger.Info("quota month rollover", "from", l.month, "to", current)
	for provider := range l.counts {
		l.counts[provider] = 0
		l.persist(provider+"_month_count", "0")
	}
	l.month = current
	l.persist(keyMonth, current)
}

// persist writes one key through to the settings store. Failures are
// logged and swallowed — quota tracking must never block a search.
func (l *Ledger) persist(key, value string) {
	if l.store == nil {
		return
	}
	if err := l.store.Set(namespace, key, value); err != nil {
		l.logger.Warn("failed to persist quota counter", "key", key, "error", err)
	}
}

// RecordUse increments the monthly and all-time counters for a
// provider and persists both.
func (l *Ledger) RecordUse(provider string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkRollover()

	l.counts[provider]++
	l.totals[provider]++
	l.persist(provider+"_month_count", strconv.Itoa(l.counts[provider]))
	l.persist(provider+"_total", strconv.FormatInt(l.totals[provider], 10))
}

// Remaining returns max(0, limit - count) for the current month.
func (l *Ledger) Remaining(provider string, limit int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkRollover()

	remaining := limit - l.counts[provider]
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Count returns the provider's usage count for the current month.
func (l *Ledger) Count(provider string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkRollover()
	return l.counts[provider]
}

// Total returns the provider's all-time usage count.
func (l *Ledger) Total(provider string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkRollover()
	return l.totals[provider]
}

// Month returns the year-month stamp the current counters belong to.
func (l *Ledger) Month() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkRollover()
	return l.month
}

// Snapshot returns a human-readable summary of all counters, for the
// CLI and the quota API endpoint.
func (l *Ledger) Snapshot() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkRollover()

	out := map[string]string{keyMonth: l.month}
	for p, n := range l.counts {
		out[p+"_month_count"] = strconv.Itoa(n)
	}
	for p, n := range l.totals {
		out[p+"_total"] = fmt.Sprintf("%d", n)
	}
	return out
}

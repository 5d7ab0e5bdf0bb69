package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// Period is a budget window that resets at a UTC calendar boundary.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

func (p Period) start(t time.Time) time.Time {
	t = t.UTC()
	if p == PeriodMonthly {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (p Period) stamp(t time.Time) string {
	if p == PeriodMonthly {
		return t.UTC().Format("2006-01")
	}
	return t.UTC().Format("2006-01-02")
}

// Limits caps tokens per period. Zero means unlimited.
type Limits struct {
	Daily   int64
	Monthly int64
}

// Usage is a point-in-time view of one budget window.
type Usage struct {
	Period Period
	Limit  int64
	Used   int64
}

// Remaining returns tokens left in the window, -1 when unlimited.
func (u Usage) Remaining() int64 {
	if u.Limit <= 0 {
		return -1
	}
	return max(u.Limit-u.Used, 0)
}

func (u Usage) exceeded() bool { return u.Limit > 0 && u.Used >= u.Limit }

// BudgetStore is the persistence interface for budget counters.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

type window struct {
	period Period
	limit  int64
	used   int64
	start  time.Time
}

// BudgetTracker counts API tokens of one embedding provider in memory.
// Check never leaves the process; Record writes behind to the store when one is attached.
type BudgetTracker struct {
	mu       sync.Mutex
	windows  []*window
	action   BudgetAction
	prefix   string
	provider string
	now      func() time.Time
	store    BudgetStore
	logger   *zap.Logger
}

// NewBudgetTracker creates a tracker whose persisted keys are namespaced by prefix (e.g. "newsdex:").
func NewBudgetTracker(
	prefix, provider string, limits Limits, action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	b := &BudgetTracker{
		windows: []*window{
			{period: PeriodDaily, limit: limits.Daily},
			{period: PeriodMonthly, limit: limits.Monthly},
		},
		action:   action,
		prefix:   prefix,
		provider: provider,
		now:      time.Now,
		logger:   logger,
	}
	b.restart()
	return b
}

// WithClock replaces the time source and restarts every window at its current boundary.
func (b *BudgetTracker) WithClock(now func() time.Time) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	b.restart()
	return b
}

// WithStore attaches a persistence store and loads the counters of the current windows.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, w := range b.windows {
		val, err := store.Get(ctx, b.key(w.period, now))
		if err != nil {
			b.logger.Warn("Failed to load budget from store",
				zap.String("provider", b.provider),
				zap.String("period", string(w.period)),
				zap.Error(err),
			)
			continue
		}
		w.used = val
	}
	b.logger.Debug("Budget loaded from store", zap.String("provider", b.provider), zap.Any("usage", b.snapshot()))
	return b
}

// Check reports ErrEmbeddingQuotaExceeded when any window is spent and the action is reject.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.roll()
	for _, w := range b.windows {
		u := Usage{Period: w.period, Limit: w.limit, Used: w.used}
		if !u.exceeded() {
			continue
		}
		if b.action == BudgetActionReject {
			return fmt.Errorf("%w: %s %s budget %d/%d",
				domain.ErrEmbeddingQuotaExceeded, b.provider, w.period, w.used, w.limit)
		}
		b.logger.Warn("Token budget exceeded",
			zap.String("provider", b.provider),
			zap.String("period", string(w.period)),
			zap.Int64("used", w.used),
			zap.Int64("limit", w.limit),
		)
	}
	return nil
}

// Record adds consumed tokens to every window.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.roll()
	now := b.now()
	keys := make([]string, len(b.windows))
	for i, w := range b.windows {
		w.used += tokens
		keys[i] = b.key(w.period, now)
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Detached from the caller so a cancelled request still gets counted.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// Usage returns the current windows, daily first.
func (b *BudgetTracker) Usage() []Usage {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roll()
	return b.snapshot()
}

func (b *BudgetTracker) snapshot() []Usage {
	out := make([]Usage, len(b.windows))
	for i, w := range b.windows {
		out[i] = Usage{Period: w.period, Limit: w.limit, Used: w.used}
	}
	return out
}

// key is <prefix>budget:<provider>:<period>:<stamp>.
func (b *BudgetTracker) key(p Period, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", b.prefix, b.provider, p, p.stamp(t))
}

func (b *BudgetTracker) restart() {
	now := b.now()
	for _, w := range b.windows {
		w.start = w.period.start(now)
	}
}

// roll zeroes windows whose boundary has passed.
func (b *BudgetTracker) roll() {
	now := b.now()
	for _, w := range b.windows {
		if s := w.period.start(now); s.After(w.start) {
			w.used = 0
			w.start = s
		}
	}
}

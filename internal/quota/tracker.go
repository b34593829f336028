package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/bulksend/internal/domain"
	"github.com/ignite/bulksend/internal/pkg/logger"
)

// Tracker enforces the daily send limits. It owns all quota mutation:
// the engine asks CanSend before each recipient and calls RecordSent
// after each confirmed send. Every operation re-checks the calendar
// date, so a run that crosses midnight starts counting a fresh day.
type Tracker struct {
	store     Store
	softLimit int
	hardLimit int

	mu    sync.Mutex
	state domain.DailyQuotaState
	now   func() time.Time
}

// NewTracker creates a tracker over store with the given thresholds.
func NewTracker(store Store, softLimit, hardLimit int) *Tracker {
	return &Tracker{
		store:     store,
		softLimit: softLimit,
		hardLimit: hardLimit,
		now:       time.Now,
	}
}

// Load pulls persisted state. Missing or unreadable state is not fatal:
// the tracker starts the day at zero and logs a warning, because losing
// a counter must never block a run the way losing a send could. Loading
// twice in the same day is harmless.
func (t *Tracker) Load(ctx context.Context) {
	state, err := t.store.Load(ctx)
	if err != nil {
		logger.Warn("could not load quota state, starting at zero", "error", err)
		state = domain.DailyQuotaState{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	today := domain.QuotaDate(t.now())
	if state.Date != today {
		state = domain.DailyQuotaState{Date: today}
	}
	t.state = state
}

// CanSend reports whether one more send fits under the hard limit.
func (t *Tracker) CanSend() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.state.CountSentToday < t.hardLimit
}

// Remaining returns how many sends are left under the hard limit today.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	remaining := t.hardLimit - t.state.CountSentToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SoftExceeded reports whether the warning threshold has been reached.
func (t *Tracker) SoftExceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.state.CountSentToday >= t.softLimit
}

// RecordSent counts one confirmed send and persists the new state. A
// persistence failure is fatal to the run: an uncounted send would let
// the next run exceed the provider's limit.
func (t *Tracker) RecordSent(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	t.state.CountSentToday++
	if err := t.store.Save(ctx, t.state); err != nil {
		return domain.Classify(domain.ErrKindPersistence, fmt.Errorf("saving quota state: %w", err))
	}
	return nil
}

// State returns a copy of the current quota state.
func (t *Tracker) State() domain.DailyQuotaState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.state
}

// HardLimit returns the configured hard threshold.
func (t *Tracker) HardLimit() int { return t.hardLimit }

// SoftLimit returns the configured warning threshold.
func (t *Tracker) SoftLimit() int { return t.softLimit }

// rollover resets the counter when the calendar day has changed.
// Callers must hold t.mu.
func (t *Tracker) rollover() {
	today := domain.QuotaDate(t.now())
	if t.state.Date != today {
		t.state = domain.DailyQuotaState{Date: today}
	}
}

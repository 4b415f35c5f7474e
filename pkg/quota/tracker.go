// Package quota tracks the shared daily request budget for a remote API.
// The budget is process-external — other consumers draw on the same daily
// cap — so the tracker preserves a configured floor for them: once a spend
// would sink the remaining budget below the floor, it is refused.
package quota

import "sync"

// Tracker tracks the remaining daily request budget for one service.
// It is passed explicitly to every component that spends requests, rather
// than living in a hidden global, so tests can inject their own.
type Tracker struct {
	mu        sync.Mutex
	remaining int
	floor     int
	requests  int
}

// NewTracker creates a tracker seeded with the starting budget and the
// minimum to preserve for other consumers of the shared quota.
func NewTracker(budget, floor int) *Tracker {
	return &Tracker{remaining: budget, floor: floor}
}

// CanSpend reports whether n more requests may be attempted without
// breaching the floor; spending down to exactly the floor is allowed. It is
// checked before each batch is dispatched, not mid-batch, so a batch's own
// retries may still dip slightly below.
func (t *Tracker) CanSpend(n int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining-n >= t.floor
}

// Spend records n request attempts against the budget. Every attempt
// counts, including retries. The remaining budget never goes below zero.
func (t *Tracker) Spend(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests += n
	t.remaining -= n
	if t.remaining < 0 {
		t.remaining = 0
	}
}

// Observe adopts a remaining-budget value reported by the service itself
// (Alma returns it in the X-Exl-Api-Remaining response header). This
// corrects drift caused by other consumers of the shared daily quota.
func (t *Tracker) Observe(remaining int) {
	if remaining < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remaining = remaining
}

// Remaining returns the tracked remaining daily budget.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Floor returns the configured minimum preserved for other consumers.
func (t *Tracker) Floor() int {
	return t.floor
}

// Requests returns the number of request attempts recorded this run.
func (t *Tracker) Requests() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requests
}

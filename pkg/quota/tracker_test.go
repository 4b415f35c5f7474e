package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanSpendRespectsFloor(t *testing.T) {
	tracker := NewTracker(10, 5)

	// Five spends are allowed; the sixth would breach the floor even
	// though five requests nominally remain.
	for i := 0; i < 5; i++ {
		assert.True(t, tracker.CanSpend(1), "spend %d should be allowed", i+1)
		tracker.Spend(1)
	}

	assert.Equal(t, 5, tracker.Remaining())
	assert.False(t, tracker.CanSpend(1))
}

func TestSpendNeverGoesNegative(t *testing.T) {
	tracker := NewTracker(2, 0)
	tracker.Spend(5)
	assert.Equal(t, 0, tracker.Remaining())
}

func TestSpendCountsEveryAttempt(t *testing.T) {
	tracker := NewTracker(100, 0)
	tracker.Spend(1)
	tracker.Spend(1) // the retry counts too
	tracker.Spend(1)
	assert.Equal(t, 3, tracker.Requests())
	assert.Equal(t, 97, tracker.Remaining())
}

func TestObserveAdoptsServiceReportedValue(t *testing.T) {
	tracker := NewTracker(1000, 10)

	// Another consumer of the shared quota burned requests; the service's
	// response header is authoritative.
	tracker.Observe(50)
	assert.Equal(t, 50, tracker.Remaining())
	assert.True(t, tracker.CanSpend(1))

	tracker.Observe(10)
	assert.False(t, tracker.CanSpend(1))

	// Negative values are ignored.
	tracker.Observe(-1)
	assert.Equal(t, 10, tracker.Remaining())
}

func TestCanSpendMultiple(t *testing.T) {
	tracker := NewTracker(10, 5)
	assert.True(t, tracker.CanSpend(4))
	// A multi-request spend may land exactly on the floor, never below it.
	assert.True(t, tracker.CanSpend(5))
	assert.False(t, tracker.CanSpend(6))
}

package navigation_test

import (
	"sync"
	"testing"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewViewState_ClampsWeek(t *testing.T) {
	assert.Equal(t, 18, navigation.NewViewState("s", 25, 18).CurrentWeek)
	assert.Equal(t, 1, navigation.NewViewState("s", 0, 18).CurrentWeek)
	assert.Equal(t, 1, navigation.NewViewState("s", 3, 0).TotalWeeks)
}

func TestChangeWeek(t *testing.T) {
	tests := []struct {
		name        string
		start       int
		direction   int
		wantWeek    int
		wantChanged bool
	}{
		{"Forward", 5, 1, 6, true},
		{"Back", 5, -1, 4, true},
		{"Lower bound", 1, -1, 1, false},
		{"Upper bound", 18, 1, 18, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := navigation.NewViewState("s", tt.start, 18)
			week, changed, err := v.ChangeWeek(tt.direction)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWeek, week)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantWeek, v.CurrentWeek)
		})
	}
}

func TestChangeWeek_InvalidDirection(t *testing.T) {
	v := navigation.NewViewState("s", 5, 18)
	_, _, err := v.ChangeWeek(2)
	assert.ErrorIs(t, err, navigation.ErrInvalidDirection)
	assert.Equal(t, 5, v.CurrentWeek)
}

func TestHasPrevNext(t *testing.T) {
	v := navigation.NewViewState("s", 5, 18)
	assert.False(t, v.HasPrev())
	assert.False(t, v.HasNext())

	v.MarkAvailable(4, 3)
	v.MarkAvailable(6, 0)
	assert.True(t, v.HasPrev())
	assert.False(t, v.HasNext())

	v.MarkAvailable(6, 2)
	assert.True(t, v.HasNext())

	edge := navigation.NewViewState("s", 18, 18)
	edge.MarkAvailable(19, 5)
	assert.False(t, edge.HasNext())
}

func TestTracker_DiscardsStaleTickets(t *testing.T) {
	var tracker navigation.Tracker

	first := tracker.Begin(4)
	second := tracker.Begin(5)

	latest, pending := tracker.Pending()
	assert.True(t, pending)
	assert.Equal(t, second, latest)

	assert.False(t, tracker.Complete(first))
	_, pending = tracker.Pending()
	assert.True(t, pending, "a stale completion leaves the latest ticket pending")

	assert.True(t, tracker.Complete(second))
	latest, pending = tracker.Pending()
	assert.False(t, pending)
	assert.Equal(t, 5, latest.Week)
}

func TestTracker_NothingPendingInitially(t *testing.T) {
	var tracker navigation.Tracker

	_, pending := tracker.Pending()
	assert.False(t, pending)
}

func TestTracker_Concurrent(t *testing.T) {
	var tracker navigation.Tracker
	var wg sync.WaitGroup

	tickets := make([]navigation.Ticket, 100)
	for i := range tickets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tickets[i] = tracker.Begin(i)
		}(i)
	}
	wg.Wait()

	winners := 0
	seen := make(map[int64]bool)
	for _, ticket := range tickets {
		assert.False(t, seen[ticket.Seq], "duplicate sequence %d", ticket.Seq)
		seen[ticket.Seq] = true
		if tracker.Complete(ticket) {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	latest, pending := tracker.Pending()
	assert.Equal(t, int64(100), latest.Seq)
	assert.False(t, pending)
}

package navigation

import (
	"errors"
	"sync"
)

// ErrInvalidDirection is returned for navigation steps other than -1 and +1
var ErrInvalidDirection = errors.New("direction must be -1 or 1")

// ViewState is the presentation state of one dashboard session: the week
// being shown and what is known about the other weeks
type ViewState struct {
	SessionID   string `json:"session_id"`
	CurrentWeek int    `json:"current_week"`
	TotalWeeks  int    `json:"total_weeks"`

	// AvailableWeeks maps week number to its recommendation count for every
	// week that has been fetched
	AvailableWeeks map[int]int `json:"available_weeks"`

	// LatestSeq is the sequence token of the most recent navigation
	LatestSeq int64 `json:"latest_seq"`
}

// NewViewState starts a session on the given week
func NewViewState(sessionID string, currentWeek, totalWeeks int) *ViewState {
	if totalWeeks < 1 {
		totalWeeks = 1
	}
	return &ViewState{
		SessionID:      sessionID,
		CurrentWeek:    clamp(currentWeek, 1, totalWeeks),
		TotalWeeks:     totalWeeks,
		AvailableWeeks: make(map[int]int),
	}
}

// ChangeWeek moves one week in the given direction, staying within
// [1, TotalWeeks]. Returns the new week and whether it changed.
func (v *ViewState) ChangeWeek(direction int) (int, bool, error) {
	if direction != -1 && direction != 1 {
		return v.CurrentWeek, false, ErrInvalidDirection
	}

	next := clamp(v.CurrentWeek+direction, 1, v.TotalWeeks)
	if next == v.CurrentWeek {
		return v.CurrentWeek, false, nil
	}
	v.CurrentWeek = next
	return next, true, nil
}

// MarkAvailable records the number of recommendations found for a week
func (v *ViewState) MarkAvailable(week, count int) {
	if v.AvailableWeeks == nil {
		v.AvailableWeeks = make(map[int]int)
	}
	v.AvailableWeeks[week] = count
}

// HasPrev reports whether the previous week is known to have recommendations
func (v *ViewState) HasPrev() bool {
	return v.CurrentWeek > 1 && v.AvailableWeeks[v.CurrentWeek-1] > 0
}

// HasNext reports whether the next week is known to have recommendations
func (v *ViewState) HasNext() bool {
	return v.CurrentWeek < v.TotalWeeks && v.AvailableWeeks[v.CurrentWeek+1] > 0
}

// Tracker hands out monotonically increasing sequence tokens so that a slow
// response for an old navigation never overwrites a newer one
type Tracker struct {
	mu        sync.Mutex
	latest    int64
	week      int
	completed int64
}

// Ticket identifies one navigation request
type Ticket struct {
	Seq  int64
	Week int
}

// Begin issues a ticket for loading the given week, superseding every
// ticket issued before it
func (t *Tracker) Begin(week int) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latest++
	t.week = week
	return Ticket{Seq: t.latest, Week: week}
}

// Complete reports whether the ticket is still the latest. Results for a
// superseded ticket must be discarded.
func (t *Tracker) Complete(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ticket.Seq != t.latest {
		return false
	}
	t.completed = ticket.Seq
	return true
}

// Pending reports whether the latest ticket has been issued but not yet
// completed, and returns it
func (t *Tracker) Pending() (Ticket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Ticket{Seq: t.latest, Week: t.week}, t.latest > t.completed
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

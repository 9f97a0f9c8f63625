package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/navigation"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/session"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
	"github.com/google/uuid"
)

// ErrSuperseded is returned when a newer navigation of the same session
// was issued while this one was loading
var ErrSuperseded = errors.New("superseded by a newer navigation")

// SessionView is a session's view state together with the page it shows
type SessionView struct {
	State     *navigation.ViewState `json:"state"`
	HasPrev   bool                  `json:"has_prev"`
	HasNext   bool                  `json:"has_next"`
	Seq       int64                 `json:"seq"`
	Dashboard *models.DashboardView `json:"dashboard,omitempty"`
}

// Sessions drives week navigation for stored view states
type Sessions struct {
	service *Service
	store   session.Store
}

// NewSessions creates a session manager over a store
func NewSessions(service *Service, store session.Store) *Sessions {
	return &Sessions{
		service: service,
		store:   store,
	}
}

// Create starts a session on the current week
func (m *Sessions) Create(ctx context.Context) (*SessionView, error) {
	info, err := m.service.CurrentWeek(ctx)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	state := navigation.NewViewState(uuid.NewString(), info.CurrentWeek, info.TotalWeeks)

	// The session must exist before it can issue sequence tokens
	if err := m.store.Save(ctx, state); err != nil {
		return nil, err
	}
	seq, err := m.store.NextSeq(ctx, state.SessionID)
	if err != nil {
		return nil, err
	}

	view := m.service.Dashboard(ctx, state.CurrentWeek, state.TotalWeeks)
	counts := m.countNeighbours(ctx, state, view)

	state, err = m.store.Update(ctx, state.SessionID, func(v *navigation.ViewState) error {
		v.LatestSeq = seq
		for week, count := range counts {
			v.MarkAvailable(week, count)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Sessions] Created session %s on week %d/%d", state.SessionID, state.CurrentWeek, state.TotalWeeks)
	return newSessionView(state, seq, view), nil
}

// Get returns a session's view state without loading any data.
// Returns nil, nil if the session does not exist.
func (m *Sessions) Get(ctx context.Context, id string) (*SessionView, error) {
	state, err := m.store.Get(ctx, id)
	if err != nil || state == nil {
		return nil, err
	}
	return newSessionView(state, state.LatestSeq, nil), nil
}

// Navigate moves a session one week back or forward and loads the new week.
// The week changes immediately so consecutive clicks accumulate; the loaded
// data is only committed if no newer navigation started meanwhile.
func (m *Sessions) Navigate(ctx context.Context, id string, direction int) (*SessionView, error) {
	seq, err := m.store.NextSeq(ctx, id)
	if err != nil {
		return nil, err
	}

	state, err := m.store.Update(ctx, id, func(v *navigation.ViewState) error {
		if _, _, err := v.ChangeWeek(direction); err != nil {
			return err
		}
		v.LatestSeq = seq
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := m.service.Dashboard(ctx, state.CurrentWeek, state.TotalWeeks)
	counts := m.countNeighbours(ctx, state, view)

	latest, err := m.store.LatestSeq(ctx, id)
	if err != nil {
		return nil, err
	}
	if latest != seq {
		return nil, ErrSuperseded
	}

	state, err = m.store.Update(ctx, id, func(v *navigation.ViewState) error {
		if v.LatestSeq != seq {
			return ErrSuperseded
		}
		for week, count := range counts {
			v.MarkAvailable(week, count)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return newSessionView(state, seq, view), nil
}

// countNeighbours counts the recommendations of the shown week and its neighbours so
// the prev/next controls only appear for weeks that have data
func (m *Sessions) countNeighbours(ctx context.Context, state *navigation.ViewState, view *models.DashboardView) map[int]int {
	counts := m.service.Neighbours(ctx, state.CurrentWeek, state.TotalWeeks)
	if view.Weekly.Error == "" {
		counts[view.Weekly.Week] = len(view.Weekly.Recommendations)
	}
	return counts
}

func newSessionView(state *navigation.ViewState, seq int64, view *models.DashboardView) *SessionView {
	return &SessionView{
		State:     state,
		HasPrev:   state.HasPrev(),
		HasNext:   state.HasNext(),
		Seq:       seq,
		Dashboard: view,
	}
}

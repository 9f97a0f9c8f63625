package dashboard_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/dashboard"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/navigation"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/session"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// weeksWithData returns a source where only the listed weeks have recommendations
func weeksWithData(weeks ...int) *MockSource {
	has := make(map[int]bool)
	for _, w := range weeks {
		has[w] = true
	}
	return &MockSource{
		RecsFunc: func(ctx context.Context, week int) ([]models.Recommendation, error) {
			if has[week] {
				return sampleWeek(), nil
			}
			return []models.Recommendation{}, nil
		},
	}
}

func newSessions(src dashboard.Source) *dashboard.Sessions {
	return dashboard.NewSessions(dashboard.NewService(src, 10000), session.NewMemoryStore(time.Hour))
}

func TestSessions_Create(t *testing.T) {
	sessions := newSessions(weeksWithData(4, 5))

	view, err := sessions.Create(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, view.State.SessionID)
	assert.Equal(t, 5, view.State.CurrentWeek)
	assert.Equal(t, 18, view.State.TotalWeeks)
	assert.True(t, view.HasPrev)
	assert.False(t, view.HasNext)
	require.NotNil(t, view.Dashboard)
	assert.Len(t, view.Dashboard.Weekly.Recommendations, 3)

	stored, err := sessions.Get(context.Background(), view.State.SessionID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 5, stored.State.CurrentWeek)
	assert.Equal(t, 3, stored.State.AvailableWeeks[4])
}

func TestSessions_GetMissing(t *testing.T) {
	view, err := newSessions(&MockSource{}).Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestSessions_Navigate(t *testing.T) {
	sessions := newSessions(weeksWithData(4, 5, 6))
	ctx := context.Background()

	created, err := sessions.Create(ctx)
	require.NoError(t, err)
	id := created.State.SessionID

	view, err := sessions.Navigate(ctx, id, -1)
	require.NoError(t, err)
	assert.Equal(t, 4, view.State.CurrentWeek)
	assert.False(t, view.HasPrev)
	assert.True(t, view.HasNext)
	assert.Greater(t, view.Seq, created.Seq)

	_, err = sessions.Navigate(ctx, id, 3)
	assert.ErrorIs(t, err, navigation.ErrInvalidDirection)

	_, err = sessions.Navigate(ctx, "missing", 1)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSessions_NavigateUnknownLeavesNoTrace(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	sessions := dashboard.NewSessions(dashboard.NewService(weeksWithData(5), 10000), store)
	ctx := context.Background()

	_, err := sessions.Navigate(ctx, "forged-id", 1)
	require.ErrorIs(t, err, session.ErrNotFound)

	seq, err := store.LatestSeq(ctx, "forged-id")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestSessions_NavigateBounded(t *testing.T) {
	src := weeksWithData(1)
	src.CurrentWeekFunc = func(ctx context.Context) (*models.WeekInfo, error) {
		return &models.WeekInfo{CurrentWeek: 1, TotalWeeks: 18}, nil
	}
	sessions := newSessions(src)
	ctx := context.Background()

	created, err := sessions.Create(ctx)
	require.NoError(t, err)

	view, err := sessions.Navigate(ctx, created.State.SessionID, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.State.CurrentWeek)
}

func TestSessions_StaleNavigationIsDiscarded(t *testing.T) {
	src := weeksWithData(5, 6, 7)
	sessions := newSessions(src)
	ctx := context.Background()

	created, err := sessions.Create(ctx)
	require.NoError(t, err)
	id := created.State.SessionID

	// The first load of week 6 stalls until the second navigation is done
	started := make(chan struct{})
	release := make(chan struct{})
	var stalled int32
	src.RecsFunc = func(ctx context.Context, week int) ([]models.Recommendation, error) {
		if week == 6 && atomic.CompareAndSwapInt32(&stalled, 0, 1) {
			close(started)
			<-release
		}
		return sampleWeek(), nil
	}

	slowErr := make(chan error, 1)
	go func() {
		_, err := sessions.Navigate(ctx, id, 1)
		slowErr <- err
	}()

	<-started
	fast, err := sessions.Navigate(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, fast.State.CurrentWeek)

	close(release)
	assert.ErrorIs(t, <-slowErr, dashboard.ErrSuperseded)

	final, err := sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, final.State.CurrentWeek)
	assert.Equal(t, fast.Seq, final.State.LatestSeq)
}

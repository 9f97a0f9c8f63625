package live_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/live"
	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLoader implements live.Loader for testing
type MockLoader struct {
	mu       sync.Mutex
	gates    map[int]chan struct{}
	calls    []int
	finished int
}

func (m *MockLoader) loadsFinished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

func (m *MockLoader) block(week int) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gates == nil {
		m.gates = make(map[int]chan struct{})
	}
	gate := make(chan struct{})
	m.gates[week] = gate
	return gate
}

func (m *MockLoader) CurrentWeek(ctx context.Context) (*models.WeekInfo, error) {
	return &models.WeekInfo{CurrentWeek: 5, TotalWeeks: 18}, nil
}

func (m *MockLoader) Dashboard(ctx context.Context, week, totalWeeks int) *models.DashboardView {
	m.mu.Lock()
	m.calls = append(m.calls, week)
	gate := m.gates[week]
	delete(m.gates, week)
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	return &models.DashboardView{
		Weekly: models.WeeklyView{
			Week:            week,
			TotalWeeks:      totalWeeks,
			Recommendations: make([]models.RecommendationCard, week),
		},
	}
}

func (m *MockLoader) Neighbours(ctx context.Context, week, totalWeeks int) map[int]int {
	m.mu.Lock()
	m.finished++
	m.mu.Unlock()

	counts := map[int]int{}
	if week > 1 {
		counts[week-1] = 1
	}
	if week < totalWeeks {
		counts[week+1] = 0
	}
	return counts
}

type MockRegistry struct{}

func (MockRegistry) Unregister(c *live.Client) {}

func receive(t *testing.T, c *live.Client) live.ServerMessage {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return live.ServerMessage{}
}

func assertSilent(t *testing.T, c *live.Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message %s", msg.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClient_Subscribe(t *testing.T) {
	c := live.NewClient("c1", nil, MockRegistry{}, &MockLoader{})

	c.Handle(context.Background(), live.ClientMessage{Type: live.MessageTypeSubscribe})

	msg := receive(t, c)
	require.Equal(t, live.MessageTypeDashboard, msg.Type)

	update, ok := msg.Payload.(live.DashboardUpdate)
	require.True(t, ok)
	assert.Equal(t, 5, update.Week)
	assert.Equal(t, 18, update.TotalWeeks)
	assert.True(t, update.HasPrev)
	assert.False(t, update.HasNext)
	assert.Equal(t, 5, c.Week())
}

func TestClient_NavigateBeforeSubscribe(t *testing.T) {
	c := live.NewClient("c1", nil, MockRegistry{}, &MockLoader{})

	c.Handle(context.Background(), live.ClientMessage{Type: live.MessageTypeNavigate, Direction: 1})

	msg := receive(t, c)
	require.Equal(t, live.MessageTypeError, msg.Type)
	assert.Equal(t, "not_subscribed", msg.Payload.(live.ErrorMessage).Code)
}

func TestClient_InvalidMessages(t *testing.T) {
	c := live.NewClient("c1", nil, MockRegistry{}, &MockLoader{})
	ctx := context.Background()

	c.Handle(ctx, live.ClientMessage{Type: "bogus"})
	assert.Equal(t, "unknown_message_type", receive(t, c).Payload.(live.ErrorMessage).Code)

	c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeSubscribe, Week: 2})
	receive(t, c)

	c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeNavigate, Direction: 0})
	assert.Equal(t, "invalid_direction", receive(t, c).Payload.(live.ErrorMessage).Code)

	c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeHeartbeat})
	assert.Equal(t, live.MessageTypeHeartbeat, receive(t, c).Type)
}

func TestClient_StaleLoadIsDropped(t *testing.T) {
	loader := &MockLoader{}
	c := live.NewClient("c1", nil, MockRegistry{}, loader)
	ctx := context.Background()

	c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeSubscribe})
	receive(t, c)

	gate := loader.block(6)
	c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeNavigate, Direction: 1})
	c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeNavigate, Direction: 1})

	msg := receive(t, c)
	update := msg.Payload.(live.DashboardUpdate)
	assert.Equal(t, 7, update.Week)

	close(gate)
	assertSilent(t, c)
	assert.Equal(t, 7, c.Week())
}

func TestClient_Refresh(t *testing.T) {
	c := live.NewClient("c1", nil, MockRegistry{}, &MockLoader{})
	ctx := context.Background()

	c.Refresh(ctx)
	assertSilent(t, c)

	c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeSubscribe, Week: 3})
	first := receive(t, c)

	c.Refresh(ctx)
	second := receive(t, c)
	assert.Equal(t, 3, second.Payload.(live.DashboardUpdate).Week)
	assert.Greater(t, second.Seq, first.Seq)
}

func TestHub_WebSocketRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := live.NewHub(time.Hour)
	go hub.Run(ctx)

	handler := live.NewHandler(ctx, hub, &MockLoader{}, nil)
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(live.ClientMessage{Type: live.MessageTypeSubscribe, Week: 4}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type    string               `json:"type"`
		Seq     int64                `json:"seq"`
		Payload live.DashboardUpdate `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))

	assert.Equal(t, live.MessageTypeDashboard, msg.Type)
	assert.Equal(t, 4, msg.Payload.Week)
	assert.Len(t, msg.Payload.Dashboard.Weekly.Recommendations, 4)

	assert.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestClient_RateLimited(t *testing.T) {
	c := live.NewClient("c1", nil, MockRegistry{}, &MockLoader{})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeHeartbeat})
		require.Equal(t, live.MessageTypeHeartbeat, receive(t, c).Type)
	}

	c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeHeartbeat})
	msg := receive(t, c)
	require.Equal(t, live.MessageTypeError, msg.Type)
	assert.Equal(t, "rate_limited", msg.Payload.(live.ErrorMessage).Code)
}

func TestClient_RefreshSkippedWhileLoading(t *testing.T) {
	loader := &MockLoader{}
	c := live.NewClient("c1", nil, MockRegistry{}, loader)
	ctx := context.Background()

	c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeSubscribe})
	receive(t, c)

	gate := loader.block(5)
	require.True(t, c.Refresh(ctx))
	assert.False(t, c.Refresh(ctx), "second tick must not supersede the slow load")

	close(gate)
	msg := receive(t, c)
	assert.Equal(t, 5, msg.Payload.(live.DashboardUpdate).Week)

	require.True(t, c.Refresh(ctx))
	receive(t, c)
}

func TestHub_DisconnectDuringLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := live.NewHub(time.Hour)
	go hub.Run(ctx)

	loader := &MockLoader{}
	c := live.NewClient("c1", nil, hub, loader)
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	gate := loader.block(5)
	c.Handle(ctx, live.ClientMessage{Type: live.MessageTypeSubscribe})

	hub.Unregister(c)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 10*time.Millisecond)

	close(gate)
	require.Eventually(t, func() bool { return loader.loadsFinished() == 1 }, time.Second, 10*time.Millisecond)

	select {
	case msg, ok := <-c.Send:
		assert.False(t, ok, "unexpected message %s after disconnect", msg.Type)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
	assert.False(t, c.TrySend(live.ServerMessage{Type: live.MessageTypeHeartbeat}))
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	hub := live.NewHub(time.Hour)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	c := live.NewClient("c1", nil, hub, &MockLoader{})

	returned := make(chan struct{})
	go func() {
		hub.Unregister(c)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked on a stopped hub")
	}

	hub.Register(c)
	_, ok := <-c.Send
	assert.False(t, ok, "a client registering after shutdown is closed")
}

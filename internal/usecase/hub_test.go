package usecase

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type memStore struct {
	recordingSink
	saved map[string]*models.Snapshot
}

func (m *memStore) Name() string { return "memory" }

func (m *memStore) Load(_ context.Context, pair, scope string) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.saved[pair+"|"+scope]; ok {
		return s, nil
	}
	return nil, repository.ErrSnapshotNotFound
}

func blocking(ctx context.Context) (*repository.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHubReusesOrchestratorPerPairAndScope(t *testing.T) {
	h := NewHub(HubConfig{Interval: time.Hour}, healthySource())
	defer h.Close()
	ctx := context.Background()

	a, err := h.Get(ctx, "xauusd", "")
	require.NoError(t, err)
	b, err := h.Get(ctx, "XAUUSD", "")
	require.NoError(t, err)
	c, err := h.Get(ctx, "XAUUSD", "tok")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "XAUUSD", a.Pair())
	assert.Equal(t, 2, h.Len())
}

func TestHubSeedsFromStore(t *testing.T) {
	loaded := testNow.Add(-time.Hour)
	store := &memStore{saved: map[string]*models.Snapshot{
		"XAUUSD|anon": {
			EventID: "e1",
			State: models.DashboardState{
				Strategies:  []models.Strategy{{StrategyName: "Cached"}},
				LastUpdated: &loaded,
			},
		},
	}}
	src := newFakeSource().all(blocking)
	h := NewHub(HubConfig{Interval: time.Hour}, src, WithStore(store))
	defer h.Close()

	o, err := h.Get(context.Background(), "XAUUSD", "")
	require.NoError(t, err)

	s := o.Snapshot()
	require.Len(t, s.Strategies, 1)
	assert.Equal(t, "Cached", s.Strategies[0].StrategyName)
	assert.Equal(t, loaded, *s.LastUpdated)
}

func TestHubWritesSnapshotsToStore(t *testing.T) {
	store := &memStore{saved: map[string]*models.Snapshot{}}
	h := NewHub(HubConfig{Interval: time.Hour}, healthySource(), WithStore(store))

	o, err := h.Get(context.Background(), "XAUUSD", "")
	require.NoError(t, err)
	_, err = o.Refresh(context.Background())
	require.NoError(t, err)
	h.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotEmpty(t, store.snaps)
}

func TestHubGetThenRefreshReturnsLoadedState(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := NewHub(HubConfig{Interval: time.Hour}, healthySource())

		o, err := h.Get(context.Background(), "XAUUSD", "")
		require.NoError(t, err)
		state, err := o.Refresh(context.Background())
		h.Close()

		require.NoError(t, err)
		assert.False(t, state.Loading)
		require.NotNil(t, state.LastUpdated)
		assert.Len(t, state.Strategies, 1)
	}
}

func TestHubSweepEvictsIdleOrchestrators(t *testing.T) {
	clock := &testClock{t: testNow}
	h := NewHub(HubConfig{Interval: time.Hour, IdleTTL: time.Minute}, healthySource(), WithHubClock(clock.Now))
	defer h.Close()
	ctx := context.Background()

	idle, err := h.Get(ctx, "XAUUSD", "")
	require.NoError(t, err)
	watched, err := h.Get(ctx, "XAUUSD", "tok")
	require.NoError(t, err)
	_, cancel := watched.Subscribe(64)
	defer cancel()

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, h.Sweep())
	assert.Equal(t, 1, h.Len())

	_, err = idle.Refresh(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHubRecentlyUsedSurvivesSweep(t *testing.T) {
	clock := &testClock{t: testNow}
	h := NewHub(HubConfig{Interval: time.Hour, IdleTTL: time.Minute}, healthySource(), WithHubClock(clock.Now))
	defer h.Close()
	ctx := context.Background()

	_, err := h.Get(ctx, "XAUUSD", "")
	require.NoError(t, err)
	clock.Advance(50 * time.Second)
	_, err = h.Get(ctx, "XAUUSD", "")
	require.NoError(t, err)
	clock.Advance(50 * time.Second)

	assert.Zero(t, h.Sweep())
	assert.Equal(t, 1, h.Len())
}

func TestHubClosedRefusesGet(t *testing.T) {
	h := NewHub(HubConfig{}, healthySource())
	h.Close()
	_, err := h.Get(context.Background(), "XAUUSD", "")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHubCheckHealth(t *testing.T) {
	src := newFakeSource().set(repository.EndpointStrategy, status(http.StatusOK))
	h := NewHub(HubConfig{}, src)
	defer h.Close()
	assert.True(t, h.CheckHealth(context.Background()))
}

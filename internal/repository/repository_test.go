package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/cache"
	pkgkafka "SignalDesk/pkg/kafka"
)

func ptr[T any](v T) *T { return &v }

func sampleSnapshot() *models.Snapshot {
	updated := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	return &models.Snapshot{
		EventID: "evt-1",
		Pair:    "XAUUSD",
		Scope:   "anon",
		CycleID: "cyc-1",
		State: models.DashboardState{
			Strategies: []models.Strategy{
				{
					StrategyName:      "Breakout",
					Direction:         models.DirectionBuy,
					Entry:             2345.5,
					TakeProfit:        ptr(2360.0),
					ConfidencePercent: ptr(85),
					Status:            models.StatusActive,
					Timestamp:         ptr("2025-06-02T09:00:00Z"),
				},
				{
					StrategyName: "Fade",
					Direction:    models.DirectionSell,
					Entry:        0,
					Status:       models.StatusExpired,
				},
			},
			RegimeText:  ptr("Trending"),
			LastUpdated: &updated,
		},
		Produced: updated,
	}
}

func TestCacheSnapshotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	store := NewCacheSnapshotStore(mc, time.Hour)

	_, err := store.Load(ctx, "XAUUSD", "anon")
	assert.ErrorIs(t, err, domrepo.ErrSnapshotNotFound)

	snap := sampleSnapshot()
	require.NoError(t, store.Write(ctx, snap))

	got, err := store.Load(ctx, "XAUUSD", "anon")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", got.EventID)
	require.Len(t, got.State.Strategies, 2)
	assert.Equal(t, 2345.5, got.State.Strategies[0].Entry)
	assert.Equal(t, "Trending", *got.State.RegimeText)
	assert.True(t, got.State.LastUpdated.Equal(*snap.State.LastUpdated))

	_, err = store.Load(ctx, "XAUUSD", "other-scope")
	assert.ErrorIs(t, err, domrepo.ErrSnapshotNotFound)
}

type fakeProducer struct {
	msgs []pkgkafka.Message
	err  error
}

func (p *fakeProducer) Publish(_ context.Context, msg pkgkafka.Message) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func TestKafkaSnapshotPublisher(t *testing.T) {
	fp := &fakeProducer{}
	pub := &KafkaSnapshotPublisher{producer: fp}

	require.NoError(t, pub.Write(context.Background(), sampleSnapshot()))
	require.Len(t, fp.msgs, 1)
	assert.Equal(t, "XAUUSD", string(fp.msgs[0].Key))
	assert.Equal(t, "evt-1", fp.msgs[0].Headers["event_id"])
	assert.Equal(t, "kafka", pub.Name())

	fp.err = errors.New("broker down")
	assert.Error(t, pub.Write(context.Background(), sampleSnapshot()))
}

type fakeExec struct {
	query string
	args  []any
	calls int
}

func (e *fakeExec) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	e.calls++
	e.query, e.args = query, args
	return nil, nil
}

func TestClickHouseSignalHistoryWritesOneRowPerStrategy(t *testing.T) {
	fe := &fakeExec{}
	h := &ClickHouseSignalHistory{db: fe, table: "signaldesk.strategy_history"}

	require.NoError(t, h.Write(context.Background(), sampleSnapshot()))
	assert.Equal(t, 1, fe.calls)
	assert.True(t, strings.HasPrefix(fe.query, "INSERT INTO signaldesk.strategy_history ("))
	assert.Equal(t, 2, strings.Count(fe.query, "(?, ?"))
	require.Len(t, fe.args, 30)
	assert.Equal(t, "Breakout", fe.args[4])
	assert.Equal(t, "BUY", fe.args[5])
	assert.Equal(t, int32(85), *fe.args[11].(*int32))
	assert.Equal(t, "2025-06-02T09:00:00Z", fe.args[14])
	assert.Nil(t, fe.args[15+11].(*int32))
	assert.Equal(t, "", fe.args[15+14])
}

func TestClickHouseSignalHistorySkipsEmptySnapshots(t *testing.T) {
	fe := &fakeExec{}
	h := &ClickHouseSignalHistory{db: fe, table: "t"}
	snap := sampleSnapshot()
	snap.State.Strategies = nil

	require.NoError(t, h.Write(context.Background(), snap))
	assert.Equal(t, 0, fe.calls)
}

func TestHistorySchema(t *testing.T) {
	stmts := HistorySchema("signaldesk", "strategy_history")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "signaldesk.strategy_history")
	assert.Contains(t, stmts[1], "ReplacingMergeTree")
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// HistorySchema returns the DDL for the strategy history table. ReplacingMergeTree collapses
// the same signal written by consecutive polls.
func HistorySchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	recorded_at DateTime64(3),
	pair LowCardinality(String),
	scope String,
	cycle_id String,
	strategy_name String,
	direction LowCardinality(String),
	entry Float64,
	take_profit Nullable(Float64),
	take_profit_2 Nullable(Float64),
	stop_loss Nullable(Float64),
	risk_reward Nullable(Float64),
	confidence_percent Nullable(Int32),
	timeframe Nullable(String),
	status LowCardinality(String),
	signal_ts String
) ENGINE = ReplacingMergeTree(recorded_at)
ORDER BY (pair, scope, strategy_name, signal_ts)`, database, table),
	}
}

// ClickHouseSignalHistory archives the strategies of every snapshot.
type ClickHouseSignalHistory struct {
	db    execer
	table string
}

var _ domrepo.SnapshotSink = (*ClickHouseSignalHistory)(nil)

// NewClickHouseSignalHistory writes into table (qualified as "db.table").
func NewClickHouseSignalHistory(db *sql.DB, table string) *ClickHouseSignalHistory {
	return &ClickHouseSignalHistory{db: db, table: table}
}

func (h *ClickHouseSignalHistory) Name() string { return "clickhouse" }

func (h *ClickHouseSignalHistory) Write(ctx context.Context, snap *models.Snapshot) error {
	strategies := snap.State.Strategies
	if len(strategies) == 0 {
		return nil
	}

	const cols = 15
	values := make([]string, 0, len(strategies))
	args := make([]any, 0, len(strategies)*cols)
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	for _, s := range strategies {
		values = append(values, placeholder)
		args = append(args,
			snap.Produced,
			snap.Pair,
			snap.Scope,
			snap.CycleID,
			s.StrategyName,
			string(s.Direction),
			s.Entry,
			s.TakeProfit,
			s.TakeProfit2,
			s.StopLoss,
			s.RiskReward,
			confidenceArg(s.ConfidencePercent),
			s.Timeframe,
			string(s.Status),
			derefOr(s.Timestamp, ""),
		)
	}

	q := fmt.Sprintf("INSERT INTO %s (recorded_at, pair, scope, cycle_id, strategy_name, direction, entry, take_profit, take_profit_2, stop_loss, risk_reward, confidence_percent, timeframe, status, signal_ts) VALUES %s",
		h.table, strings.Join(values, ","))
	if _, err := h.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert history %s: %w", snap.Pair, err)
	}
	return nil
}

func confidenceArg(p *int) *int32 {
	if p == nil {
		return nil
	}
	v := int32(*p)
	return &v
}

func derefOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

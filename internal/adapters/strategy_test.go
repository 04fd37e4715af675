package adapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/models"
)

var now = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func TestDecodeSignalRESTScenario(t *testing.T) {
	raw := []byte(`{"strategy_name":"Breakout","direction":"LONG","entry_level":2350,"take_profit":2385,"stop_loss":2325,"confidence":"High","pair":"XAUUSD"}`)

	res := DecodeSignal(raw, now)
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, ShapeRESTObject, res.Shape)

	s := res.Value
	require.NotNil(t, s)
	assert.Equal(t, "Breakout", s.StrategyName)
	assert.Equal(t, models.DirectionBuy, s.Direction)
	assert.Equal(t, 2350.0, s.Entry)
	require.NotNil(t, s.TakeProfit)
	assert.Equal(t, 2385.0, *s.TakeProfit)
	require.NotNil(t, s.StopLoss)
	assert.Equal(t, 2325.0, *s.StopLoss)
	require.NotNil(t, s.ConfidenceText)
	assert.Equal(t, "High", *s.ConfidenceText)
	require.NotNil(t, s.ConfidencePercent)
	assert.Equal(t, 85, *s.ConfidencePercent)
	assert.Equal(t, "XAUUSD", s.Symbol)
	assert.Equal(t, models.StatusActive, s.Status)
	assert.Nil(t, s.TakeProfit2)
	assert.Nil(t, s.Timestamp)
}

func TestDecodeSignalAliases(t *testing.T) {
	raw := []byte(`{"direction":"short","entry":1.0845,"tp":1.08,"tp2":1.07,"sl":1.09,"rr":2.5,"symbol":"EURUSD","confidence":"Confidence: 72%"}`)

	res := DecodeSignal(raw, now)
	require.True(t, res.OK())
	s := res.Value
	assert.Equal(t, models.DefaultStrategyName, s.StrategyName)
	assert.Equal(t, models.DirectionSell, s.Direction)
	assert.Equal(t, 1.0845, s.Entry)
	assert.Equal(t, 1.08, *s.TakeProfit)
	assert.Equal(t, 1.07, *s.TakeProfit2)
	assert.Equal(t, 1.09, *s.StopLoss)
	assert.Equal(t, 2.5, *s.RiskReward)
	assert.Equal(t, "EURUSD", s.Symbol)
	assert.Equal(t, 72, *s.ConfidencePercent)
}

func TestDecodeSignalPrimaryBeatsAliasEvenWhenZero(t *testing.T) {
	res := DecodeSignal([]byte(`{"entry_level":0,"entry":10,"take_profit":0,"tp":5}`), now)
	require.True(t, res.OK())
	assert.Equal(t, 0.0, res.Value.Entry)
	assert.Equal(t, 0.0, *res.Value.TakeProfit)
}

func TestDecodeSignalEntryDefaultsToZero(t *testing.T) {
	res := DecodeSignal([]byte(`{"direction":"long"}`), now)
	require.True(t, res.OK())
	assert.Equal(t, 0.0, res.Value.Entry)
	assert.Nil(t, res.Value.ConfidencePercent)
	assert.Nil(t, res.Value.ConfidenceText)
}

func TestDecodeSignalExpired(t *testing.T) {
	ts := now.Add(-31 * time.Minute).Format(time.RFC3339)
	res := DecodeSignal([]byte(`{"direction":"long","timestamp":"`+ts+`","expiry_minutes":30}`), now)
	require.True(t, res.OK())
	assert.Equal(t, models.StatusExpired, res.Value.Status)
	assert.Equal(t, ts, *res.Value.Timestamp)
	assert.Equal(t, 30.0, *res.Value.ExpiryMinutes)
}

func TestDecodeSignalAbsentIsEmptyNotMalformed(t *testing.T) {
	for _, raw := range []string{"", "null", "false", `""`} {
		res := DecodeSignal([]byte(raw), now)
		assert.Equal(t, KindEmpty, res.Kind, raw)
		assert.Nil(t, res.Value, raw)
	}
}

func TestDecodeSignalMalformed(t *testing.T) {
	for _, raw := range []string{"{", `"just text"`, `[1,2]`, `42`} {
		res := DecodeSignal([]byte(raw), now)
		assert.Equal(t, KindMalformed, res.Kind, raw)
		assert.Error(t, res.Err, raw)
		assert.Nil(t, res.Value, raw)
	}
}

func TestDecodeStrategiesWebhookScenario(t *testing.T) {
	raw := []byte(`[{}, {"output":{"strategy_signals":[{"strategy_name":"X","direction":"short","entry_signal":{"level":10},"symbol":"EURUSD"}]}}]`)

	res := DecodeStrategies(raw, now)
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, ShapeWebhookBatch, res.Shape)
	require.Len(t, res.Value, 1)
	assert.Equal(t, "X", res.Value[0].StrategyName)
	assert.Equal(t, models.DirectionSell, res.Value[0].Direction)
	assert.Equal(t, 10.0, res.Value[0].Entry)
	assert.Equal(t, "EURUSD", res.Value[0].Symbol)
}

func TestDecodeStrategiesWebhookFlattensInOrder(t *testing.T) {
	raw := []byte(`[
		{"output":{"strategy_signals":[
			{"strategy_name":"A","direction":"long","entry_signal":{"level":1,"timeframe":"M15"},"confidence":"medium","symbol":"XAUUSD"},
			null,
			{"strategy_name":"B","direction":"short","entry_signal":{"level":2},"symbol":"XAUUSD"}
		]}},
		{"output":{}},
		"noise",
		{"output":{"strategy_signals":[{"strategy_name":"C","direction":"LONG","entry_signal":{"level":3},"take_profit":4,"stop_loss":2,"risk_reward_ratio":2,"symbol":"XAUUSD"}]}}
	]`)

	res := DecodeStrategies(raw, now)
	require.True(t, res.OK(), res.Err)
	require.Len(t, res.Value, 3)

	names := []string{res.Value[0].StrategyName, res.Value[1].StrategyName, res.Value[2].StrategyName}
	assert.Equal(t, []string{"A", "B", "C"}, names)
	assert.Equal(t, "M15", *res.Value[0].Timeframe)
	assert.Equal(t, 65, *res.Value[0].ConfidencePercent)
	assert.Equal(t, models.DirectionBuy, res.Value[2].Direction)
	assert.Equal(t, 4.0, *res.Value[2].TakeProfit)
	assert.Equal(t, 2.0, *res.Value[2].RiskReward)
}

func TestDecodeStrategiesWebhookWithoutSignalsIsEmpty(t *testing.T) {
	res := DecodeStrategies([]byte(`[{},{"output":{"strategy_signals":[]}}]`), now)
	assert.Equal(t, KindEmpty, res.Kind)
	assert.Empty(t, res.Value)
}

func TestDecodeStrategiesWebhookBadEntryIsMalformed(t *testing.T) {
	res := DecodeStrategies([]byte(`[{"output":{"strategy_signals":["oops"]}}]`), now)
	assert.Equal(t, KindMalformed, res.Kind)
	assert.Empty(t, res.Value)
}

func TestDecodeStrategiesRESTObject(t *testing.T) {
	res := DecodeStrategies([]byte(`{"strategy_name":"Range","direction":"long","entry":5}`), now)
	require.True(t, res.OK())
	assert.Equal(t, ShapeRESTObject, res.Shape)
	require.Len(t, res.Value, 1)
	assert.Equal(t, "Range", res.Value[0].StrategyName)
}

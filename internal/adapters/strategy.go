package adapters

import (
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/normalize"
)

// restFields lists, per strategy attribute, the REST field name followed by its shorthand alias.
var restFields = struct {
	name, entry, tp, tp2, sl, rr, expiry, symbol []string
}{
	name:   []string{"strategy_name"},
	entry:  []string{"entry_level", "entry"},
	tp:     []string{"take_profit", "tp"},
	tp2:    []string{"take_profit_2", "tp2"},
	sl:     []string{"stop_loss", "sl"},
	rr:     []string{"risk_reward_ratio", "rr"},
	expiry: []string{"expiry_minutes"},
	symbol: []string{"pair", "symbol"},
}

// DecodeStrategies reads a strategy payload in either the webhook batch layout
// (array of {output:{strategy_signals:[...]}}) or the REST layout (one flat object).
// now is used to derive Active/Expired.
func DecodeStrategies(raw []byte, now time.Time) Result[[]models.Strategy] {
	return decode(raw, []shape[[]models.Strategy]{
		{name: ShapeWebhookBatch, match: isArray, decode: func(v any) ([]models.Strategy, bool, error) {
			return decodeWebhookBatch(v.([]any), now)
		}},
		{name: ShapeRESTObject, match: isObject, decode: func(v any) ([]models.Strategy, bool, error) {
			f, _ := normalize.AsFields(v)
			return []models.Strategy{MapRESTSignal(f, now)}, true, nil
		}},
	})
}

// DecodeSignal reads a single REST signal. An absent payload yields KindEmpty,
// meaning "no active signal" rather than an empty list.
func DecodeSignal(raw []byte, now time.Time) Result[*models.Strategy] {
	return decode(raw, []shape[*models.Strategy]{
		{name: ShapeRESTObject, match: isObject, decode: func(v any) (*models.Strategy, bool, error) {
			f, _ := normalize.AsFields(v)
			s := MapRESTSignal(f, now)
			return &s, true, nil
		}},
	})
}

func decodeWebhookBatch(items []any, now time.Time) ([]models.Strategy, bool, error) {
	out := make([]models.Strategy, 0)
	for i, item := range items {
		wrapper, ok := normalize.AsFields(item)
		if !ok {
			continue
		}
		output, ok := wrapper.Object("output")
		if !ok {
			continue
		}
		signals, ok := output["strategy_signals"].([]any)
		if !ok {
			continue
		}
		for j, entry := range signals {
			if falsy(entry) {
				continue
			}
			f, ok := normalize.AsFields(entry)
			if !ok {
				return nil, false, fmt.Errorf("batch[%d].strategy_signals[%d]: expected object, got %T", i, j, entry)
			}
			out = append(out, MapWebhookEntry(f, now))
		}
	}
	return out, len(out) > 0, nil
}

// MapWebhookEntry maps one automation-backend strategy entry.
func MapWebhookEntry(f normalize.Fields, now time.Time) models.Strategy {
	signal, _ := f.Object("entry_signal")

	s := models.Strategy{
		StrategyName:  stringOr(f.String("strategy_name"), models.DefaultStrategyName),
		Direction:     normalize.Direction(stringOr(f.String("direction"), "")),
		Entry:         numberOr(signal.Number("level"), 0),
		TakeProfit:    f.Number("take_profit"),
		TakeProfit2:   f.Number("take_profit_2"),
		StopLoss:      f.Number("stop_loss"),
		Timeframe:     signal.String("timeframe"),
		RiskReward:    f.Number("risk_reward_ratio"),
		Timestamp:     f.String("timestamp"),
		ExpiryMinutes: f.Number("expiry_minutes"),
		Symbol:        stringOr(f.String("symbol"), ""),
	}
	s.ConfidenceText, s.ConfidencePercent = confidence(f)
	s.Status = normalize.Status(s.Timestamp, s.ExpiryMinutes, now)
	return s
}

// MapRESTSignal maps one flat API signal, trying the REST field name before its alias.
func MapRESTSignal(f normalize.Fields, now time.Time) models.Strategy {
	s := models.Strategy{
		StrategyName:  stringOr(f.String(restFields.name...), models.DefaultStrategyName),
		Direction:     normalize.Direction(stringOr(f.String("direction"), "")),
		Entry:         numberOr(f.Number(restFields.entry...), 0),
		TakeProfit:    f.Number(restFields.tp...),
		TakeProfit2:   f.Number(restFields.tp2...),
		StopLoss:      f.Number(restFields.sl...),
		Timeframe:     f.String("timeframe"),
		RiskReward:    f.Number(restFields.rr...),
		Timestamp:     f.String("timestamp"),
		ExpiryMinutes: f.Number(restFields.expiry...),
		Symbol:        stringOr(f.String(restFields.symbol...), ""),
	}
	s.ConfidenceText, s.ConfidencePercent = confidence(f)
	s.Status = normalize.Status(s.Timestamp, s.ExpiryMinutes, now)
	return s
}

// confidence reads the label and an optional numeric percent. A numeric "confidence"
// value is treated as the percent itself.
func confidence(f normalize.Fields) (*string, *int) {
	numeric := f.Number("confidence_percent")
	text := f.String("confidence")
	if text == nil && numeric == nil {
		numeric = f.Number("confidence")
	}
	return text, normalize.ConfidencePercent(text, numeric)
}

func stringOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func numberOr(n *float64, def float64) float64 {
	if n == nil {
		return def
	}
	return *n
}

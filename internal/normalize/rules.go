// Package normalize holds the derivation rules shared by every upstream adapter.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"SignalDesk/internal/domain/models"
	xutil "SignalDesk/pkg/util"
)

// Confidence levels mapped from free-form confidence labels.
const (
	ConfidenceHigh   = 85
	ConfidenceMedium = 65
	ConfidenceLow    = 40
)

var confidenceDigits = regexp.MustCompile(`(\d+)%?`)

// Direction maps an upstream direction to BUY/SELL.
// Only "long" (any case) is BUY; everything else, including "short", "BUY" and "", is SELL.
func Direction(raw string) models.Direction {
	if strings.EqualFold(raw, "long") {
		return models.DirectionBuy
	}
	return models.DirectionSell
}

// ConfidencePercent prefers an upstream numeric percent, then keywords, then the first number
// in the text. It returns nil when nothing applies so absence is not read as low confidence.
// A numeric value strictly between 0 and 1 is a fraction and is scaled to a percent.
func ConfidencePercent(text *string, numeric *float64) *int {
	if numeric != nil {
		if v, ok := numericPercent(*numeric); ok {
			return &v
		}
	}
	if text == nil || *text == "" {
		return nil
	}
	t := strings.ToLower(*text)
	switch {
	case strings.Contains(t, "high"):
		return intPtr(ConfidenceHigh)
	case strings.Contains(t, "medium"):
		return intPtr(ConfidenceMedium)
	case strings.Contains(t, "low"):
		return intPtr(ConfidenceLow)
	}
	m := confidenceDigits.FindStringSubmatch(*text)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &v
}

// Status reports Expired only when now is strictly past timestamp+expiry.
// Missing or unparseable inputs always yield Active.
func Status(timestamp *string, expiryMinutes *float64, now time.Time) models.Status {
	if timestamp == nil || expiryMinutes == nil {
		return models.StatusActive
	}
	start, ok := xutil.ParseTime(*timestamp)
	if !ok {
		return models.StatusActive
	}
	expires := start.Add(time.Duration(*expiryMinutes * float64(time.Minute)))
	if now.After(expires) {
		return models.StatusExpired
	}
	return models.StatusActive
}

// numericPercent rounds to the nearest whole percent, capped at 100. Negative and NaN
// values are not a confidence.
func numericPercent(f float64) (int, bool) {
	if math.IsNaN(f) || f < 0 {
		return 0, false
	}
	if f > 0 && f < 1 {
		f *= 100
	}
	return int(math.Round(math.Min(f, 100))), true
}

func intPtr(v int) *int { return &v }

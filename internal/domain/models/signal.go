package models

// Direction is the trade side of a normalized strategy.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Status tells whether a signal is still inside its validity window.
type Status string

const (
	StatusActive  Status = "Active"
	StatusExpired Status = "Expired"
)

// DefaultStrategyName labels signals that arrive without a strategy_name.
const DefaultStrategyName = "Unknown Strategy"

// Strategy is the canonical signal record consumed by the dashboard.
// Entry is always a finite number; optional levels are nil when upstream omitted them.
type Strategy struct {
	StrategyName      string    `json:"strategyName"`
	Direction         Direction `json:"direction"`
	Entry             float64   `json:"entry"`
	TakeProfit        *float64  `json:"takeProfit,omitempty"`
	TakeProfit2       *float64  `json:"takeProfit2,omitempty"`
	StopLoss          *float64  `json:"stopLoss,omitempty"`
	Timeframe         *string   `json:"timeframe,omitempty"`
	ConfidenceText    *string   `json:"confidenceText,omitempty"`
	ConfidencePercent *int      `json:"confidencePercent,omitempty"`
	RiskReward        *float64  `json:"riskReward,omitempty"`
	Status            Status    `json:"status"`
	Timestamp         *string   `json:"timestamp,omitempty"`
	ExpiryMinutes     *float64  `json:"expiryMinutes,omitempty"`
	Symbol            string    `json:"symbol"`
}

// NewsItem is one current-news card. Text is never blank.
type NewsItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// UpcomingMode selects which half of Upcoming is populated.
type UpcomingMode string

const (
	UpcomingText UpcomingMode = "text"
	UpcomingHTML UpcomingMode = "html"
)

type UpcomingItem struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// Upcoming is either a single advisory (Mode text) or a list of entries (Mode html), never both.
type Upcoming struct {
	Mode  UpcomingMode   `json:"mode"`
	Text  string         `json:"text,omitempty"`
	Items []UpcomingItem `json:"items,omitempty"`
}

// NewUpcomingText builds the single-advisory variant.
func NewUpcomingText(text string) *Upcoming {
	return &Upcoming{Mode: UpcomingText, Text: text}
}

// NewUpcomingHTML builds the list variant.
func NewUpcomingHTML(items []UpcomingItem) *Upcoming {
	return &Upcoming{Mode: UpcomingHTML, Items: items}
}

package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type DashboardRequest struct {
	Pair string `param:"pair" json:"pair" validate:"required,alphanum,min=3,max=16"`
	Wait bool   `query:"wait" json:"wait" default:"false"`
}

type RefreshRequest struct {
	Pair string `param:"pair" json:"pair" validate:"required,alphanum,min=3,max=16"`
}

type StreamRequest struct {
	Pair string `param:"pair" json:"pair" validate:"required,alphanum,min=3,max=16"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Service  string `json:"service"`
	Upstream bool   `json:"upstream"`
}

// Event is pushed to stream subscribers.
type Event struct {
	Type   EventType       `json:"type"`
	State  *DashboardState `json:"state,omitempty"`
	Notice string          `json:"notice,omitempty"`
}

type EventType string

const (
	EventState  EventType = "state"
	EventNotice EventType = "notice"
)

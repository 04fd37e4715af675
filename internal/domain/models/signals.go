package models

import "time"

// DashboardState is the snapshot an orchestrator exposes for one pair/caller.
// It is replaced as a whole; consumers only ever see copies.
type DashboardState struct {
	Strategies  []Strategy `json:"strategies"`
	RegimeText  *string    `json:"regimeText"`
	CurrentNews []NewsItem `json:"currentNews"`
	Upcoming    *Upcoming  `json:"upcoming"`
	Loading     bool       `json:"loading"`
	Error       *string    `json:"error"`
	LastUpdated *time.Time `json:"lastUpdated"`
}

// Clone returns a deep copy so callers cannot alias orchestrator-owned slices. Empty
// lists stay non-nil so they encode as [] rather than null.
func (s DashboardState) Clone() DashboardState {
	out := s
	if s.Strategies != nil {
		out.Strategies = append(make([]Strategy, 0, len(s.Strategies)), s.Strategies...)
	}
	if s.CurrentNews != nil {
		out.CurrentNews = append(make([]NewsItem, 0, len(s.CurrentNews)), s.CurrentNews...)
	}
	if s.Upcoming != nil {
		up := *s.Upcoming
		if up.Items != nil {
			up.Items = append(make([]UpcomingItem, 0, len(up.Items)), up.Items...)
		}
		out.Upcoming = &up
	}
	return out
}

// Phase is the orchestrator lifecycle derived from a state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

func (s DashboardState) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.Error != nil:
		return PhaseError
	case s.LastUpdated != nil:
		return PhaseReady
	default:
		return PhaseIdle
	}
}

// Snapshot is what sinks receive after a successful cycle. Scope identifies the caller
// without carrying the token: "anon" or a short hash of it.
type Snapshot struct {
	EventID  string         `json:"eventId"`
	Pair     string         `json:"pair"`
	Scope    string         `json:"scope"`
	CycleID  string         `json:"cycleId"`
	Authed   bool           `json:"authenticated"`
	State    DashboardState `json:"state"`
	Produced time.Time      `json:"producedAt"`
}

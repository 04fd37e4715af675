package repository

import (
	"context"
	"errors"
	"time"

	"SignalDesk/internal/domain/models"
)

// Endpoint names one upstream dashboard resource.
type Endpoint string

const (
	EndpointStrategy     Endpoint = "strategy"
	EndpointRegime       Endpoint = "regime"
	EndpointCurrentNews  Endpoint = "current_news"
	EndpointUpcomingNews Endpoint = "upcoming_news"
)

// Endpoints lists the dashboard resources in fetch order.
var Endpoints = []Endpoint{EndpointStrategy, EndpointRegime, EndpointCurrentNews, EndpointUpcomingNews}

var (
	// ErrEndpointDisabled is returned by a source for an endpoint it has no URL for.
	ErrEndpointDisabled = errors.New("endpoint disabled")
	// ErrSnapshotNotFound is returned by a SnapshotStore with nothing saved for the key.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// Response is one upstream reply. Any HTTP status is a Response; only transport
// failures are errors.
type Response struct {
	Status int
	Body   []byte
	Detail string
}

// SignalSource fetches raw dashboard payloads from an upstream backend.
type SignalSource interface {
	Fetch(ctx context.Context, ep Endpoint, pair, token string) (*Response, error)
	Health(ctx context.Context) error
}

// SnapshotSink receives every successfully merged snapshot.
type SnapshotSink interface {
	Name() string
	Write(ctx context.Context, snap *models.Snapshot) error
}

// SnapshotStore is a sink that can also hand back the last snapshot for a pair and scope.
type SnapshotStore interface {
	SnapshotSink
	Load(ctx context.Context, pair, scope string) (*models.Snapshot, error)
}

type Metrics interface {
	RecordCycle(outcome string, d time.Duration)
	RecordEndpoint(endpoint, outcome string)
	RecordDecode(endpoint, kind string)
	RecordSinkError(sink string)
	SetActiveOrchestrators(n int)
	SetBreakerState(endpoint string, state int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordCycle(string, time.Duration) {}
func (NopMetrics) RecordEndpoint(string, string) {}
func (NopMetrics) RecordDecode(string, string) {}
func (NopMetrics) RecordSinkError(string) {}
func (NopMetrics) SetActiveOrchestrators(int) {}
func (NopMetrics) SetBreakerState(string, int) {}

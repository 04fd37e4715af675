package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/poller"
)

// DefaultIdleTTL is how long an orchestrator with no subscribers and no requests keeps polling.
const DefaultIdleTTL = 10 * time.Minute

// HubConfig is shared by every orchestrator the hub creates.
type HubConfig struct {
	Interval  time.Duration
	FreePairs []string
	IdleTTL   time.Duration
}

// HubOption configures Hub.
type HubOption func(*Hub)

// Hub owns one orchestrator per pair and caller scope. Orchestrators are created on first
// use, seeded from the snapshot store and stopped once idle for IdleTTL.
type Hub struct {
	cfg     HubConfig
	source  repository.SignalSource
	store   repository.SnapshotStore
	sinks   []repository.SnapshotSink
	log     *applogger.Logger
	metrics repository.Metrics
	now     func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	sweeper *poller.Task

	mu     sync.Mutex
	items  map[string]*Orchestrator
	closed bool
}

// NewHub creates a hub. Call Start to enable idle eviction.
func NewHub(cfg HubConfig, source repository.SignalSource, opts ...HubOption) *Hub {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:     cfg,
		source:  source,
		log:     applogger.Nop(),
		metrics: repository.NopMetrics{},
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		items:   make(map[string]*Orchestrator),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.sweeper = poller.New(h.cfg.IdleTTL/2, func(context.Context, bool) { h.Sweep() })
	return h
}

// Start begins periodic idle eviction.
func (h *Hub) Start() {
	h.sweeper.Start(h.ctx)
}

// Get returns the running orchestrator for pair and token, creating it if needed.
func (h *Hub) Get(ctx context.Context, pair, token string) (*Orchestrator, error) {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	key := pair + "|" + Scope(token)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	if o, ok := h.items[key]; ok {
		h.mu.Unlock()
		o.touch()
		return o, nil
	}
	o := NewOrchestrator(Config{
		Pair:      pair,
		Token:     token,
		Interval:  h.cfg.Interval,
		FreePairs: h.cfg.FreePairs,
	}, h.source,
		WithSinks(h.sinks...),
		WithLogger(h.log),
		WithMetrics(h.metrics),
		WithClock(h.now),
	)
	h.items[key] = o
	n := len(h.items)
	h.mu.Unlock()

	h.metrics.SetActiveOrchestrators(n)
	h.seed(ctx, o)
	o.Start(h.ctx)
	h.log.Info("orchestrator started", applogger.String("pair", pair), applogger.String("scope", o.Scope()))
	return o, nil
}

func (h *Hub) seed(ctx context.Context, o *Orchestrator) {
	if h.store == nil {
		return
	}
	snap, err := h.store.Load(ctx, o.Pair(), o.Scope())
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
		return
	case err != nil:
		h.log.Warn("snapshot load failed", applogger.String("pair", o.Pair()), applogger.Error(err))
		return
	}
	if o.Seed(snap.State) {
		h.log.Debug("orchestrator seeded", applogger.String("pair", o.Pair()), applogger.String("event_id", snap.EventID))
	}
}

// Sweep stops orchestrators idle for longer than IdleTTL and returns how many it removed.
func (h *Hub) Sweep() int {
	cutoff := h.now().Add(-h.cfg.IdleTTL)

	h.mu.Lock()
	var idle []*Orchestrator
	for key, o := range h.items {
		if o.IdleSince(cutoff) {
			idle = append(idle, o)
			delete(h.items, key)
		}
	}
	n := len(h.items)
	h.mu.Unlock()

	for _, o := range idle {
		o.Close()
		h.log.Info("orchestrator evicted", applogger.String("pair", o.Pair()), applogger.String("scope", o.Scope()))
	}
	if len(idle) > 0 {
		h.metrics.SetActiveOrchestrators(n)
	}
	return len(idle)
}

// Len returns the number of live orchestrators.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

// CheckHealth reports upstream health.
func (h *Hub) CheckHealth(ctx context.Context) bool {
	if err := h.source.Health(ctx); err != nil {
		h.log.Debug("upstream health check failed", applogger.Error(err))
		return false
	}
	return true
}

// Close stops every orchestrator and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	items := h.items
	h.items = make(map[string]*Orchestrator)
	h.mu.Unlock()

	h.sweeper.Stop()
	h.cancel()
	for _, o := range items {
		o.Close()
	}
	h.metrics.SetActiveOrchestrators(0)
}

// WithStore seeds new orchestrators from store and writes every snapshot back to it.
func WithStore(store repository.SnapshotStore) HubOption {
	return func(h *Hub) {
		h.store = store
		h.sinks = append(h.sinks, store)
	}
}

// WithHubSinks adds snapshot sinks passed to every orchestrator.
func WithHubSinks(sinks ...repository.SnapshotSink) HubOption {
	return func(h *Hub) {
		h.sinks = append(h.sinks, sinks...)
	}
}

// WithHubLogger sets the logger.
func WithHubLogger(l *applogger.Logger) HubOption {
	return func(h *Hub) {
		h.log = l
	}
}

// WithHubMetrics sets the metrics recorder.
func WithHubMetrics(m repository.Metrics) HubOption {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithHubClock replaces time.Now.
func WithHubClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		h.now = now
	}
}

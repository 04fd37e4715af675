package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/poller"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultFreePair = "XAUUSD"
)

// Notices are surfaced to interactive callers only; background cycles stay quiet.
const (
	NoticeLoginForPair = "Please log in to view signals for this pair."
	NoticeAuthRequired = "Authentication required. Please log in."
	NoticeQuotaReached = "Free limit reached. Please log in for unlimited access."
	NoticeLoadFailed   = "Failed to load data. Please try again."
)

// Error texts placed in DashboardState.Error.
const (
	ErrTextAuthForPair = "Authentication required for this pair"
	ErrTextLoadFailed  = "Failed to load data"
)

// Cycle outcomes reported to metrics.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeRestricted = "restricted"
	OutcomeAbandoned  = "abandoned"
)

var (
	ErrRestrictedPair = errors.New("authentication required for this pair")
	ErrClosed         = errors.New("orchestrator closed")

	errDisabled = errors.New("orchestrator disabled")
	errBusy     = errors.New("cycle in flight")
)

// Config is fixed for the life of an orchestrator. A different pair or token means a
// different orchestrator.
type Config struct {
	Pair      string
	Token     string
	Interval  time.Duration
	FreePairs []string
	// Disabled starts the orchestrator inert until SetEnabled(true).
	Disabled bool
}

// Option configures Orchestrator.
type Option func(*Orchestrator)

// Orchestrator polls the four dashboard endpoints for one pair and caller and owns the
// resulting DashboardState. Every state change is a whole-value swap under mu; results of
// a cycle that was cancelled or superseded (gen moved on) are dropped. Scheduled ticks never
// supersede a cycle in flight; a manual refresh always does.
type Orchestrator struct {
	cfg         Config
	scope       string
	free        map[string]struct{}
	source      repository.SignalSource
	sinks       []repository.SnapshotSink
	log         *applogger.Logger
	metrics     repository.Metrics
	now         func() time.Time
	newID       func() string
	sinkTimeout time.Duration

	task *poller.Task

	mu          sync.Mutex
	sinksIdle   *sync.Cond
	pendingSink int
	state       models.DashboardState
	enabled     bool
	closed      bool
	gen         uint64
	cancelCycle context.CancelFunc
	subs        map[uint64]chan models.Event
	nextSub     uint64
	lastAccess  time.Time
}

// NewOrchestrator creates a stopped orchestrator.
func NewOrchestrator(cfg Config, source repository.SignalSource, opts ...Option) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if len(cfg.FreePairs) == 0 {
		cfg.FreePairs = []string{DefaultFreePair}
	}

	o := &Orchestrator{
		cfg:         cfg,
		scope:       Scope(cfg.Token),
		free:        make(map[string]struct{}, len(cfg.FreePairs)),
		source:      source,
		log:         applogger.Nop(),
		metrics:     repository.NopMetrics{},
		now:         time.Now,
		newID:       uuid.NewString,
		sinkTimeout: 5 * time.Second,
		state:       emptyState(),
		enabled:     !cfg.Disabled,
		subs:        make(map[uint64]chan models.Event),
	}
	o.sinksIdle = sync.NewCond(&o.mu)
	for _, p := range cfg.FreePairs {
		o.free[strings.ToUpper(p)] = struct{}{}
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With(applogger.String("pair", cfg.Pair), applogger.String("scope", o.scope))
	o.lastAccess = o.now()
	o.task = poller.New(cfg.Interval, func(ctx context.Context, first bool) {
		_, _ = o.runCycle(ctx, first, true)
	})
	return o
}

// Scope identifies a caller without keeping the token: "anon" or a short SHA-256 prefix.
func Scope(token string) string {
	if token == "" {
		return "anon"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

func (o *Orchestrator) Pair() string  { return o.cfg.Pair }
func (o *Orchestrator) Scope() string { return o.scope }

// Start runs one notifying cycle now and then silent cycles every interval. A disabled
// or already running orchestrator ignores it.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	ok := o.enabled && !o.closed
	o.mu.Unlock()
	if ok {
		o.task.Start(ctx)
	}
}

// Stop cancels the timer and any in-flight cycle, and waits for pending sink writes.
// Subscribers stay attached; Start resumes polling.
func (o *Orchestrator) Stop() {
	o.task.Stop()

	o.mu.Lock()
	o.gen++
	if o.cancelCycle != nil {
		o.cancelCycle()
		o.cancelCycle = nil
	}
	if o.state.Loading {
		o.state.Loading = false
		o.broadcastStateLocked()
	}
	for o.pendingSink > 0 {
		o.sinksIdle.Wait()
	}
	o.mu.Unlock()
}

// Close stops the orchestrator for good and closes every subscriber channel.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.Stop()

	o.mu.Lock()
	for id, ch := range o.subs {
		close(ch)
		delete(o.subs, id)
	}
	o.mu.Unlock()
}

// SetEnabled toggles polling. Enabling runs a notifying cycle immediately.
func (o *Orchestrator) SetEnabled(ctx context.Context, enabled bool) {
	o.mu.Lock()
	changed := o.enabled != enabled && !o.closed
	o.enabled = enabled
	o.mu.Unlock()
	if !changed {
		return
	}
	if enabled {
		o.task.Reset(ctx)
	} else {
		o.Stop()
	}
}

// Refresh runs a notifying cycle now, superseding any cycle in flight, and returns the
// state it produced. If another refresh supersedes it in turn, it returns the state that
// cycle settles on. The cycle is not tied to ctx cancellation so an impatient caller
// cannot leave the orchestrator half-updated.
func (o *Orchestrator) Refresh(ctx context.Context) (models.DashboardState, error) {
	o.touch()
	o.mu.Lock()
	enabled, closed := o.enabled, o.closed
	o.mu.Unlock()
	if closed {
		return o.Snapshot(), ErrClosed
	}
	if !enabled {
		return o.Snapshot(), nil
	}
	return o.runCycle(context.WithoutCancel(ctx), true, false)
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() models.DashboardState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Seed installs a previously stored state if nothing has been loaded yet.
func (o *Orchestrator) Seed(state models.DashboardState) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Loading || o.state.LastUpdated != nil || o.state.Error != nil {
		return false
	}
	next := state.Clone()
	next.Loading = false
	next.Error = nil
	o.state = normalizeState(next)
	o.broadcastStateLocked()
	return true
}

// CheckHealth reports whether the upstream health endpoint answers 2xx.
func (o *Orchestrator) CheckHealth(ctx context.Context) bool {
	if err := o.source.Health(ctx); err != nil {
		o.log.Debug("upstream health check failed", applogger.Error(err))
		return false
	}
	return true
}

// Subscribe returns a channel of state and notice events plus a cancel func. Slow
// readers miss events rather than block the orchestrator.
func (o *Orchestrator) Subscribe(buffer int) (<-chan models.Event, func()) {
	ch := make(chan models.Event, buffer)
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	o.lastAccess = o.now()
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if c, ok := o.subs[id]; ok {
				delete(o.subs, id)
				close(c)
			}
			o.lastAccess = o.now()
		})
	}
}

// WaitReady blocks until the state has either data or an error, or ctx ends.
func (o *Orchestrator) WaitReady(ctx context.Context) (models.DashboardState, error) {
	events, cancel := o.Subscribe(8)
	defer cancel()

	if s := o.Snapshot(); settled(s) {
		return s, nil
	}
	for {
		select {
		case <-ctx.Done():
			return o.Snapshot(), ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return o.Snapshot(), ErrClosed
			}
			if ev.Type == models.EventState && ev.State != nil && settled(*ev.State) {
				return *ev.State, nil
			}
		}
	}
}

// IdleSince reports whether nobody is subscribed and nobody asked for the state since t.
func (o *Orchestrator) IdleSince(t time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs) == 0 && o.lastAccess.Before(t)
}

func (o *Orchestrator) touch() {
	o.mu.Lock()
	o.lastAccess = o.now()
	o.mu.Unlock()
}

func (o *Orchestrator) restricted() bool {
	_, free := o.free[strings.ToUpper(o.cfg.Pair)]
	return !free && o.cfg.Token == ""
}

// runCycle fetches, merges and publishes one cycle. Scheduled cycles yield to one already
// in flight; manual ones that lose to a newer cycle wait for it to settle.
func (o *Orchestrator) runCycle(parent context.Context, notify, scheduled bool) (models.DashboardState, error) {
	if o.restricted() {
		o.mu.Lock()
		o.state.Loading = false
		msg := ErrTextAuthForPair
		o.state.Error = &msg
		o.broadcastStateLocked()
		if notify {
			o.noticeLocked(NoticeLoginForPair)
		}
		state := o.state.Clone()
		o.mu.Unlock()
		o.metrics.RecordCycle(OutcomeRestricted, 0)
		return state, ErrRestrictedPair
	}

	ctx, cancel, gen, err := o.beginCycle(parent, scheduled)
	switch {
	case errors.Is(err, errBusy), errors.Is(err, errDisabled):
		o.log.Debug("cycle skipped", applogger.Error(err))
		return o.Snapshot(), nil
	case err != nil:
		return o.Snapshot(), err
	}
	defer cancel()

	start := time.Now()
	cycleID := o.newID()
	res, err := o.collect(ctx)

	switch {
	case ctx.Err() != nil:
		o.metrics.RecordCycle(OutcomeAbandoned, time.Since(start))
		o.log.Debug("cycle abandoned", applogger.String("cycle_id", cycleID))
		o.abandon(gen)
		return o.settle(parent, scheduled), nil
	case err != nil:
		o.log.Error("cycle failed", applogger.String("cycle_id", cycleID), applogger.Error(err))
		return o.finishFailed(parent, gen, err.Error(), notify, scheduled, start), nil
	case res.enabled > 0 && res.failed == res.enabled:
		o.log.Warn("cycle failed: every endpoint unreachable",
			applogger.String("cycle_id", cycleID),
			applogger.Int("endpoints", res.enabled),
		)
		return o.finishFailed(parent, gen, ErrTextLoadFailed, notify, scheduled, start), nil
	}

	state, applied := o.apply(gen, res, cycleID, notify)
	if !applied {
		o.metrics.RecordCycle(OutcomeAbandoned, time.Since(start))
		return o.settle(parent, scheduled), nil
	}
	o.metrics.RecordCycle(OutcomeSuccess, time.Since(start))
	o.log.Debug("cycle applied",
		applogger.String("cycle_id", cycleID),
		applogger.Int("strategies", len(state.Strategies)),
		applogger.Int("news", len(state.CurrentNews)),
		applogger.Bool("auth_required", res.auth),
		applogger.Bool("quota_reached", res.quota),
	)
	return state, nil
}

func (o *Orchestrator) finishFailed(parent context.Context, gen uint64, msg string, notify, scheduled bool, start time.Time) models.DashboardState {
	state, applied := o.fail(gen, msg, notify)
	if !applied {
		o.metrics.RecordCycle(OutcomeAbandoned, time.Since(start))
		return o.settle(parent, scheduled)
	}
	o.metrics.RecordCycle(OutcomeFailure, time.Since(start))
	return state
}

// settle returns the current state for scheduled cycles, and for manual ones waits until
// whichever cycle replaced theirs has finished.
func (o *Orchestrator) settle(ctx context.Context, scheduled bool) models.DashboardState {
	if scheduled {
		return o.Snapshot()
	}
	events, cancel := o.Subscribe(8)
	defer cancel()
	for {
		if s := o.Snapshot(); !s.Loading {
			return s
		}
		select {
		case <-ctx.Done():
			return o.Snapshot()
		case _, ok := <-events:
			if !ok {
				return o.Snapshot()
			}
		}
	}
}

func (o *Orchestrator) beginCycle(parent context.Context, scheduled bool) (context.Context, context.CancelFunc, uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.closed:
		return nil, nil, 0, ErrClosed
	case !o.enabled:
		return nil, nil, 0, errDisabled
	case scheduled && o.cancelCycle != nil:
		return nil, nil, 0, errBusy
	}
	ctx, cancel := context.WithCancel(parent)
	if o.cancelCycle != nil {
		o.cancelCycle()
	}
	o.gen++
	o.cancelCycle = cancel
	o.state.Loading = true
	o.state.Error = nil
	o.broadcastStateLocked()
	return ctx, cancel, o.gen, nil
}

func (o *Orchestrator) apply(gen uint64, res cycleResult, cycleID string, notify bool) (models.DashboardState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return o.state.Clone(), false
	}
	o.cancelCycle = nil
	o.state = res.state
	o.broadcastStateLocked()
	if notify {
		switch {
		case res.auth:
			o.noticeLocked(NoticeAuthRequired)
		case res.quota:
			o.noticeLocked(NoticeQuotaReached)
		}
	}
	state := o.state.Clone()

	if len(o.sinks) > 0 {
		snap := &models.Snapshot{
			EventID:  o.newID(),
			Pair:     o.cfg.Pair,
			Scope:    o.scope,
			CycleID:  cycleID,
			Authed:   o.cfg.Token != "",
			State:    state.Clone(),
			Produced: *state.LastUpdated,
		}
		o.pendingSink++
		go o.writeSinks(snap)
	}
	return state, true
}

func (o *Orchestrator) fail(gen uint64, msg string, notify bool) (models.DashboardState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return o.state.Clone(), false
	}
	o.cancelCycle = nil
	o.state.Loading = false
	o.state.Error = &msg
	o.broadcastStateLocked()
	if notify {
		o.noticeLocked(NoticeLoadFailed)
	}
	return o.state.Clone(), true
}

// abandon clears the loading flag when the cycle's context ended without anyone replacing it.
func (o *Orchestrator) abandon(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return
	}
	o.cancelCycle = nil
	if o.state.Loading {
		o.state.Loading = false
		o.broadcastStateLocked()
	}
}

func (o *Orchestrator) writeSinks(snap *models.Snapshot) {
	defer func() {
		o.mu.Lock()
		o.pendingSink--
		if o.pendingSink == 0 {
			o.sinksIdle.Broadcast()
		}
		o.mu.Unlock()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), o.sinkTimeout)
	defer cancel()
	for _, s := range o.sinks {
		if err := s.Write(ctx, snap); err != nil {
			o.metrics.RecordSinkError(s.Name())
			o.log.Warn("snapshot sink failed",
				applogger.String("sink", s.Name()),
				applogger.String("event_id", snap.EventID),
				applogger.Error(err),
			)
		}
	}
}

func (o *Orchestrator) broadcastStateLocked() {
	state := o.state.Clone()
	o.sendLocked(models.Event{Type: models.EventState, State: &state})
}

func (o *Orchestrator) noticeLocked(msg string) {
	o.sendLocked(models.Event{Type: models.EventNotice, Notice: msg})
}

func (o *Orchestrator) sendLocked(ev models.Event) {
	for _, ch := range o.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func settled(s models.DashboardState) bool {
	return !s.Loading && (s.LastUpdated != nil || s.Error != nil)
}

func emptyState() models.DashboardState {
	return models.DashboardState{
		Strategies:  []models.Strategy{},
		CurrentNews: []models.NewsItem{},
	}
}

func normalizeState(s models.DashboardState) models.DashboardState {
	if s.Strategies == nil {
		s.Strategies = []models.Strategy{}
	}
	if s.CurrentNews == nil {
		s.CurrentNews = []models.NewsItem{}
	}
	return s
}

// WithSinks sets the snapshot sinks written after every applied cycle.
func WithSinks(sinks ...repository.SnapshotSink) Option {
	return func(o *Orchestrator) {
		o.sinks = append(o.sinks, sinks...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m repository.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock replaces time.Now for status derivation and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithIDs replaces the cycle and event id generator.
func WithIDs(newID func() string) Option {
	return func(o *Orchestrator) {
		o.newID = newID
	}
}

// WithSinkTimeout bounds each round of sink writes.
func WithSinkTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.sinkTimeout = d
	}
}

func (o *Orchestrator) String() string {
	return fmt.Sprintf("orchestrator(%s/%s)", o.cfg.Pair, o.scope)
}

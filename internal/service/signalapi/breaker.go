package signalapi

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
)

// BreakerSettings tunes the upstream circuit breakers.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker. Zero disables tripping.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a half-open probe.
	OpenTimeout time.Duration
	// Interval clears closed-state counts periodically. Zero never clears.
	Interval time.Duration
}

// DefaultBreakerSettings trips after five straight failures and probes again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second, Interval: time.Minute}
}

// breaker returns the breaker guarding target. Endpoints whose URL does not depend on the
// pair share one breaker; the rest get one per pair so a bad pair cannot open the circuit
// for the others.
func (s *Source) breaker(ep repository.Endpoint, pair, target string) *gobreaker.CircuitBreaker {
	key := string(ep)
	if target != s.resolve(ep, "") {
		key += ":" + pair
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	br, ok := s.breakers[key]
	if !ok {
		br = s.newBreaker(string(ep), key)
		s.breakers[key] = br
	}
	return br
}

func (s *Source) newBreaker(endpoint, key string) *gobreaker.CircuitBreaker {
	threshold := s.settings.ConsecutiveFailures
	st := gobreaker.Settings{
		Name:        s.name + ":" + key,
		MaxRequests: 1,
		Interval:    s.settings.Interval,
		Timeout:     s.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		// A superseded cycle cancelling its own request says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.metrics.SetBreakerState(endpoint, breakerLevel(to))
			s.log.Warn("upstream breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	}
	return gobreaker.NewCircuitBreaker(st)
}

func breakerLevel(st gobreaker.State) int {
	switch st {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

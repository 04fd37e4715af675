// Package signalapi fetches raw dashboard payloads from the REST API backend or from
// webhook-style automation endpoints. Both shapes sit behind one Source with a circuit
// breaker per endpoint, and per pair where the endpoint URL carries the pair.
package signalapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/sony/gobreaker"

	"SignalDesk/internal/domain/repository"
	xhttp "SignalDesk/pkg/http"
	applogger "SignalDesk/pkg/logger"
)

// pairPlaceholder in a webhook URL is replaced with the escaped pair.
const pairPlaceholder = "{pair}"

var errServerStatus = errors.New("upstream server error")

// Resolver maps an endpoint and pair to a URL. An empty URL disables the endpoint.
type Resolver func(ep repository.Endpoint, pair string) string

// Option configures Source.
type Option func(*Source)

// Source implements repository.SignalSource over HTTP.
type Source struct {
	name      string
	client    *xhttp.Client
	resolve   Resolver
	healthURL string
	settings  BreakerSettings

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker

	log       *applogger.Logger
	metrics   repository.Metrics
}

var _ repository.SignalSource = (*Source)(nil)

// NewAPISource targets the REST backend rooted at baseURL.
func NewAPISource(baseURL string, client *xhttp.Client, opts ...Option) *Source {
	base := strings.TrimRight(baseURL, "/")
	resolve := func(ep repository.Endpoint, pair string) string {
		switch ep {
		case repository.EndpointStrategy:
			return base + "/api/signals/" + url.PathEscape(pair)
		case repository.EndpointRegime:
			return base + "/api/regime"
		case repository.EndpointCurrentNews:
			return base + "/api/news/current"
		case repository.EndpointUpcomingNews:
			return base + "/api/news/upcoming"
		default:
			return ""
		}
	}
	return newSource("api", client, resolve, base+"/api/health", opts...)
}

// WebhookURLs holds the optional automation endpoints. Empty fields disable that endpoint.
type WebhookURLs struct {
	Strategy     string
	Regime       string
	CurrentNews  string
	UpcomingNews string
	Health       string
}

// NewWebhookSource targets webhook-style endpoints.
func NewWebhookSource(urls WebhookURLs, client *xhttp.Client, opts ...Option) *Source {
	byEndpoint := map[repository.Endpoint]string{
		repository.EndpointStrategy:     urls.Strategy,
		repository.EndpointRegime:       urls.Regime,
		repository.EndpointCurrentNews:  urls.CurrentNews,
		repository.EndpointUpcomingNews: urls.UpcomingNews,
	}
	resolve := func(ep repository.Endpoint, pair string) string {
		return strings.ReplaceAll(byEndpoint[ep], pairPlaceholder, url.PathEscape(pair))
	}
	return newSource("webhook", client, resolve, urls.Health, opts...)
}

func newSource(name string, client *xhttp.Client, resolve Resolver, healthURL string, opts ...Option) *Source {
	s := &Source{
		name:      name,
		client:    client,
		resolve:   resolve,
		healthURL: healthURL,
		settings:  DefaultBreakerSettings(),
		log:       applogger.Nop(),
		metrics:   repository.NopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breakers = make(map[string]*gobreaker.CircuitBreaker)
	return s
}

// Name reports "api" or "webhook".
func (s *Source) Name() string {
	return s.name
}

// Fetch requests one endpoint. Every HTTP status comes back as a Response; the error is
// reserved for disabled endpoints, transport failures and an open breaker.
func (s *Source) Fetch(ctx context.Context, ep repository.Endpoint, pair, token string) (*repository.Response, error) {
	target := s.resolve(ep, pair)
	if target == "" {
		return nil, repository.ErrEndpointDisabled
	}
	br := s.breaker(ep, pair, target)

	out, err := br.Execute(func() (interface{}, error) {
		resp, err := s.client.Fetch(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         target,
			BearerToken: token,
		})
		if err != nil {
			return nil, err
		}
		if resp.Status >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})

	resp, _ := out.(*xhttp.Response)
	switch {
	case err == nil, errors.Is(err, errServerStatus):
		if !resp.OK() {
			s.log.Debug("upstream non-2xx",
				applogger.String("source", s.name),
				applogger.String("endpoint", string(ep)),
				applogger.Int("status", resp.Status),
				applogger.String("detail", resp.Detail),
			)
		}
		return &repository.Response{Status: resp.Status, Body: resp.Body, Detail: resp.Detail}, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%s %s: circuit open: %w", s.name, ep, err)
	default:
		return nil, fmt.Errorf("%s %s: %w", s.name, ep, err)
	}
}

// Health calls the upstream health endpoint. Any 2xx is healthy.
func (s *Source) Health(ctx context.Context) error {
	if s.healthURL == "" {
		return repository.ErrEndpointDisabled
	}
	resp, err := s.client.Fetch(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: s.healthURL})
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("health: status %d", resp.Status)
	}
	return nil
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(s *Source) {
		s.log = l
	}
}

// WithMetrics sets the metrics recorder used for breaker transitions.
func WithMetrics(m repository.Metrics) Option {
	return func(s *Source) {
		s.metrics = m
	}
}

// WithBreaker overrides the breaker settings.
func WithBreaker(bs BreakerSettings) Option {
	return func(s *Source) {
		s.settings = bs
	}
}

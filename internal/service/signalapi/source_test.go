package signalapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/domain/repository"
	xhttp "SignalDesk/pkg/http"
)

func TestAPISourcePathsAndBearer(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Path] = r.Header.Get("Authorization")
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	src := NewAPISource(srv.URL+"/", xhttp.NewClient())
	for _, ep := range repository.Endpoints {
		resp, err := src.Fetch(context.Background(), ep, "XAUUSD", "tok")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]string{
		"/api/signals/XAUUSD": "Bearer tok",
		"/api/regime":         "Bearer tok",
		"/api/news/current":   "Bearer tok",
		"/api/news/upcoming":  "Bearer tok",
	}, seen)
}

func TestFetchReturnsAuthAndQuotaStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/regime" {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"detail":"Free limit reached"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	src := NewAPISource(srv.URL, xhttp.NewClient())
	resp, err := src.Fetch(context.Background(), repository.EndpointStrategy, "EURUSD", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp, err = src.Fetch(context.Background(), repository.EndpointRegime, "EURUSD", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusPaymentRequired, resp.Status)
	assert.Equal(t, "Free limit reached", resp.Detail)
}

func TestWebhookSourceDisabledEndpoint(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/hook/strategy/GBPUSD", r.URL.Path)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src := NewWebhookSource(WebhookURLs{Strategy: srv.URL + "/hook/strategy/{pair}"}, xhttp.NewClient())

	_, err := src.Fetch(context.Background(), repository.EndpointRegime, "GBPUSD", "")
	assert.ErrorIs(t, err, repository.ErrEndpointDisabled)

	resp, err := src.Fetch(context.Background(), repository.EndpointStrategy, "GBPUSD", "")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(resp.Body))
	assert.Equal(t, int32(1), hits.Load())

	assert.ErrorIs(t, src.Health(context.Background()), repository.ErrEndpointDisabled)
}

func TestBreakerOpensAfterConsecutiveServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewAPISource(srv.URL, xhttp.NewClient(),
		WithBreaker(BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Hour}))

	for i := 0; i < 2; i++ {
		resp, err := src.Fetch(context.Background(), repository.EndpointRegime, "XAUUSD", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.Status)
	}

	_, err := src.Fetch(context.Background(), repository.EndpointRegime, "XAUUSD", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, int32(2), hits.Load())

	// Other endpoints have their own breaker.
	_, err = src.Fetch(context.Background(), repository.EndpointStrategy, "XAUUSD", "")
	require.NoError(t, err)
}

func TestBadPairDoesNotOpenBreakerForOtherPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/signals/BADPAIR" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	src := NewAPISource(srv.URL, xhttp.NewClient(),
		WithBreaker(BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: time.Hour}))

	for i := 0; i < 5; i++ {
		resp, err := src.Fetch(context.Background(), repository.EndpointStrategy, "BADPAIR", "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
	}
	_, err := src.Fetch(context.Background(), repository.EndpointStrategy, "BADPAIR", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")

	resp, err := src.Fetch(context.Background(), repository.EndpointStrategy, "XAUUSD", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestPairIndependentEndpointSharesBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewAPISource(srv.URL, xhttp.NewClient(),
		WithBreaker(BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Hour}))

	_, err := src.Fetch(context.Background(), repository.EndpointRegime, "XAUUSD", "")
	require.NoError(t, err)
	_, err = src.Fetch(context.Background(), repository.EndpointRegime, "EURUSD", "")
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), repository.EndpointRegime, "GBPUSD", "")
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCancelledRequestDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	src := NewAPISource(srv.URL, xhttp.NewClient(),
		WithBreaker(BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Hour}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Fetch(ctx, repository.EndpointStrategy, "XAUUSD", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	_, err = src.Fetch(context.Background(), repository.EndpointStrategy, "XAUUSD", "")
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	src := NewAPISource(srv.URL, xhttp.NewClient())
	require.NoError(t, src.Health(context.Background()))

	healthy.Store(false)
	require.Error(t, src.Health(context.Background()))
}

package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSendsBearerAndReadsBody(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient()
	resp, err := c.Fetch(context.Background(), &RequestOptions{URL: srv.URL, BearerToken: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.True(t, resp.OK())
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Empty(t, resp.Detail)
}

func TestFetchOmitsAuthorizationWithoutToken(t *testing.T) {
	var present bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Authorization"]
	}))
	defer srv.Close()

	_, err := NewClient().Fetch(context.Background(), &RequestOptions{URL: srv.URL})
	require.NoError(t, err)
	assert.False(t, present)
}

func TestFetchReturnsStatusAndDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"detail":"daily quota exceeded"}`))
	}))
	defer srv.Close()

	resp, err := NewClient().Fetch(context.Background(), &RequestOptions{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusPaymentRequired, resp.Status)
	assert.False(t, resp.OK())
	assert.Equal(t, "daily quota exceeded", resp.Detail)
}

func TestFetchTimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(20 * time.Millisecond))
	_, err := c.Fetch(context.Background(), &RequestOptions{URL: srv.URL})
	require.Error(t, err)
}

func TestSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"missing q"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var out struct {
		Status string `json:"status"`
	}
	c := NewClient()
	err := c.SendAndParse(context.Background(), &RequestOptions{URL: srv.URL, QueryParams: map[string][]string{"q": {"1"}}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Status)

	err = c.SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing q")
}

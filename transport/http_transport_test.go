package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportClassifiesStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("down"))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(true)
	outcome, err := tr.Send(context.Background(), Request{Method: "GET", URL: srv.URL}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 503, outcome.Code)
	require.NotNil(t, outcome.Body)
	assert.Equal(t, "down", *outcome.Body)
}

func TestHTTPTransportTimeoutMapsToSentinelZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(true)
	outcome, err := tr.Send(context.Background(), Request{Method: "GET", URL: srv.URL}, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Code)
}

func TestHTTPTransportMalformedRequestMapsToInconsistent(t *testing.T) {
	tr := NewHTTPTransport(true)
	outcome, err := tr.Send(context.Background(), Request{Method: "GET", URL: "://not-a-url"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, -1, outcome.Code)
}

func TestHTTPTransportRateLimiterThrottles(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(true, WithRateLimit(1000, 1))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := tr.Send(context.Background(), Request{Method: "GET", URL: srv.URL}, time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, hits)
	// 1000 rps with burst 1: the second and third calls each wait ~1ms.
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Millisecond)
}

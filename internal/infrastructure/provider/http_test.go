package provider_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trip_sentinel/internal/infrastructure/provider"
)

func TestHTTPProviderAttemptBooking(t *testing.T) {
	rq := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rq.Equal(http.MethodPost, r.Method)
		rq.Equal("/v1/bookings", r.URL.Path)
		rq.Equal("attempt-1", r.Header.Get("Idempotency-Key"))
		rq.Equal("api-key", r.Header.Get("X-Api-Key"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"confirmed"}`)
	}))
	defer server.Close()

	p := provider.NewHTTPProvider(server.URL, "api-key", 5*time.Second)

	result, err := p.AttemptBooking(context.Background(), "attempt-1", "deal-1", 240000)
	rq.NoError(err)
	rq.True(result.Committed)
}

func TestHTTPProviderRejection(t *testing.T) {
	rq := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"status":"rejected","reason":"sold out"}`)
	}))
	defer server.Close()

	p := provider.NewHTTPProvider(server.URL, "api-key", 5*time.Second)

	result, err := p.AttemptBooking(context.Background(), "attempt-1", "deal-1", 240000)
	rq.NoError(err)
	rq.False(result.Committed)
	rq.Equal("sold out", result.Reason)
}

func TestHTTPProviderCancelTolerates404(t *testing.T) {
	rq := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rq.Equal(http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := provider.NewHTTPProvider(server.URL, "api-key", 5*time.Second)
	rq.NoError(p.CancelBooking(context.Background(), "attempt-1"))
}

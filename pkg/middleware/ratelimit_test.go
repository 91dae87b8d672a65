package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"event-ticketing/pkg/utils"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRateLimiter_PerKeyBuckets(t *testing.T) {
	limiter := NewRateLimiter(utils.RateLimitConfig{RPS: 1, Burst: 2})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, limiter.Allow("10.0.0.1", now))
	assert.True(t, limiter.Allow("10.0.0.1", now))
	assert.False(t, limiter.Allow("10.0.0.1", now))

	// other clients have their own bucket
	assert.True(t, limiter.Allow("10.0.0.2", now))

	// one token per second refills
	assert.True(t, limiter.Allow("10.0.0.1", now.Add(time.Second)))
	assert.False(t, limiter.Allow("10.0.0.1", now.Add(time.Second)))
}

func TestRateLimit_KeysOnClientHost(t *testing.T) {
	limiter := NewRateLimiter(utils.RateLimitConfig{RPS: 0.001, Burst: 1})
	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("203.0.113.7:5000").Code)

	// a new source port is still the same client
	rec := send("203.0.113.7:5001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, send("198.51.100.4:5000").Code)
}

func TestInternalToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		configured string
		sent       string
		want       int
	}{
		{name: "matching token", configured: "s3cret", sent: "s3cret", want: http.StatusNoContent},
		{name: "wrong token", configured: "s3cret", sent: "guess", want: http.StatusForbidden},
		{name: "missing header", configured: "s3cret", sent: "", want: http.StatusForbidden},
		{name: "hooks disabled", configured: "", sent: "", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/internal/sweeps/seat-holds", nil)
			if tt.sent != "" {
				req.Header.Set("X-Internal-Token", tt.sent)
			}
			rec := httptest.NewRecorder()
			InternalToken(tt.configured, zap.NewNop())(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

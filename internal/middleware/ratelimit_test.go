package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	wrapped := NewRateLimiter(client, 2, time.Minute).Limit(okHandler())

	for i := 0; i < 2; i++ {
		w := doRequest(wrapped, "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(wrapped, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_KeysByClientIP(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	wrapped := NewRateLimiter(client, 1, time.Minute).Limit(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(wrapped, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(wrapped, "10.0.0.1:5678").Code)

	// A different client still has a full budget.
	assert.Equal(t, http.StatusOK, doRequest(wrapped, "10.0.0.2:1234").Code)
	assert.True(t, mr.Exists("ratelimit:10.0.0.1"))
	assert.True(t, mr.Exists("ratelimit:10.0.0.2"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	wrapped := NewRateLimiter(client, 1, time.Minute).Limit(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(wrapped, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(wrapped, "10.0.0.1:1234").Code)

	mr.FastForward(61 * time.Second)

	assert.Equal(t, http.StatusOK, doRequest(wrapped, "10.0.0.1:1234").Code)
}

func TestRateLimiter_PassesThroughWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})

	wrapped := NewRateLimiter(client, 1, time.Minute).Limit(okHandler())

	for i := 0; i < 3; i++ {
		w := doRequest(wrapped, "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

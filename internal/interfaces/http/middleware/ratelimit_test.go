package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP_IgnoresForwardingHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set("X-Real-IP", "10.0.0.2")
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.3")
	assert.Equal(t, "10.0.0.1", ClientIP(r))

	r.RemoteAddr = "not-a-hostport"
	assert.Equal(t, "not-a-hostport", ClientIP(r))
}

func TestTrustedProxies_ClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.10 ", ""})
	require.NoError(t, err)
	require.Len(t, proxies, 2)

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"untrusted peer ignores headers", "198.51.100.9:1", "203.0.113.7", "203.0.113.8", "198.51.100.9"},
		{"trusted peer uses rightmost untrusted hop", "10.1.2.3:1", "1.1.1.1, 203.0.113.7, 10.0.0.3", "", "203.0.113.7"},
		{"all hops trusted", "10.1.2.3:1", "10.0.0.4, 10.0.0.3", "", "10.0.0.4"},
		{"trusted peer falls back to X-Real-IP", "192.168.1.10:1", "", "203.0.113.8", "203.0.113.8"},
		{"trusted peer without headers", "192.168.1.10:1", "", "", "192.168.1.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, proxies.ClientIP(r))
		})
	}

	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestRateLimit_RotatingForwardedForShareOneBudget(t *testing.T) {
	l := NewKeyedLimiter(60, 1, 0)
	h := RateLimit(l, RateLimitConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	allowed := 0
	for i := 0; i < 50; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "198.51.100.9:4000"
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestKeyedLimiter_BudgetPerKey(t *testing.T) {
	l := NewKeyedLimiter(60, 2, 0)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	ok, info := l.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, 60, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = l.Allow("a")
	assert.True(t, ok)
	ok, info = l.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 0, info.Remaining)
	assert.True(t, info.ResetAt.After(now))

	ok, _ = l.Allow("b")
	assert.True(t, ok, "keys are independent")

	// 60/min refills one token per second.
	now = now.Add(time.Second)
	ok, _ = l.Allow("a")
	assert.True(t, ok)
}

func TestKeyedLimiter_EvictIdle(t *testing.T) {
	l := NewKeyedLimiter(30, 0, 0)
	l.idleTTL = time.Minute
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(30 * time.Second)
	l.Allow("b")
	now = now.Add(45 * time.Second)
	l.evictIdle()
	assert.Equal(t, 1, l.Len())
	l.Stop()
	l.Stop()
}

func TestRateLimit_Rejects(t *testing.T) {
	var limitedName string
	limiter := NewKeyedLimiter(60, 1, 0)
	h := RateLimit(limiter, RateLimitConfig{
		Name:      "encode",
		OnLimited: func(name string, _ *http.Request) { limitedName = name },
	})(okHandler())

	send := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/encode_sequence", nil)
		r.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	first := send()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "60", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := send()
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.NotEmpty(t, second.Header().Get("X-RateLimit-Reset"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "COMMON_007", body["code"])
	assert.Equal(t, "encode", limitedName)
}

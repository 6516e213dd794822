package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"swarm-relay/internal/config"
)

func TestConnLimiterPerIP(t *testing.T) {
	cl := NewConnLimiter(2)

	if !cl.Allow("1.2.3.4") || !cl.Allow("1.2.3.4") {
		t.Fatal("first two connections should be allowed")
	}
	if cl.Allow("1.2.3.4") {
		t.Error("third connection should be rejected")
	}
	// Other IPs are unaffected
	if !cl.Allow("5.6.7.8") {
		t.Error("separate IP rejected")
	}

	cl.Release("1.2.3.4")
	if !cl.Allow("1.2.3.4") {
		t.Error("released slot not reusable")
	}
	if cl.Count("1.2.3.4") != 2 {
		t.Errorf("count %d, want 2", cl.Count("1.2.3.4"))
	}
}

func TestIPRateLimiterBurst(t *testing.T) {
	rl := NewIPRateLimiter(config.RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             3,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	allowed := 0
	for i := 0; i < 10; i++ {
		if rl.Allow("9.9.9.9") {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("allowed %d requests, want the burst of 3", allowed)
	}
}

func TestGetClientIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"plain remote addr", "10.0.0.1:5555", nil, "10.0.0.1"},
		{"x-forwarded-for single", "10.0.0.1:5555", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "1.2.3.4"},
		{"x-forwarded-for chain", "10.0.0.1:5555", map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "1.2.3.4"},
		{"x-real-ip", "10.0.0.1:5555", map[string]string{"X-Real-IP": "4.3.2.1"}, "4.3.2.1"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remoteAddr
		for k, v := range tc.headers {
			req.Header.Set(k, v)
		}
		if got := GetClientIP(req); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

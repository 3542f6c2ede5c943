package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	key := KeyByUserOrIP()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.0.0.9:1234"
	if got := key(c); got != "ip:10.0.0.9" {
		t.Fatalf("got %q", got)
	}
	c.Set(UserIDKey, int64(77))
	if got := key(c); got != "user:77" {
		t.Fatalf("got %q", got)
	}
}

func TestRateLimiter_ReusesAndSweepsBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByUserOrIP())
	if rl.burst != 1 {
		t.Fatalf("burst not coerced: %d", rl.burst)
	}
	now := time.Now()
	a := rl.limiter("a", now)
	if rl.limiter("a", now) != a {
		t.Fatalf("bucket not reused")
	}

	rl.limiter("b", now)
	rl.lookups = sweepEvery - 1
	rl.limiter("c", now.Add(rl.ttl))
	if rl.Len() != 1 {
		t.Fatalf("stale buckets survived sweep: %d", rl.Len())
	}
}

func TestRateLimiter_HandlerRejectsPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.001, 1, KeyByUserOrIP())

	r := gin.New()
	r.Use(RequestID(), Identity(), rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(user string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(UserIDHeader, user)
		r.ServeHTTP(w, req)
		return w
	}

	if w := do("1"); w.Code != http.StatusOK {
		t.Fatalf("first request: %d", w.Code)
	}
	w := do("1")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("want 429 with Retry-After, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["code"] != "rate_limited" {
		t.Fatalf("bad envelope %q: %v", w.Body.String(), err)
	}
	if w := do("2"); w.Code != http.StatusOK {
		t.Fatalf("other user throttled: %d", w.Code)
	}
}

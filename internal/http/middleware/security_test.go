package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveSecure(opt SecurityOptions, prep func(*http.Request)) http.Header {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders(opt))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if prep != nil {
		prep(req)
	}
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := serveSecure(SecurityOptions{}, nil)
	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS set without opt-in")
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}

	if h := serveSecure(opt, nil); h.Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS sent over plain HTTP")
	}
	h := serveSecure(opt, func(r *http.Request) { r.TLS = &tls.ConnectionState{} })
	if got := h.Get("Strict-Transport-Security"); got != "max-age=3600; includeSubDomains" {
		t.Fatalf("got %q", got)
	}
	h = serveSecure(SecurityOptions{EnableHSTS: true}, func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "HTTPS")
	})
	if got := h.Get("Strict-Transport-Security"); got != "max-age=15552000; includeSubDomains" {
		t.Fatalf("default max-age: got %q", got)
	}
}

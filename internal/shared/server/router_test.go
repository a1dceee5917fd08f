package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"jobassist/internal/services/health"
	"jobassist/internal/shared/config"
	"jobassist/internal/shared/server/middleware"
)

type stubHandler struct{}

func (stubHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/session/messages", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	rg.GET("/session/messages", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	rg.GET("/panic", func(c *gin.Context) { panic("boom") })
}

func newTestRouter() *gin.Engine {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	return NewRouter(RouterDeps{
		Config: config.Config{
			CORSAllowOrigin:    []string{"http://localhost:5173"},
			RateLimitPerSecond: 1,
			RateLimitBurst:     1,
		},
		Handlers: []RouteRegistrar{stubHandler{}},
		Limiter:  middleware.NewRateLimiter(func() time.Time { return now }),
	})
}

func TestHealth(t *testing.T) {
	r := newTestRouter()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || !body["ok"] {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestMetricsExposed(t *testing.T) {
	r := newTestRouter()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "# HELP") {
		t.Fatalf("expected prometheus exposition, got %q", resp.Body.String())
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	r := newTestRouter()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"code":"not_found"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestPanicRecovered(t *testing.T) {
	r := newTestRouter()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/panic", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"code":"internal"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestBackendRoutesRateLimited(t *testing.T) {
	r := newTestRouter()

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/session/messages", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("read %d expected 200, got %d", i+1, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/session/messages", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("first send expected 200, got %d", resp.Code)
	}
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/session/messages", nil))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("second send expected 429, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}

type downPinger struct{}

func (downPinger) PingContext(context.Context) error { return errors.New("database is locked") }

func TestHealthReportsFailingDependency(t *testing.T) {
	svc := health.NewService()
	svc.Register("session_db", downPinger{})
	r := NewRouter(RouterDeps{Config: config.Config{RateLimitPerSecond: 1, RateLimitBurst: 1}, Health: svc})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	var body health.Report
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.OK || body.Checks["session_db"] != "database is locked" {
		t.Fatalf("unexpected body %+v", body)
	}
}

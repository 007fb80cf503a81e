package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "estate_portal_backend/internal/http"
	"estate_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testRouterConfig struct{ allowAll bool }

func (testRouterConfig) GetHTTPAddr() string              { return ":0" }
func (c testRouterConfig) GetCORSAllowAll() bool          { return c.allowAll }
func (testRouterConfig) GetCORSOrigins() []string         { return nil }
func (testRouterConfig) GetCORSAllowCreds() bool          { return false }
func (testRouterConfig) GetPublicRateLimitPerMinute() int { return 60 }
func (testRouterConfig) GetJWTAccessSecret() string       { return "test-secret" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type probeModule struct{}

func (probeModule) Name() string { return "probe" }

func (probeModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Public.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Protected.GET("/secret", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newTestApp(health apphttp.HealthChecker, allowAll bool) *apphttp.App {
	gin.SetMode(gin.TestMode)
	return &apphttp.App{
		Config:  testRouterConfig{allowAll: allowAll},
		Logger:  logger.New("development"),
		Health:  health,
		Modules: []apphttp.Module{probeModule{}},
	}
}

func get(engine *gin.Engine, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestReadinessReflectsDatabase(t *testing.T) {
	healthy := New(newTestApp(pinger{}, false))
	if rec := get(healthy, "/api/ready"); rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d", rec.Code)
	}

	down := New(newTestApp(pinger{err: errors.New("connection refused")}, false))
	if rec := get(down, "/api/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready status = %d, want 503", rec.Code)
	}
	if rec := get(down, "/api/health"); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestModuleGroups(t *testing.T) {
	engine := New(newTestApp(pinger{}, true))

	rec := get(engine, "/api/v1/public/ping", "Origin", "https://estate.example")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("public status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("cors header = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}

	if rec := get(engine, "/api/v1/secret"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("protected status = %d, want 401", rec.Code)
	}
}

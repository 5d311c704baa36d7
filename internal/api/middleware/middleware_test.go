package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gabrielsqw/badminton-club/config"
	"github.com/gabrielsqw/badminton-club/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubChecker struct {
	revoked map[string]bool
	err     error
}

func (s *stubChecker) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubLimiter) CheckRateLimit(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	s.calls++
	return s.allowed, s.err
}

func testJWTManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:               "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 30 * 24 * time.Hour,
	})
}

func protectedEngine(mgr *jwt.Manager, checker TokenChecker) *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuth(mgr, checker, zap.NewNop()), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserID)+"|"+c.GetString(CtxRole))
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := testJWTManager()
	sub := jwt.Subject{UserID: "u-alice", Username: "alice", Role: "member"}
	access, _ := mgr.GenerateAccessToken(sub)
	refresh, _ := mgr.GenerateRefreshToken(sub, false)

	r := protectedEngine(mgr, nil)

	if w := get(r, "/me", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing header: expected 401, got %d", w.Code)
	}
	if w := get(r, "/me", "not-a-token"); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: expected 401, got %d", w.Code)
	}
	if w := get(r, "/me", refresh); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh token: expected 401, got %d", w.Code)
	}

	w := get(r, "/me", access)
	if w.Code != http.StatusOK {
		t.Fatalf("access token: expected 200, got %d", w.Code)
	}
	if w.Body.String() != "u-alice|member" {
		t.Errorf("identity not injected, got %q", w.Body.String())
	}
}

func TestJWTAuth_Blacklist(t *testing.T) {
	mgr := testJWTManager()
	access, _ := mgr.GenerateAccessToken(jwt.Subject{UserID: "u-alice", Role: "member"})
	claims, _ := mgr.ParseToken(access)

	r := protectedEngine(mgr, &stubChecker{revoked: map[string]bool{claims.ID: true}})
	if w := get(r, "/me", access); w.Code != http.StatusUnauthorized {
		t.Errorf("revoked token: expected 401, got %d", w.Code)
	}

	// 黑名单不可用时降级放行
	r = protectedEngine(mgr, &stubChecker{err: errors.New("redis down")})
	if w := get(r, "/me", access); w.Code != http.StatusOK {
		t.Errorf("blacklist outage should fail open, got %d", w.Code)
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	r := gin.New()
	r.GET("/admin", func(c *gin.Context) {
		c.Set(CtxRole, c.Query("role"))
		c.Next()
	}, RoleAuth("admin"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if w := get(r, "/admin?role=member", ""); w.Code != http.StatusForbidden {
		t.Errorf("member: expected 403, got %d", w.Code)
	}
	if w := get(r, "/admin?role=admin", ""); w.Code != http.StatusNoContent {
		t.Errorf("admin: expected 204, got %d", w.Code)
	}
	if w := get(r, "/admin", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no role: expected 401, got %d", w.Code)
	}
}

// ── RateLimit ──

func TestRateLimit(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	limiter := &stubLimiter{allowed: false}
	r := gin.New()
	r.POST("/login", RateLimit(limiter, 10, time.Minute, zap.NewNop()), ok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/login", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("over limit: expected 429, got %d", w.Code)
	}

	limiter = &stubLimiter{err: errors.New("redis down")}
	r = gin.New()
	r.POST("/login", RateLimit(limiter, 10, time.Minute, zap.NewNop()), ok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/login", nil))
	if w.Code != http.StatusOK {
		t.Errorf("limiter outage should fail open, got %d", w.Code)
	}

	r = gin.New()
	r.POST("/login", RateLimit(nil, 10, time.Minute, zap.NewNop()), ok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/login", nil))
	if w.Code != http.StatusOK {
		t.Errorf("nil limiter should pass through, got %d", w.Code)
	}
}

// ── RequestID / BodyLimit ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "abc-123" || w.Body.String() != "abc-123" {
		t.Errorf("expected incoming request id to be kept, got %q", w.Header().Get("X-Request-ID"))
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 100))
	r.ServeHTTP(w, req)
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("oversized request id should be replaced by a uuid, got %q", w.Header().Get("X-Request-ID"))
	}
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("a", 64))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader("small")))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

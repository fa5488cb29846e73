package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/config"
	"github.com/purelyricky/avashift-com-sub000/internal/api/handler"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/jwt"
)

func newEngine(t *testing.T) (*jwt.Manager, http.Handler) {
	t.Helper()
	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: "router-test-secret-key", AccessTokenTTL: time.Hour},
	}
	mgr := jwt.NewManager(&cfg.Auth)
	// 路由层测试只走到中间件拦截与参数校验，不触达 Service
	h := handler.New(&service.Service{})
	return mgr, Setup(cfg, h, mgr, nil, nil, zap.NewNop())
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	_, r := newEngine(t)

	w := do(r, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, "GET", "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "avashift_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, r := newEngine(t)

	for _, p := range []string{"/api/v1/projects", "/api/v1/me/shifts", "/api/v1/notifications", "/api/v1/admin/requests"} {
		w := do(r, "GET", p, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, p)
	}
}

func TestRoleGuards(t *testing.T) {
	mgr, r := newEngine(t)
	student, err := mgr.GenerateAccessToken("s1", "student")
	require.NoError(t, err)
	guard, err := mgr.GenerateAccessToken("g1", "guard")
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{"student cannot review", "GET", "/api/v1/admin/requests", student},
		{"student cannot create shifts", "POST", "/api/v1/shifts", student},
		{"student cannot confirm codes", "POST", "/api/v1/verification/confirm", student},
		{"guard cannot clock in", "POST", "/api/v1/shifts/x/clock-in", guard},
		{"guard cannot mark attendance", "PUT", "/api/v1/shifts/x/attendance/s1", guard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.token, "")
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestLoginValidation(t *testing.T) {
	_, r := newEngine(t)

	w := do(r, "POST", "/api/v1/auth/login", "", `{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":10001`)
}

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizmarket-backend/config"
	"github.com/ikkim/bizmarket-backend/internal/app/controller"
	"github.com/ikkim/bizmarket-backend/internal/middleware"
	"github.com/ikkim/bizmarket-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

// Guarded routes reject before any handler runs, so the controllers need no services here.
func setupRouter() *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	r := NewRouter(
		controller.NewCertificationController(nil, 1<<20),
		controller.NewCategoryPolicyController(nil),
		controller.NewSubscriptionController(nil, "webhook-secret"),
		controller.NewVerificationController(nil),
		controller.NewAuditController(nil),
		controller.NewNotificationController(nil, nil, cfg.CORS.AllowedOrigins),
		controller.NewProfileController(nil),
		middleware.NewAuthMiddleware(testSecret),
		cfg,
	)
	return r.Setup()
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, err := util.GenerateToken(7, role+"@example.com", role, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouter_Health(t *testing.T) {
	engine := setupRouter()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRouter_CORSPreflight(t *testing.T) {
	engine := setupRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/admin/audit", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_Guards(t *testing.T) {
	engine := setupRouter()

	tests := []struct {
		name   string
		method string
		path   string
		header map[string]string
		want   int
	}{
		{name: "admin route without token", method: http.MethodGet, path: "/api/v1/admin/audit", want: http.StatusUnauthorized},
		{name: "admin route as seller", method: http.MethodGet, path: "/api/v1/admin/audit",
			header: map[string]string{"Authorization": bearer(t, "seller")}, want: http.StatusForbidden},
		{name: "seller route as buyer", method: http.MethodGet, path: "/api/v1/seller/premium",
			header: map[string]string{"Authorization": bearer(t, "buyer")}, want: http.StatusForbidden},
		{name: "trust state without token", method: http.MethodGet, path: "/api/v1/sellers/1/trust", want: http.StatusUnauthorized},
		{name: "payment callback without secret", method: http.MethodPost, path: "/api/v1/payments/callback", want: http.StatusUnauthorized},
		{name: "refund with wrong secret", method: http.MethodPost, path: "/api/v1/payments/refund",
			header: map[string]string{controller.WebhookSecretHeader: "nope"}, want: http.StatusUnauthorized},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/stores", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

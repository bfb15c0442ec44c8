package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func serve(t *testing.T, handlers ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/t", handlers...)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondWithError_IncludesRequestIDAndAborts(t *testing.T) {
	reached := false
	w := serve(t,
		func(c *gin.Context) {
			c.Header(requestIDHeader, "req-123")
			RespondWithError(c, http.StatusForbidden, AuthzOwnerOnly, "본인만")
		},
		func(c *gin.Context) { reached = true },
	)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached)
	body := decodeError(t, w)
	assert.Equal(t, AuthzOwnerOnly, body.Error)
	assert.Equal(t, "req-123", body.RequestID)
}

func TestServiceUnavailable_SetsRetryAfter(t *testing.T) {
	tests := []struct {
		retry time.Duration
		want  string
	}{
		{retry: 1500 * time.Millisecond, want: "2"},
		{retry: 100 * time.Millisecond, want: "1"},
		{retry: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.retry), func(t *testing.T) {
			w := serve(t, func(c *gin.Context) {
				ServiceUnavailable(c, TrustBusy, "busy", tt.retry)
			})
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.Equal(t, tt.want, w.Header().Get("Retry-After"))
			assert.Equal(t, TrustBusy, decodeError(t, w).Error)
		})
	}
}

func TestParseAndRespond_LockTimeout(t *testing.T) {
	w := serve(t, func(c *gin.Context) {
		ParseAndRespond(c, http.StatusServiceUnavailable, fmt.Errorf("recompute: %s", "lock acquisition timed out"), "seller trust")
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, TrustBusy, decodeError(t, w).Error)
}

func TestParseError_NotFound(t *testing.T) {
	info := ParseError(fmt.Errorf("load: %w", gorm.ErrRecordNotFound), "certification")
	assert.Equal(t, ResourceNotFound, info.Code)
	assert.NotEmpty(t, info.Message)
}

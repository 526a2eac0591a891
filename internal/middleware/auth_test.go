package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(auth *APIKeyAuth) *gin.Engine {
	r := gin.New()
	r.POST("/sweep", auth.Handler(), func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	})
	return r
}

func TestNewAPIKeyAuth(t *testing.T) {
	t.Parallel()

	t.Run("drops empty and duplicate keys", func(t *testing.T) {
		t.Parallel()

		auth := NewAPIKeyAuth([]string{"key1", "", "key2", "key1"}, nil)

		require.NotNil(t, auth)
		assert.ElementsMatch(t, []string{"key1", "key2"}, auth.apiKeys)
		assert.True(t, auth.Enabled())
	})

	t.Run("no keys", func(t *testing.T) {
		t.Parallel()

		auth := NewAPIKeyAuth(nil, nil)

		assert.False(t, auth.Enabled())
		assert.NotNil(t, auth.logger)
	})
}

func TestAPIKeyAuth_Handler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		keys       []string
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "valid X-API-Key",
			keys:       []string{"secret"},
			headers:    map[string]string{"X-API-Key": "secret"},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "valid bearer token",
			keys:       []string{"other", "secret"},
			headers:    map[string]string{"Authorization": "Bearer secret"},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "X-API-Key wins over bearer",
			keys:       []string{"secret"},
			headers:    map[string]string{"X-API-Key": "wrong", "Authorization": "Bearer secret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong key",
			keys:       []string{"secret"},
			headers:    map[string]string{"X-API-Key": "nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic auth is not accepted",
			keys:       []string{"secret"},
			headers:    map[string]string{"Authorization": "Basic secret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing key",
			keys:       []string{"secret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no keys configured",
			headers:    map[string]string{"X-API-Key": "secret"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newRouter(NewAPIKeyAuth(tt.keys, nil))
			req := httptest.NewRequest(http.MethodPost, "/sweep", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
			}
		})
	}
}

func TestAPIKeyAuth_LogsRejections(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	router := newRouter(NewAPIKeyAuth([]string{"secret"}, zap.New(core)))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/sweep", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "unauthorized request", entry.Message)
	assert.Equal(t, "/sweep", entry.ContextMap()["path"])
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "request served", logs.All()[0].Message)
	assert.Equal(t, "request failed", logs.All()[1].Message)
	assert.EqualValues(t, 500, logs.All()[1].ContextMap()["status"])
}

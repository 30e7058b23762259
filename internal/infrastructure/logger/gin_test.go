package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func observedEngine(handlers ...gin.HandlerFunc) (*gin.Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	engine := gin.New()
	engine.Use(Recovery(log))
	engine.Use(GinMiddleware(log))
	engine.GET("/api/v1/wallet/preview", handlers...)
	return engine, logs
}

func TestGinMiddleware(t *testing.T) {
	t.Run("logs the user behind a request", func(t *testing.T) {
		engine, logs := observedEngine(func(c *gin.Context) { c.String(http.StatusOK, "ok") })

		req := httptest.NewRequest("GET", "/api/v1/wallet/preview?week=2025-06-09", nil)
		req.Header.Set("X-User-ID", "user-1")
		engine.ServeHTTP(httptest.NewRecorder(), req)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.InfoLevel, entry.Level)

		fields := entry.ContextMap()
		assert.Equal(t, "user-1", fields["user_id"])
		assert.Equal(t, "/api/v1/wallet/preview", fields["path"])
		assert.Equal(t, "week=2025-06-09", fields["query"])
		assert.EqualValues(t, http.StatusOK, fields["status"])
	})

	t.Run("client errors log at warn", func(t *testing.T) {
		engine, logs := observedEngine(func(c *gin.Context) { c.String(http.StatusBadRequest, "bad") })

		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/wallet/preview", nil))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	})

	t.Run("server errors log at error", func(t *testing.T) {
		engine, logs := observedEngine(func(c *gin.Context) { c.String(http.StatusBadGateway, "processor down") })

		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/wallet/preview", nil))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	})
}

func TestRecovery(t *testing.T) {
	engine, logs := observedEngine(func(c *gin.Context) { panic("corrupt bucket") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/wallet/preview", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	recovered := logs.FilterMessage("panic recovered")
	require.Equal(t, 1, recovered.Len())
	assert.Equal(t, "corrupt bucket", recovered.All()[0].ContextMap()["panic"])
}

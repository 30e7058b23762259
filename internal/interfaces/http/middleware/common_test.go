package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(mw gin.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	engine := gin.New()
	engine.Use(mw)
	engine.GET("/wallet/preview", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	engine.POST("/ticks", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestCORS_DefaultsClosed(t *testing.T) {
	t.Run("unknown origin gets no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/wallet/preview", nil)
		req.Header.Set("Origin", "https://somewhere.example")
		w := serve(CORS(), req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same-origin request passes through", func(t *testing.T) {
		w := serve(CORS(), httptest.NewRequest("GET", "/wallet/preview", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("preflight answers 204 even when closed", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/ticks", nil)
		req.Header.Set("Origin", "https://somewhere.example")
		w := serve(CORS(), req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("identity header survives preflight", func(t *testing.T) {
		assert.Contains(t, DefaultCORSConfig().AllowHeaders, "X-User-ID")
	})
}

func TestCORSWithConfig_AllowedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"chrome-extension://abcdefgh"}

	t.Run("preflight from the extension is fully approved", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/ticks", nil)
		req.Header.Set("Origin", "chrome-extension://abcdefgh")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "X-User-ID")
		w := serve(CORSWithConfig(cfg), req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "chrome-extension://abcdefgh", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-User-ID")
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("actual request echoes the allowed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/wallet/preview", nil)
		req.Header.Set("Origin", "chrome-extension://abcdefgh")
		w := serve(CORSWithConfig(cfg), req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "chrome-extension://abcdefgh", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origins stay rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/wallet/preview", nil)
		req.Header.Set("Origin", "chrome-extension://impostor")
		w := serve(CORSWithConfig(cfg), req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard never pairs with credentials", func(t *testing.T) {
		wide := DefaultCORSConfig()
		wide.AllowOrigins = []string{"*"}

		req := httptest.NewRequest("GET", "/wallet/preview", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		w := serve(CORSWithConfig(wide), req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestRequestID(t *testing.T) {
	t.Run("generates a uuid when absent", func(t *testing.T) {
		w := serve(RequestID(), httptest.NewRequest("GET", "/wallet/preview", nil))

		id := w.Header().Get("X-Request-ID")
		require.NotEmpty(t, id)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("keeps an inbound id for retry correlation", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/wallet/preview", nil)
		req.Header.Set("X-Request-ID", "retry-7")
		w := serve(RequestID(), req)

		assert.Equal(t, "retry-7", w.Header().Get("X-Request-ID"))
	})
}

func TestSecure(t *testing.T) {
	w := serve(Secure(), httptest.NewRequest("GET", "/wallet/preview", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func postTicks(limit int64, body string, contentLength int64) *httptest.ResponseRecorder {
	engine := gin.New()
	engine.Use(BodyLimit(limit))
	engine.POST("/ticks", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "cut off")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest("POST", "/ticks", strings.NewReader(body))
	req.ContentLength = contentLength
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestBodyLimit(t *testing.T) {
	t.Run("accepts a batch under the limit", func(t *testing.T) {
		body := `{"events":[{"url":"pornhub.com","seconds":30}]}`
		w := postTicks(1024, body, int64(len(body)))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects an oversized declared length before reading", func(t *testing.T) {
		body := strings.Repeat("x", 300)
		w := postTicks(100, body, 300)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_REQUEST_TOO_LARGE")
	})

	t.Run("cuts off chunked bodies with no declared length", func(t *testing.T) {
		w := postTicks(50, strings.Repeat("x", 200), -1)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

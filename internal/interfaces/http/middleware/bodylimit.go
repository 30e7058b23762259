package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vicemeter/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request body size. Tick batches are bounded at 500 events,
// so anything past the configured limit is a misbehaving client; oversized
// declared lengths are rejected up front and chunked bodies are cut off by
// MaxBytesReader while the handler reads.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

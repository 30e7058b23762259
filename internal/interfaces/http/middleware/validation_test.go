package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vicemeter/backend/internal/interfaces/http/dto"
)

type consentPayload struct {
	UserID  string  `json:"user_id" binding:"required"`
	TOSHash string  `json:"tos_hash" binding:"required"`
	Rate    float64 `json:"rate" binding:"gte=0"`
}

func bindConsent(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	SetupValidator()

	engine := gin.New()
	engine.Use(RequestID())
	engine.POST("/consent", func(c *gin.Context) {
		var req consentPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/consent", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	return w
}

func TestHandleValidationError(t *testing.T) {
	t.Run("reports missing fields by json name", func(t *testing.T) {
		w := bindConsent(t, `{"rate": 0.10}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"user_id", "tos_hash"}, fields)
	})

	t.Run("valid payload passes through", func(t *testing.T) {
		w := bindConsent(t, `{"user_id":"u1","tos_hash":"abc","rate":0.10}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("carries the request id", func(t *testing.T) {
		w := bindConsent(t, `{}`)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.NotEmpty(t, resp.Error.RequestID)
	})
}

func TestFieldMessage(t *testing.T) {
	w := bindConsent(t, `{"user_id":"u1","tos_hash":"abc","rate":-1}`)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "rate", resp.Error.Details[0].Field)
	assert.Equal(t, "Must be at least 0", resp.Error.Details[0].Message)
}

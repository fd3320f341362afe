package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecoveryRouter(logs *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CorrelationID(), Recovery(slog.New(slog.NewJSONHandler(logs, nil))))

	router.GET("/wallets/:accountId", func(c *gin.Context) {
		var w *struct{ Balance int64 }
		c.JSON(http.StatusOK, gin.H{"balance": w.Balance})
	})
	router.GET("/stream", func(c *gin.Context) {
		c.String(http.StatusOK, "event: ready\n\n")
		panic("stream broke")
	})
	router.GET("/abort", func(c *gin.Context) {
		panic(http.ErrAbortHandler)
	})
	router.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, "fine")
	})
	return router
}

func TestRecovery(t *testing.T) {
	t.Run("panic becomes error envelope", func(t *testing.T) {
		var logs bytes.Buffer
		router := newRecoveryRouter(&logs)

		req := httptest.NewRequest(http.MethodGet, "/wallets/alice", nil)
		req.Header.Set(CorrelationIDHeader, "corr-42")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
			CorrelationID string `json:"correlation_id"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Error.Code)
		assert.Contains(t, body.Error.Message, "try again later")
		assert.Equal(t, "corr-42", body.CorrelationID)

		assert.Contains(t, logs.String(), `"msg":"Handler panicked"`)
		assert.Contains(t, logs.String(), `"route":"/wallets/:accountId"`)
		assert.Contains(t, logs.String(), `"stack":`)
		assert.NotContains(t, body.Error.Message, "nil pointer")
	})

	t.Run("started response is not rewritten", func(t *testing.T) {
		var logs bytes.Buffer
		router := newRecoveryRouter(&logs)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stream", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "event: ready\n\n", rr.Body.String())
		assert.Contains(t, logs.String(), "stream broke")
	})

	t.Run("aborted handler is re-raised", func(t *testing.T) {
		var logs bytes.Buffer
		router := newRecoveryRouter(&logs)

		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
		})
		assert.Empty(t, logs.String())
	})

	t.Run("no panic", func(t *testing.T) {
		var logs bytes.Buffer
		router := newRecoveryRouter(&logs)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ok", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, logs.String())
	})
}

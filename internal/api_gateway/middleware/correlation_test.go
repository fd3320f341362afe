package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		header    string
		wantReuse bool
	}{
		{"generates an id when none is given", "", false},
		{"reuses a uuid", uuid.New().String(), true},
		{"reuses an opaque token", "req-2024-03-09-abc", true},
		{"replaces an overlong id", strings.Repeat("a", 65), false},
		{"replaces an id with spaces", "two words", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CorrelationID())
			var capturedContextID string
			router.GET("/test", func(c *gin.Context) {
				capturedContextID = GetCorrelationID(c)
				c.Status(http.StatusOK)
			})

			req, _ := http.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(CorrelationIDHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			respHeaderID := rr.Header().Get(CorrelationIDHeader)
			assert.Equal(t, respHeaderID, capturedContextID)
			if tt.wantReuse {
				assert.Equal(t, tt.header, respHeaderID)
				return
			}
			_, err := uuid.Parse(respHeaderID)
			assert.NoError(t, err, "generated correlation id should be a uuid")
		})
	}
}

func TestGetCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReturnsIDFromContextIfExists", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		expectedID := uuid.New().String()
		c.Set(CorrelationIDKey, expectedID)
		assert.Equal(t, expectedID, GetCorrelationID(c))
	})

	t.Run("ReturnsEmptyStringIfIDInContextIsNotString", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(CorrelationIDKey, 12345)
		assert.Empty(t, GetCorrelationID(c))
	})
}

package handler

import (
	"net/http"

	"github.com/dancecoin-ledger/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API reply
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo carries paging, replay and advisory details
type MetaInfo struct {
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
	Replayed   bool   `json:"replayed,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

func respond(c *gin.Context, status int, body Response) {
	body.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(status, body)
}

func RespondWithData(c *gin.Context, status int, data interface{}) {
	respond(c, status, Response{Data: data})
}

func RespondWithMeta(c *gin.Context, status int, data interface{}, meta *MetaInfo) {
	respond(c, status, Response{Data: data, Meta: meta})
}

func RespondWithError(c *gin.Context, status int, code, message string) {
	respond(c, status, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondOK(c *gin.Context, data interface{}) { RespondWithData(c, http.StatusOK, data) }

func RespondCreated(c *gin.Context, data interface{}) { RespondWithData(c, http.StatusCreated, data) }

func RespondAccepted(c *gin.Context, data interface{}) { RespondWithData(c, http.StatusAccepted, data) }

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

func RespondConflict(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusConflict, code, message)
}

// RespondUnavailable is used when a write may or may not have committed
func RespondUnavailable(c *gin.Context) {
	RespondWithError(c, http.StatusServiceUnavailable, "OUTCOME_UNKNOWN",
		"The operation may not have completed. Check the wallet before retrying with the same idempotency key")
}

// RespondInternalError never exposes the cause; it is logged by the caller
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Something went wrong, please try again later")
}

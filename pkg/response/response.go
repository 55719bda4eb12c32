package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type APIResponse[T any] struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      T           `json:"data,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	Error     interface{} `json:"error,omitempty"`
}

// Success writes a success envelope and returns it.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	res := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
	}
	ctx.JSON(status, res)
	return res
}

// ListResponse is the envelope for collections. Data is always present, an
// empty result is [].
type ListResponse[T any] struct {
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      []T         `json:"data"`
	Meta      interface{} `json:"meta,omitempty"`
}

// List writes a 200 collection envelope and returns it.
func List[T any](ctx *gin.Context, items []T, message string, meta interface{}) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	res := ListResponse[T]{
		Status:    http.StatusOK,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   true,
		Message:   message,
		Data:      items,
		Meta:      meta,
	}
	ctx.JSON(http.StatusOK, res)
	return res
}

// Error writes an error envelope, aborts the handler chain and returns it.
func Error[T any](ctx *gin.Context, status int, message string, err interface{}) APIResponse[T] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	res := APIResponse[T]{
		Status:    status,
		Timestamp: time.Now(),
		RequestID: ctx.GetString("request_id"),
		Success:   false,
		Message:   message,
		Error:     err,
	}
	ctx.AbortWithStatusJSON(status, res)
	return res
}

// NoContent answers 204 with an empty body.
func NoContent(ctx *gin.Context) {
	ctx.Status(http.StatusNoContent)
	ctx.Writer.WriteHeaderNow()
}

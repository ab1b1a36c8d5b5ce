package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/limaJavier/schooltimetable/internal/apperrors"
	"github.com/limaJavier/schooltimetable/internal/requestid"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data  any              `json:"data,omitempty"`
	Error *apperrors.Error `json:"error,omitempty"`
	Meta  map[string]any   `json:"meta,omitempty"`
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, data any, meta map[string]any) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Data: data, Meta: withRequestID(c, meta)})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{Error: appErr, Meta: withRequestID(c, nil)})
}

func withRequestID(c *gin.Context, meta map[string]any) map[string]any {
	reqID := requestid.Value(c)
	if reqID == "" {
		return meta
	}
	if meta == nil {
		meta = make(map[string]any, 1)
	}
	meta["request_id"] = reqID
	return meta
}

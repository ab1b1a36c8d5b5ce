package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/schooltimetable/internal/logger"
	"github.com/limaJavier/schooltimetable/internal/metrics"
	"github.com/limaJavier/schooltimetable/internal/requestid"
)

// NewRouter wires the middleware chain and the routes under prefix. Metrics are served only when m is not nil.
func NewRouter(handler *TimetableHandler, m *metrics.Metrics, log *zap.Logger, prefix string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(m.Middleware())

	r.GET("/health", handler.Health)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	timetables := r.Group(prefix + "/timetables")
	timetables.POST("", handler.Solve)
	timetables.POST("/verify", handler.Verify)

	return r
}

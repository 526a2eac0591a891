package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-announcer-go/internal/middleware"
)

// NewRouter wires the ops endpoints. metrics may be nil to leave /metrics out.
func NewRouter(health *HealthHandler, sweeps *SweepHandler, auth *middleware.APIKeyAuth, metrics http.Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.GET("/health/live", health.LivenessProbe)
	r.GET("/health/ready", health.ReadinessProbe)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	api := r.Group("/api/v1")
	api.GET("/status", sweeps.Status)
	api.POST("/sweep", auth.Handler(), sweeps.Trigger)

	return r
}

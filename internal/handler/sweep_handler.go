package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-announcer-go/internal/scheduler"
)

// Scheduler is the part of the sweep scheduler exposed over HTTP.
type Scheduler interface {
	Status() scheduler.Status
	TriggerNow() (bool, error)
}

// SweepHandler reports on and triggers sweeps.
type SweepHandler struct {
	scheduler Scheduler
	logger    *zap.Logger
}

func NewSweepHandler(s Scheduler, logger *zap.Logger) *SweepHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepHandler{scheduler: s, logger: logger}
}

// Status returns the scheduler state and the last sweep report.
func (h *SweepHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// Trigger starts a sweep now. A sweep already in flight is not doubled;
// the response says whether a new one started.
func (h *SweepHandler) Trigger(c *gin.Context) {
	started, err := h.scheduler.TriggerNow()
	if errors.Is(err, scheduler.ErrNotRunning) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("failed to trigger sweep", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to trigger sweep"})
		return
	}

	h.logger.Info("manual sweep requested", zap.Bool("started", started))
	if !started {
		c.JSON(http.StatusConflict, gin.H{"started": false, "reason": "sweep already in flight"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"started": true})
}

package api

import (
	"errors"
	"net/http"

	"CricketSync/internal/logging"
	"CricketSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SyncHandler struct {
	scheduler *service.SyncScheduler
	logger    *logrus.Logger
}

func NewSyncHandler(scheduler *service.SyncScheduler, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// triggerResponse 手动触发的返回体
type triggerResponse struct {
	Cycle   string `json:"cycle"`
	Listed  int    `json:"listed"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Aborted bool   `json:"aborted"`
	Error   string `json:"error,omitempty"`
}

// Status 各同步周期状态
// GET /sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cycles": h.scheduler.Status()})
}

// Trigger 手动执行一次同步周期
// @Param cycle path string true "all-matches / current-matches"
// @Success 200 {object} triggerResponse
// @Failure 404 未知周期
// @Failure 409 周期正在运行
// @Router /sync/{cycle} [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	cycle := c.Param("cycle")

	result, err := h.scheduler.RunOnce(c.Request.Context(), cycle)
	switch {
	case errors.Is(err, service.ErrUnknownCycle):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "cycles": h.scheduler.CycleNames()})
		return
	case errors.Is(err, service.ErrCycleRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.WithError(err).WithField(logging.FieldCycle, cycle).Error("手动同步失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := triggerResponse{
		Cycle:   result.Cycle,
		Listed:  result.Listed,
		Updated: result.Updated,
		Skipped: result.Skipped,
		Failed:  result.Failed,
		Aborted: result.Aborted,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

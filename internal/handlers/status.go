package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meshy-ar-backend/internal/models"
	"meshy-ar-backend/internal/services"
)

type StatusHandler struct {
	service *services.ModelService
	logger  *zap.Logger
}

func NewStatusHandler(service *services.ModelService, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		service: service,
		logger:  logger,
	}
}

// GetStatus polls the provider for a task's current state. Read-only: no
// persisted job state is touched here.
// GET /api/model-status/:task_id.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	taskID := c.Param("task_id")

	result, err := h.service.Status(c.Request.Context(), taskID)
	if err != nil {
		h.logger.Error("status check failed", zap.String("task_id", taskID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Failed to check status: %v", err)})
		return
	}

	h.logger.Info("task status",
		zap.String("task_id", taskID),
		zap.String("status", result.Status),
		zap.Int("progress", result.Progress))

	c.JSON(http.StatusOK, models.StatusResponse{
		TaskID:    taskID,
		Status:    result.Status,
		Progress:  result.Progress,
		ModelInfo: result.Raw,
	})
}

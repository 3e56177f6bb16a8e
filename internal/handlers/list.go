package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meshy-ar-backend/internal/models"
	"meshy-ar-backend/internal/services"
)

type ModelsHandler struct {
	service *services.ModelService
	logger  *zap.Logger
}

func NewModelsHandler(service *services.ModelService, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{
		service: service,
		logger:  logger,
	}
}

// List returns ready models, optionally filtered by user_id and/or
// video_id query params, newest first.
// GET /api/models/list?user_id=...&video_id=...
func (h *ModelsHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	videoID := c.Query("video_id")

	records, err := h.service.List(c.Request.Context(), userID, videoID)
	if err != nil {
		h.respondListError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ModelListResponse{
		Success: true,
		Count:   len(records),
		Models:  records,
	})
}

// ListForVideo returns the ready models generated from a single video.
// GET /api/models/video/:video_id.
func (h *ModelsHandler) ListForVideo(c *gin.Context) {
	videoID := c.Param("video_id")

	records, err := h.service.ListForVideo(c.Request.Context(), videoID)
	if err != nil {
		h.respondListError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VideoModelsResponse{
		Success: true,
		VideoID: videoID,
		Count:   len(records),
		Models:  records,
	})
}

// Delete removes a model from storage and from the metadata store.
// DELETE /api/delete-model/:model_id.
func (h *ModelsHandler) Delete(c *gin.Context) {
	modelID := c.Param("model_id")

	err := h.service.Delete(c.Request.Context(), modelID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Firestore not initialized - check server logs"})
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Model not found"})
		default:
			h.logger.Error("delete failed", zap.String("model_id", modelID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, models.DeleteResponse{
		Success: true,
		Message: "Model deleted successfully",
	})
}

func (h *ModelsHandler) respondListError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrStoreUnavailable) {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Firestore not initialized - check server logs"})
		return
	}
	h.logger.Error("model listing failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
}

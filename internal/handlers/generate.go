package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meshy-ar-backend/internal/models"
	"meshy-ar-backend/internal/services"
)

type GenerateHandler struct {
	service *services.ModelService
	logger  *zap.Logger
}

func NewGenerateHandler(service *services.ModelService, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		service: service,
		logger:  logger,
	}
}

// Generate starts a 3D generation job from the model images stored on a
// video document.
// POST /api/generate-3d with {"video_id": "...", "user_id": "..."}.
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.VideoID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "video_id is required"})
		return
	}

	result, err := h.service.Generate(c.Request.Context(), req.VideoID, req.UserID)
	if err != nil {
		var providerErr *services.ProviderError
		switch {
		case errors.Is(err, services.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Firestore not initialized - check server logs"})
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: fmt.Sprintf("No video found for ID: %s", req.VideoID)})
		case errors.Is(err, services.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "modelImages missing or less than 3 images required"})
		case errors.As(err, &providerErr):
			h.logger.Error("meshy submission failed", zap.String("video_id", req.VideoID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Meshy API error: %v", providerErr.Err)})
		default:
			h.logger.Error("generate failed", zap.String("video_id", req.VideoID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, models.GenerateResponse{
		Success: true,
		TaskID:  result.TaskID,
		Message: "3D model generation started",
		Result:  result.Raw,
	})
}

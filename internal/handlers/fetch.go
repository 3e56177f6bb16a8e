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

type FetchHandler struct {
	service *services.ModelService
	logger  *zap.Logger
}

func NewFetchHandler(service *services.ModelService, logger *zap.Logger) *FetchHandler {
	return &FetchHandler{
		service: service,
		logger:  logger,
	}
}

// Fetch downloads a completed model from the provider, uploads it to
// storage and records its metadata.
// POST /api/fetch-model with {"task_id": "...", "user_id": "..."}.
func (h *FetchHandler) Fetch(c *gin.Context) {
	var req models.FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.TaskID == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "task_id and user_id are required"})
		return
	}

	result, err := h.service.Fetch(c.Request.Context(), req.TaskID, req.UserID)
	if err != nil {
		var notReady *services.NotReadyError
		var providerErr *services.ProviderError
		var storageErr *services.StorageError
		switch {
		case errors.Is(err, services.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Firestore not initialized - check server logs"})
		case errors.As(err, &notReady):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Model not ready yet: %s", notReady.Status)})
		case errors.Is(err, services.ErrMissingAsset):
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "No model URL found in Meshy response"})
		case errors.As(err, &providerErr):
			h.logger.Error("model fetch failed", zap.String("task_id", req.TaskID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Network error: %v", providerErr.Err)})
		case errors.As(err, &storageErr):
			h.logger.Error("model upload failed", zap.String("task_id", req.TaskID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprintf("Storage error: %v", storageErr.Err)})
		default:
			h.logger.Error("fetch failed", zap.String("task_id", req.TaskID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, models.FetchResponse{
		Success:        true,
		TaskID:         result.TaskID,
		ModelPublicURL: result.ModelPublicURL,
		FirestoreDocID: result.DocID,
		ThumbnailURL:   result.ThumbnailURL,
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meshy-ar-backend/internal/models"
)

const serviceName = "Meshy AR Backend"

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Service: serviceName,
	})
}

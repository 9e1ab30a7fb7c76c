package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"image-studio-client/internal/models"
)

// HealthHandler reports that the local status API is up.
func HealthHandler(c *gin.Context) {
	response := models.HealthResponse{
		Status: "ok",
	}
	c.JSON(http.StatusOK, response)
}

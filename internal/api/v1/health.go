package v1

import (
	"net/http"

	"github.com/flexprice/debitsync/internal/config"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	config *config.Configuration
}

func NewHealthHandler(cfg *config.Configuration) *HealthHandler {
	return &HealthHandler{config: cfg}
}

// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"mode":   string(h.config.Deployment.Mode),
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careerlink/jobrec/internal/services"
)

type HealthHandler struct {
	health services.HealthChecker
}

func NewHealthHandler(health services.HealthChecker) *HealthHandler {
	return &HealthHandler{health: health}
}

// Check handles GET /health. A degraded system still answers 200 so load
// balancers keep routing; only critical failures return 503.
func (h *HealthHandler) Check(c *gin.Context) {
	status := h.health.CheckHealth()

	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

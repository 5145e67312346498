package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/services"
)

type AdminHandler struct {
	recommender services.RecommenderService
	logger      *logrus.Logger
}

func NewAdminHandler(recommender services.RecommenderService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{recommender: recommender, logger: logger}
}

// RebuildModels handles POST /admin/models/rebuild?model=...&force=true.
// Model defaults to "all".
func (h *AdminHandler) RebuildModels(c *gin.Context) {
	model := c.DefaultQuery("model", "all")
	force := c.Query("force") == "true"

	if err := h.recommender.RebuildModel(c.Request.Context(), model, force); err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse("INVALID_INPUT", err.Error()))
			return
		}
		h.logger.WithError(err).WithField("model", model).Error("Model rebuild failed")
		c.JSON(http.StatusInternalServerError, errorResponse("REBUILD_FAILED", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "rebuilt",
		"model":  model,
		"models": h.recommender.ModelStatus(),
	})
}

// ListModels handles GET /admin/models.
func (h *AdminHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.recommender.ModelStatus()})
}

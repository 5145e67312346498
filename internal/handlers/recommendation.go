package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/services"
	"github.com/careerlink/jobrec/pkg/models"
)

type RecommendationHandler struct {
	recommender services.RecommenderService
	metrics     *services.MetricsCollector
	logger      *logrus.Logger
}

func NewRecommendationHandler(recommender services.RecommenderService, metrics *services.MetricsCollector, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{recommender: recommender, metrics: metrics, logger: logger}
}

// GetJobs handles GET /jobs. The user id is whatever the auth middleware
// resolved; anonymous is fine.
func (h *RecommendationHandler) GetJobs(c *gin.Context) {
	start := time.Now()
	req := parseRecommendationQuery(c)

	page, err := h.recommender.RecommendJobs(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "jobs", start, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRequest("jobs", outcome(page), time.Since(start))
	}
	c.JSON(http.StatusOK, page)
}

// GetSimilarJobs handles GET /similar-jobs/:id.
func (h *RecommendationHandler) GetSimilarJobs(c *gin.Context) {
	start := time.Now()
	jobID := c.Param("id")
	req := parseRecommendationQuery(c)

	page, err := h.recommender.SimilarJobs(c.Request.Context(), jobID, req)
	if err != nil {
		h.respondError(c, "similar_jobs", start, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRequest("similar_jobs", outcome(page), time.Since(start))
	}
	c.JSON(http.StatusOK, page)
}

func (h *RecommendationHandler) respondError(c *gin.Context, endpoint string, start time.Time, err error) {
	if h.metrics != nil {
		h.metrics.RecordRequest(endpoint, "error", time.Since(start))
	}
	if errors.Is(err, services.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_INPUT", err.Error()))
		return
	}
	h.logger.WithError(err).Error("Recommendation request failed")
	c.JSON(http.StatusInternalServerError, errorResponse("INTERNAL_ERROR", "recommendation request failed"))
}

func outcome(page *models.JobPage) string {
	if page.Metadata.Error != "" {
		return "degraded"
	}
	return "ok"
}

func parseRecommendationQuery(c *gin.Context) *models.RecommendationRequest {
	req := &models.RecommendationRequest{Page: 0, Size: 10}

	if userID, ok := c.Get("user_id"); ok {
		if id, ok := userID.(string); ok {
			req.UserID = id
		}
	}

	if v := c.Query("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil {
			req.Page = page
		}
	}
	if v := c.Query("size"); v != "" {
		if size, err := strconv.Atoi(v); err == nil && size > 0 {
			if size > 100 {
				size = 100
			}
			req.Size = size
		}
	}

	req.Filter.Keyword = strings.TrimSpace(c.Query("keyword"))
	if v := c.Query("category_id"); v != "" {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.Filter.CategoryIDs = append(req.Filter.CategoryIDs, id)
			}
		}
	}
	if v := c.Query("salary_min"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			req.Filter.SalaryMin = f
		}
	}
	if v := c.Query("salary_max"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			req.Filter.SalaryMax = f
		}
	}
	req.Filter.ExperienceLevel = strings.TrimSpace(c.Query("experience_level"))

	return req
}

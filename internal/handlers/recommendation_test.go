package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/careerlink/jobrec/internal/ml"
	"github.com/careerlink/jobrec/internal/services"
	"github.com/careerlink/jobrec/pkg/models"
)

type mockRecommender struct {
	mock.Mock
}

func (m *mockRecommender) RecommendJobs(ctx context.Context, req *models.RecommendationRequest) (*models.JobPage, error) {
	args := m.Called(ctx, req)
	if page := args.Get(0); page != nil {
		return page.(*models.JobPage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRecommender) SimilarJobs(ctx context.Context, jobID string, req *models.RecommendationRequest) (*models.JobPage, error) {
	args := m.Called(ctx, jobID, req)
	if page := args.Get(0); page != nil {
		return page.(*models.JobPage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRecommender) RebuildModel(ctx context.Context, name string, force bool) error {
	args := m.Called(ctx, name, force)
	return args.Error(0)
}

func (m *mockRecommender) ModelStatus() []ml.ModelInfo {
	args := m.Called()
	return args.Get(0).([]ml.ModelInfo)
}

func testHandlerLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func emptyPage() *models.JobPage {
	return &models.JobPage{
		Content: []models.EnrichedJob{},
		Page:    models.NewPageInfo(0, 10, 0),
	}
}

func performRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRecommendationHandler_GetJobs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("parses pagination and filters from the query", func(t *testing.T) {
		recommender := &mockRecommender{}
		recommender.On("RecommendJobs", mock.Anything, mock.MatchedBy(func(req *models.RecommendationRequest) bool {
			return req.Page == 2 &&
				req.Size == 25 &&
				req.UserID == "u1" &&
				req.Filter.Keyword == "golang" &&
				len(req.Filter.CategoryIDs) == 2 &&
				req.Filter.SalaryMin == 1000 &&
				req.Filter.ExperienceLevel == "senior"
		})).Return(emptyPage(), nil)

		handler := NewRecommendationHandler(recommender, nil, testHandlerLogger())
		router := gin.New()
		router.GET("/jobs", func(c *gin.Context) { c.Set("user_id", "u1") }, handler.GetJobs)

		w := performRequest(router, http.MethodGet,
			"/jobs?page=2&size=25&keyword=golang&category_id=c1,c2&salary_min=1000&experience_level=senior")
		assert.Equal(t, http.StatusOK, w.Code)
		recommender.AssertExpectations(t)
	})

	t.Run("oversized page size clamps to 100", func(t *testing.T) {
		recommender := &mockRecommender{}
		recommender.On("RecommendJobs", mock.Anything, mock.MatchedBy(func(req *models.RecommendationRequest) bool {
			return req.Size == 100
		})).Return(emptyPage(), nil)

		handler := NewRecommendationHandler(recommender, nil, testHandlerLogger())
		router := gin.New()
		router.GET("/jobs", handler.GetJobs)

		w := performRequest(router, http.MethodGet, "/jobs?size=500")
		assert.Equal(t, http.StatusOK, w.Code)
		recommender.AssertExpectations(t)
	})

	t.Run("anonymous caller is passed through with empty user id", func(t *testing.T) {
		recommender := &mockRecommender{}
		recommender.On("RecommendJobs", mock.Anything, mock.MatchedBy(func(req *models.RecommendationRequest) bool {
			return req.UserID == ""
		})).Return(emptyPage(), nil)

		handler := NewRecommendationHandler(recommender, nil, testHandlerLogger())
		router := gin.New()
		router.GET("/jobs", handler.GetJobs)

		w := performRequest(router, http.MethodGet, "/jobs")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid input maps to 400", func(t *testing.T) {
		recommender := &mockRecommender{}
		recommender.On("RecommendJobs", mock.Anything, mock.Anything).
			Return(nil, services.ErrInvalidInput)

		handler := NewRecommendationHandler(recommender, nil, testHandlerLogger())
		router := gin.New()
		router.GET("/jobs", handler.GetJobs)

		w := performRequest(router, http.MethodGet, "/jobs")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "INVALID_INPUT", body["error"]["code"])
	})

	t.Run("internal failures map to 500 without leaking details", func(t *testing.T) {
		recommender := &mockRecommender{}
		recommender.On("RecommendJobs", mock.Anything, mock.Anything).
			Return(nil, services.ErrUpstreamUnavailable)

		handler := NewRecommendationHandler(recommender, nil, testHandlerLogger())
		router := gin.New()
		router.GET("/jobs", handler.GetJobs)

		w := performRequest(router, http.MethodGet, "/jobs")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "upstream")
	})
}

func TestRecommendationHandler_GetSimilarJobs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recommender := &mockRecommender{}
	recommender.On("SimilarJobs", mock.Anything, "job-a", mock.Anything).
		Return(emptyPage(), nil)

	handler := NewRecommendationHandler(recommender, nil, testHandlerLogger())
	router := gin.New()
	router.GET("/similar-jobs/:id", handler.GetSimilarJobs)

	w := performRequest(router, http.MethodGet, "/similar-jobs/job-a")
	assert.Equal(t, http.StatusOK, w.Code)
	recommender.AssertExpectations(t)
}

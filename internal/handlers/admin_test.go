package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/careerlink/jobrec/internal/ml"
	"github.com/careerlink/jobrec/internal/services"
)

func TestAdminHandler_RebuildModels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("defaults to rebuilding all models", func(t *testing.T) {
		recommender := &mockRecommender{}
		recommender.On("RebuildModel", mock.Anything, "all", false).Return(nil)
		recommender.On("ModelStatus").Return([]ml.ModelInfo{{Name: "content", Status: ml.ModelStatusReady}})

		handler := NewAdminHandler(recommender, testHandlerLogger())
		router := gin.New()
		router.POST("/admin/models/rebuild", handler.RebuildModels)

		w := performRequest(router, http.MethodPost, "/admin/models/rebuild")
		assert.Equal(t, http.StatusOK, w.Code)
		recommender.AssertExpectations(t)
	})

	t.Run("passes model and force through", func(t *testing.T) {
		recommender := &mockRecommender{}
		recommender.On("RebuildModel", mock.Anything, "content", true).Return(nil)
		recommender.On("ModelStatus").Return([]ml.ModelInfo{})

		handler := NewAdminHandler(recommender, testHandlerLogger())
		router := gin.New()
		router.POST("/admin/models/rebuild", handler.RebuildModels)

		w := performRequest(router, http.MethodPost, "/admin/models/rebuild?model=content&force=true")
		assert.Equal(t, http.StatusOK, w.Code)
		recommender.AssertExpectations(t)
	})

	t.Run("unknown model maps to 400", func(t *testing.T) {
		recommender := &mockRecommender{}
		recommender.On("RebuildModel", mock.Anything, "bogus", false).Return(services.ErrInvalidInput)

		handler := NewAdminHandler(recommender, testHandlerLogger())
		router := gin.New()
		router.POST("/admin/models/rebuild", handler.RebuildModels)

		w := performRequest(router, http.MethodPost, "/admin/models/rebuild?model=bogus")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminHandler_ListModels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recommender := &mockRecommender{}
	recommender.On("ModelStatus").Return([]ml.ModelInfo{
		{Name: "content", Status: ml.ModelStatusReady},
		{Name: "semantic", Status: ml.ModelStatusEmpty},
	})

	handler := NewAdminHandler(recommender, testHandlerLogger())
	router := gin.New()
	router.GET("/admin/models", handler.ListModels)

	w := performRequest(router, http.MethodGet, "/admin/models")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "content")
	assert.Contains(t, w.Body.String(), "semantic")
}

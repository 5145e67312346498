package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/internal/services"
)

// Handlers bundles the HTTP handler set.
type Handlers struct {
	Recommendation *RecommendationHandler
	Interaction    *InteractionHandler
	Admin          *AdminHandler
	Health         *HealthHandler
}

func New(svc *services.Services, publisher InteractionPublisher, cfg *config.Config, logger *logrus.Logger) *Handlers {
	validate := validator.New()
	return &Handlers{
		Recommendation: NewRecommendationHandler(svc.Recommender, svc.Metrics, logger),
		Interaction:    NewInteractionHandler(svc.Interactions, publisher, validate, logger),
		Admin:          NewAdminHandler(svc.Recommender, logger),
		Health:         NewHealthHandler(svc.Health),
	}
}

// errorResponse is the error envelope shared by every endpoint.
func errorResponse(code, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
}

package services

import (
	"context"

	"github.com/careerlink/jobrec/internal/ml"
	"github.com/careerlink/jobrec/pkg/models"
)

// Service interfaces consumed by the handlers. Tests substitute testify
// mocks.

type RecommenderService interface {
	RecommendJobs(ctx context.Context, req *models.RecommendationRequest) (*models.JobPage, error)
	SimilarJobs(ctx context.Context, jobID string, req *models.RecommendationRequest) (*models.JobPage, error)
	RebuildModel(ctx context.Context, name string, force bool) error
	ModelStatus() []ml.ModelInfo
}

type IdentityService interface {
	ResolveIdentity(ctx context.Context, token string) string
}

type InteractionRecorder interface {
	Record(ctx context.Context, userID string, req *models.InteractionRequest) (*models.Interaction, error)
}

type HealthChecker interface {
	CheckHealth() *HealthStatus
}

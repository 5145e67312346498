package services

import (
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/internal/database"
	"github.com/careerlink/jobrec/internal/ml"
	"github.com/careerlink/jobrec/pkg/models"
)

// Services wires the service graph. Construction order follows the data
// flow: store, profile builder, the three scoring sources, fusion, then the
// recommender on top.
type Services struct {
	Store         *Store
	Auth          *AuthService
	Health        *HealthService
	Profiles      *ProfileBuilder
	Content       *ContentIndex
	Semantic      *SemanticIndex
	Collaborative *CollaborativeFilter
	Recommender   *Recommender
	Interactions  *InteractionService
	Metrics       *MetricsCollector
	Registry      *ml.ModelRegistry
	Encoder       *ml.TextEncoder
	RateLimit     *RateLimitService
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	registry := ml.NewModelRegistry()
	metrics := NewMetricsCollector()

	store := NewStore(db.PG, logger)
	profiles := NewProfileBuilder(store, db.Redis.Warm, cfg, logger)

	encoder := ml.NewTextEncoder(registry, db.Redis.Warm, logger, ml.TextEncoderConfig{
		ModelName:  cfg.Encoder.ModelName,
		Version:    cfg.Encoder.Version,
		Dimensions: cfg.Encoder.Dimensions,
		BatchSize:  cfg.Encoder.BatchSize,
		Workers:    cfg.Encoder.Workers,
		CacheTTL:   cfg.Recommendation.Caching.EmbeddingsTTL,
	})

	content := NewContentIndex(store, db.Redis.Warm, cfg, logger)
	semantic := NewSemanticIndex(store, encoder, cfg, logger)
	collaborative := NewCollaborativeFilter(store, db.Redis.Warm, cfg, logger)

	fusion := NewFusionEngine(models.FusionWeights{
		Content:       cfg.Recommendation.Weights.Content,
		Semantic:      cfg.Recommendation.Weights.Semantic,
		Collaborative: cfg.Recommendation.Weights.Collaborative,
	})

	recommender := NewRecommender(store, profiles, content, semantic, collaborative,
		fusion, registry, db.Redis.Hot, cfg, logger, metrics)

	return &Services{
		Store:         store,
		Auth:          NewAuthService(cfg, logger, db.Redis.Hot),
		Health:        NewHealthService(cfg, logger, db, registry),
		Profiles:      profiles,
		Content:       content,
		Semantic:      semantic,
		Collaborative: collaborative,
		Recommender:   recommender,
		Interactions:  NewInteractionService(store, profiles, logger, metrics),
		Metrics:       metrics,
		Registry:      registry,
		Encoder:       encoder,
		RateLimit:     NewRateLimitService(cfg, logger, db.Redis.Hot),
	}, nil
}

// Close stops background workers.
func (s *Services) Close() {
	if s.Encoder != nil {
		s.Encoder.Stop()
	}
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/internal/database"
	"github.com/careerlink/jobrec/internal/handlers"
	"github.com/careerlink/jobrec/internal/messaging"
	"github.com/careerlink/jobrec/internal/middleware"
	"github.com/careerlink/jobrec/internal/services"
	"github.com/careerlink/jobrec/internal/validation"
	"github.com/careerlink/jobrec/pkg/models"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
	bus      *messaging.MessageBus
	schemas  *validation.SchemaValidator

	consumerCancel context.CancelFunc
	consumerWG     sync.WaitGroup
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	svc, err := services.New(cfg, app.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svc

	app.schemas, err = validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to compile event schemas: %w", err)
	}

	// Kafka is optional in local development; with no brokers configured the
	// service still serves HTTP and records interactions synchronously.
	if len(cfg.Kafka.Brokers) > 0 {
		bus, err := messaging.NewMessageBus(cfg, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize message bus: %w", err)
		}
		app.bus = bus
	}

	// A typed nil bus must not become a non-nil publisher interface.
	var publisher handlers.InteractionPublisher
	if app.bus != nil {
		publisher = app.bus
	}
	app.handlers = handlers.New(svc, publisher, cfg, app.logger)
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Start fits the scoring models and launches the Kafka consumers. The
// initial fit is best-effort: requests arriving before the models are ready
// trigger a lazy rebuild through the recommender.
func (a *App) Start() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := a.services.Recommender.RebuildModel(ctx, "all", false); err != nil {
			a.logger.WithError(err).Warn("Initial model fit failed, serving with lazy rebuild")
		}
	}()

	if a.bus == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.consumerCancel = cancel

	a.consumerWG.Add(2)
	go func() {
		defer a.consumerWG.Done()
		if err := a.bus.ConsumeInteractionEvents(ctx, a.handleInteractionEvent); err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Error("Interaction consumer stopped")
		}
	}()
	go func() {
		defer a.consumerWG.Done()
		if err := a.bus.ConsumeJobEvents(ctx, a.handleJobEvent); err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Error("Job event consumer stopped")
		}
	}()

	a.consumerWG.Add(1)
	go func() {
		defer a.consumerWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := a.bus.GetMetrics()
				if lag, ok := stats["consumer_lag"].(int64); ok {
					a.services.Metrics.RecordConsumerLag(lag)
				}
			}
		}
	}()
}

func (a *App) handleInteractionEvent(payload []byte) error {
	result, err := a.schemas.ValidateInteractionEvent(payload)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("invalid interaction event: %v", result.Errors)
	}

	var event messaging.InteractionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode interaction event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = a.services.Interactions.Record(ctx, event.UserID, &models.InteractionRequest{
		JobID:     event.JobID,
		Kind:      event.Kind,
		Value:     event.Value,
		Duration:  event.Duration,
		SessionID: event.SessionID,
	})
	return err
}

func (a *App) handleJobEvent(payload []byte) error {
	result, err := a.schemas.ValidateJobEvent(payload)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("invalid job event: %v", result.Errors)
	}

	var event messaging.JobEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode job event: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"job_id": event.JobID,
		"action": event.Action,
	}).Info("Catalog change, refreshing content models")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := a.services.Recommender.RebuildModel(ctx, services.ModelContent, true); err != nil {
		return err
	}
	return a.services.Recommender.RebuildModel(ctx, services.ModelSemantic, true)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.consumerCancel != nil {
		a.consumerCancel()
		a.consumerWG.Wait()
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing message bus")
		}
	}

	a.services.Close()

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	// Health check endpoint (no auth required)
	router.GET("/health", a.handlers.Health.Check)

	// Prometheus metrics endpoint (no auth required)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api/v1")
	{
		// Identity never rejects: anonymous callers get population-level
		// recommendations, so auth only resolves who is asking.
		api.Use(middleware.Identity(a.services.Auth))
		api.Use(middleware.RateLimit(a.services.RateLimit, a.logger))

		// Recommendation routes
		api.GET("/jobs", a.handlers.Recommendation.GetJobs)
		api.GET("/similar-jobs/:id", a.handlers.Recommendation.GetSimilarJobs)

		// Interaction routes
		api.POST("/interactions", middleware.RequireAuth(), a.handlers.Interaction.RecordInteraction)

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.RequireAuth())
		{
			admin.POST("/models/rebuild", a.handlers.Admin.RebuildModels)
			admin.GET("/models", a.handlers.Admin.ListModels)
		}
	}

	a.router = router
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/pkg/models"
)

// profileInvalidator drops a user's cached derived profile. Satisfied by
// ProfileBuilder.
type profileInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// InteractionService appends interaction events. Recording is safe to run
// concurrently with scoring: the collaborative model always reads its last
// fitted snapshot, never live state.
type InteractionService struct {
	store    *Store
	profiles profileInvalidator
	logger   *logrus.Logger
	metrics  *MetricsCollector
}

func NewInteractionService(store *Store, profiles profileInvalidator, logger *logrus.Logger, metrics *MetricsCollector) *InteractionService {
	return &InteractionService{store: store, profiles: profiles, logger: logger, metrics: metrics}
}

func (s *InteractionService) Record(ctx context.Context, userID string, req *models.InteractionRequest) (*models.Interaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: interactions require an identified user", ErrInvalidInput)
	}
	if req.Kind == models.InteractionRating && req.Value == nil {
		return nil, fmt.Errorf("%w: rating requires a value", ErrInvalidInput)
	}

	interaction := &models.Interaction{
		ID:        uuid.New(),
		UserID:    userID,
		JobID:     req.JobID,
		Kind:      req.Kind,
		Value:     req.Value,
		Duration:  req.Duration,
		SessionID: req.SessionID,
		Timestamp: time.Now(),
	}
	if err := s.store.InsertInteraction(ctx, interaction); err != nil {
		return nil, err
	}

	// New activity invalidates the cached profile so the next request picks
	// up concurrent profile edits instead of waiting out the TTL.
	if s.profiles != nil {
		s.profiles.Invalidate(ctx, userID)
	}

	if s.metrics != nil {
		s.metrics.RecordIngestedEvent(req.Kind)
	}
	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"job_id":  req.JobID,
		"kind":    req.Kind,
	}).Debug("Interaction recorded")
	return interaction, nil
}

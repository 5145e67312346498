package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/messaging"
	"github.com/careerlink/jobrec/internal/services"
	"github.com/careerlink/jobrec/pkg/models"
)

// InteractionPublisher enqueues an interaction event for asynchronous
// ingestion through the message bus.
type InteractionPublisher interface {
	PublishInteraction(ctx context.Context, event messaging.InteractionEvent) error
}

type InteractionHandler struct {
	interactions services.InteractionRecorder
	publisher    InteractionPublisher
	validate     *validator.Validate
	logger       *logrus.Logger
}

func NewInteractionHandler(interactions services.InteractionRecorder, publisher InteractionPublisher, validate *validator.Validate, logger *logrus.Logger) *InteractionHandler {
	return &InteractionHandler{interactions: interactions, publisher: publisher, validate: validate, logger: logger}
}

// RecordInteraction handles POST /interactions. Unlike recommendations,
// recording requires an identified caller. With a message bus configured the
// event is enqueued and ingested by the consumer; without one (or when the
// broker is down) it is recorded synchronously.
func (h *InteractionHandler) RecordInteraction(c *gin.Context) {
	userID := ""
	if v, ok := c.Get("user_id"); ok {
		userID, _ = v.(string)
	}
	if userID == "" {
		c.JSON(http.StatusUnauthorized, errorResponse("UNAUTHORIZED", "interaction recording requires authentication"))
		return
	}

	var req models.InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_BODY", err.Error()))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("VALIDATION_FAILED", err.Error()))
		return
	}

	if h.publisher != nil {
		event := messaging.InteractionEvent{
			EventID:   uuid.New(),
			UserID:    userID,
			JobID:     req.JobID,
			Kind:      req.Kind,
			Value:     req.Value,
			Duration:  req.Duration,
			SessionID: req.SessionID,
			Timestamp: time.Now(),
		}
		if err := h.publisher.PublishInteraction(c.Request.Context(), event); err == nil {
			c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "event_id": event.EventID})
			return
		} else {
			h.logger.WithError(err).Warn("Publish failed, recording interaction synchronously")
		}
	}

	interaction, err := h.interactions.Record(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse("INVALID_INPUT", err.Error()))
			return
		}
		h.logger.WithError(err).Error("Failed to record interaction")
		c.JSON(http.StatusInternalServerError, errorResponse("INTERNAL_ERROR", "failed to record interaction"))
		return
	}

	c.JSON(http.StatusCreated, interaction)
}

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/config"
)

const (
	InteractionEventsTopic    = "interaction-events"
	InteractionEventsDLQTopic = "interaction-events-dlq"
	JobEventsTopic            = "job-events"
)

// InteractionEvent is the wire form of one interaction published by the
// upstream application.
type InteractionEvent struct {
	EventID   uuid.UUID  `json:"event_id"`
	UserID    string     `json:"user_id"`
	JobID     string     `json:"job_id"`
	Kind      string     `json:"kind"`
	Value     *float64   `json:"value,omitempty"`
	Duration  *int       `json:"duration,omitempty"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Retries   int        `json:"retries,omitempty"`
}

// JobEvent signals a catalog change that should trigger an index re-fit.
type JobEvent struct {
	JobID     string    `json:"job_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageBus owns the Kafka producers and consumers for the recommendation
// pipeline: interaction ingestion with DLQ plus catalog change events.
type MessageBus struct {
	producer          *kafka.Writer
	interactionReader *kafka.Reader
	jobReader         *kafka.Reader
	dlqWriter         *kafka.Writer
	logger            *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	interactionTopic := cfg.Kafka.Topics.InteractionEvents
	if interactionTopic == "" {
		interactionTopic = InteractionEventsTopic
	}
	jobTopic := cfg.Kafka.Topics.JobEvents
	if jobTopic == "" {
		jobTopic = JobEventsTopic
	}

	producer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        interactionTopic,
		Balancer:     &kafka.Hash{}, // Key by user for per-user ordering
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	interactionReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          interactionTopic,
		GroupID:        cfg.Kafka.ConsumerGroup,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	jobReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          jobTopic,
		GroupID:        cfg.Kafka.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        InteractionEventsDLQTopic,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &MessageBus{
		producer:          producer,
		interactionReader: interactionReader,
		jobReader:         jobReader,
		dlqWriter:         dlqWriter,
		logger:            logger,
	}, nil
}

// PublishInteraction emits one interaction event, keyed by user id so a
// user's events stay ordered within a partition.
func (mb *MessageBus) PublishInteraction(ctx context.Context, event InteractionEvent) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "kind", Value: []byte(event.Kind)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := mb.producer.WriteMessages(writeCtx, message); err != nil {
		mb.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to publish interaction event")
		return fmt.Errorf("failed to write interaction event: %w", err)
	}
	return nil
}

// ConsumeInteractionEvents reads interaction events until ctx is cancelled,
// retrying each event with exponential backoff and parking poison messages
// in the DLQ after three failed attempts.
func (mb *MessageBus) ConsumeInteractionEvents(ctx context.Context, handler func([]byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := mb.interactionReader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mb.logger.WithError(err).Error("Failed to read interaction event")
				continue
			}

			if err := mb.processWithRetry(ctx, message.Value, handler); err != nil {
				mb.logger.WithError(err).Error("Interaction event failed after retries")
				if dlqErr := mb.sendToDLQ(ctx, message, err); dlqErr != nil {
					mb.logger.WithError(dlqErr).Error("Failed to park event in DLQ")
				}
			}
		}
	}
}

// ConsumeJobEvents reads catalog change events until ctx is cancelled. Job
// events are best-effort triggers, so failures are logged, not retried.
func (mb *MessageBus) ConsumeJobEvents(ctx context.Context, handler func([]byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := mb.jobReader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mb.logger.WithError(err).Error("Failed to read job event")
				continue
			}
			if err := handler(message.Value); err != nil {
				mb.logger.WithError(err).Warn("Job event handler failed")
			}
		}
	}
}

func (mb *MessageBus) processWithRetry(ctx context.Context, payload []byte, handler func([]byte) error) error {
	maxRetries := 3
	baseDelay := time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			mb.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay,
			}).Info("Retrying interaction event")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := handler(payload); err != nil {
			mb.logger.WithError(err).WithField("attempt", attempt).Warn("Interaction event processing failed")
			if attempt == maxRetries {
				return fmt.Errorf("max retries exceeded: %w", err)
			}
			continue
		}
		return nil
	}

	return fmt.Errorf("unexpected retry loop exit")
}

func (mb *MessageBus) sendToDLQ(ctx context.Context, original kafka.Message, originalError error) error {
	dlqPayload := map[string]interface{}{
		"original_payload": json.RawMessage(original.Value),
		"error":            originalError.Error(),
		"dlq_timestamp":    time.Now(),
	}

	payload, err := json.Marshal(dlqPayload)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ payload: %w", err)
	}

	message := kafka.Message{
		Key:   original.Key,
		Value: payload,
		Headers: []kafka.Header{
			{Key: "original_topic", Value: []byte(mb.interactionReader.Config().Topic)},
			{Key: "error", Value: []byte(originalError.Error())},
		},
	}

	if err := mb.dlqWriter.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write to DLQ: %w", err)
	}

	mb.logger.WithField("error", originalError.Error()).Warn("Interaction event sent to DLQ")
	return nil
}

func (mb *MessageBus) Close() error {
	var errors []error

	if err := mb.producer.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close producer: %w", err))
	}
	if err := mb.interactionReader.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close interaction reader: %w", err))
	}
	if err := mb.jobReader.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close job reader: %w", err))
	}
	if err := mb.dlqWriter.Close(); err != nil {
		errors = append(errors, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errors)
	}
	return nil
}

// GetMetrics exposes consumer stats for monitoring.
func (mb *MessageBus) GetMetrics() map[string]interface{} {
	stats := mb.interactionReader.Stats()
	return map[string]interface{}{
		"consumer_lag":    stats.Lag,
		"consumer_offset": stats.Offset,
		"messages_read":   stats.Messages,
		"bytes_read":      stats.Bytes,
		"rebalances":      stats.Rebalances,
		"timeouts":        stats.Timeouts,
		"errors":          stats.Errors,
	}
}

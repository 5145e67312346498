package models

import (
	"time"

	"github.com/google/uuid"
)

// Interaction kinds form a closed set ordered by strength. The weights are
// part of the scoring contract and must not drift between the ingestion path
// and the collaborative model.
const (
	InteractionApplication = "application"
	InteractionRating      = "rating"
	InteractionBookmark    = "bookmark"
	InteractionView        = "view"
	InteractionClick       = "click"
)

// InteractionWeights maps each interaction kind to its fixed signal strength.
var InteractionWeights = map[string]float64{
	InteractionApplication: 5.0,
	InteractionRating:      4.0,
	InteractionBookmark:    3.0,
	InteractionView:        1.0,
	InteractionClick:       0.5,
}

// Interaction is one append-only interaction event. Events are never mutated;
// per-(user,item) affinity is derived by summing weights across all events.
type Interaction struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id" validate:"required"`
	JobID     string     `json:"job_id" db:"job_id" validate:"required"`
	Kind      string     `json:"kind" db:"kind" validate:"required,oneof=application rating bookmark view click"`
	Value     *float64   `json:"value,omitempty" db:"value"`
	Duration  *int       `json:"duration,omitempty" db:"duration"` // seconds, views only
	SessionID *uuid.UUID `json:"session_id,omitempty" db:"session_id"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
}

type InteractionRequest struct {
	JobID     string     `json:"job_id" validate:"required"`
	Kind      string     `json:"kind" validate:"required,oneof=application rating bookmark view click"`
	Value     *float64   `json:"value,omitempty" validate:"omitempty,min=1,max=5"`
	Duration  *int       `json:"duration,omitempty" validate:"omitempty,min=0"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
}

// AggregatedInteraction is one (user, job) cell of the collaborative matrix,
// produced by the store's aggregation query.
type AggregatedInteraction struct {
	UserID string  `json:"user_id" db:"user_id"`
	JobID  string  `json:"job_id" db:"job_id"`
	Score  float64 `json:"score" db:"score"`
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/pkg/models"
)

// Querier is the subset of pgxpool.Pool the stores need. Tests substitute
// pgxmock.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store bundles read and write access to the document store. All ids are
// converted to canonical strings here, once, at this boundary. Writes go
// through Query as well so the whole store stays mockable behind Querier.
type Store struct {
	db     Querier
	logger *logrus.Logger
}

func NewStore(db Querier, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// ActiveJobs returns the live catalog ordered by creation time descending.
// Ordering is part of the contract: catalog order breaks scoring ties.
func (s *Store) ActiveJobs(ctx context.Context) ([]models.Job, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, description, COALESCE(benefits, ''), category_id,
		       COALESCE(experience_level, ''), COALESCE(salary_min, 0),
		       COALESCE(salary_max, 0), owner_id, COALESCE(skills, '{}'),
		       active, status, created_at
		FROM jobs
		WHERE active = true AND status = 'approved' AND deleted_at IS NULL
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: query active jobs: %v", ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.Title, &j.Description, &j.Benefits,
			&j.CategoryID, &j.ExperienceLevel, &j.SalaryMin, &j.SalaryMax,
			&j.OwnerID, &j.Skills, &j.Active, &j.Status, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// JobsByIDs fetches live jobs for enrichment, preserving no particular order.
func (s *Store) JobsByIDs(ctx context.Context, ids []string) (map[string]models.Job, error) {
	if len(ids) == 0 {
		return map[string]models.Job{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, title, description, COALESCE(benefits, ''), category_id,
		       COALESCE(experience_level, ''), COALESCE(salary_min, 0),
		       COALESCE(salary_max, 0), owner_id, COALESCE(skills, '{}'),
		       active, status, created_at
		FROM jobs
		WHERE id = ANY($1) AND active = true AND status = 'approved' AND deleted_at IS NULL`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("%w: query jobs by ids: %v", ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	jobs := make(map[string]models.Job, len(ids))
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.Title, &j.Description, &j.Benefits,
			&j.CategoryID, &j.ExperienceLevel, &j.SalaryMin, &j.SalaryMax,
			&j.OwnerID, &j.Skills, &j.Active, &j.Status, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs[j.ID] = j
	}
	return jobs, rows.Err()
}

// RecentJobs returns active jobs with their age in days, newest first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]models.Job, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, created_at
		FROM jobs
		WHERE active = true AND status = 'approved' AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query recent jobs: %v", ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.Title, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Categories returns id -> display name for enrichment.
func (s *Store) Categories(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, name FROM categories WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: query categories: %v", ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string]string, len(ids))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out[id] = name
	}
	return out, rows.Err()
}

// Owners returns owner id -> display name for enrichment.
func (s *Store) Owners(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, COALESCE(company_name, name) FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: query owners: %v", ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string]string, len(ids))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		out[id] = name
	}
	return out, rows.Err()
}

// AggregatedInteractions materializes the (user, job) affinity cells the
// collaborative model fits on. The collection rules match the ingestion
// contract: applications unless rejected, active bookmarks, views with more
// than 10s of dwell time, ratings of 3 and up, clicks from the last 30 days.
// Weights are applied in SQL so one scan yields the summed score per cell.
func (s *Store) AggregatedInteractions(ctx context.Context) ([]models.AggregatedInteraction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, job_id, SUM(weight) AS score FROM (
			SELECT user_id, job_id, 5.0 AS weight
			FROM interactions
			WHERE kind = 'application' AND COALESCE(status, '') <> 'rejected'
			UNION ALL
			SELECT user_id, job_id, 4.0
			FROM interactions
			WHERE kind = 'rating' AND COALESCE(value, 0) >= 3
			UNION ALL
			SELECT user_id, job_id, 3.0
			FROM interactions
			WHERE kind = 'bookmark' AND COALESCE(status, 'active') = 'active'
			UNION ALL
			SELECT user_id, job_id, 1.0
			FROM interactions
			WHERE kind = 'view' AND COALESCE(duration, 0) > 10
			UNION ALL
			SELECT user_id, job_id, 0.5
			FROM interactions
			WHERE kind = 'click' AND timestamp > NOW() - INTERVAL '30 days'
		) weighted
		GROUP BY user_id, job_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query interactions: %v", ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var cells []models.AggregatedInteraction
	for rows.Next() {
		var c models.AggregatedInteraction
		if err := rows.Scan(&c.UserID, &c.JobID, &c.Score); err != nil {
			return nil, fmt.Errorf("scan interaction cell: %w", err)
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// InteractionCount reports how many raw interaction events a user has. The
// recommender gates collaborative scoring on this.
func (s *Store) InteractionCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM interactions WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count interactions: %v", ErrUpstreamUnavailable, err)
	}
	return count, nil
}

// InsertInteraction appends one interaction event. Events are append-only;
// there is no update path.
func (s *Store) InsertInteraction(ctx context.Context, in *models.Interaction) error {
	if in.UserID == "" || in.JobID == "" {
		return fmt.Errorf("%w: interaction requires user_id and job_id", ErrInvalidInput)
	}
	if _, ok := models.InteractionWeights[in.Kind]; !ok {
		return fmt.Errorf("%w: unknown interaction kind %q", ErrInvalidInput, in.Kind)
	}
	rows, err := s.db.Query(ctx, `
		INSERT INTO interactions (id, user_id, job_id, kind, value, duration, session_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		in.ID, in.UserID, in.JobID, in.Kind, in.Value, in.Duration, in.SessionID, in.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: insert interaction: %v", ErrUpstreamUnavailable, err)
	}
	rows.Close()
	return rows.Err()
}

// SkillsByUser returns the user's non-deleted skill records.
func (s *Store) SkillsByUser(ctx context.Context, userID string) ([]models.UserSkill, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, name, COALESCE(years, 0)
		FROM user_skills
		WHERE user_id = $1 AND deleted_at IS NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: query skills: %v", ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var skills []models.UserSkill
	for rows.Next() {
		var sk models.UserSkill
		if err := rows.Scan(&sk.UserID, &sk.Name, &sk.Years); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		skills = append(skills, sk)
	}
	return skills, rows.Err()
}

// ExperiencesByUser returns the user's non-deleted work experience records.
func (s *Store) ExperiencesByUser(ctx context.Context, userID string) ([]models.UserExperience, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, COALESCE(job_title, ''), COALESCE(description, '')
		FROM user_experiences
		WHERE user_id = $1 AND deleted_at IS NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: query experiences: %v", ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var exps []models.UserExperience
	for rows.Next() {
		var e models.UserExperience
		if err := rows.Scan(&e.UserID, &e.JobTitle, &e.Description); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		exps = append(exps, e)
	}
	return exps, rows.Err()
}

// Embedding rows carry the content hash used for staleness checks, so a
// re-fit can skip items whose source text is unchanged.

func (s *Store) JobEmbeddings(ctx context.Context) (map[string]StoredEmbedding, error) {
	rows, err := s.db.Query(ctx,
		`SELECT entity_id, content_hash, vector FROM embeddings WHERE entity_kind = 'job'`)
	if err != nil {
		return nil, fmt.Errorf("%w: query embeddings: %v", ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string]StoredEmbedding)
	for rows.Next() {
		var e StoredEmbedding
		if err := rows.Scan(&e.EntityID, &e.ContentHash, &e.Vector); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		out[e.EntityID] = e
	}
	return out, rows.Err()
}

func (s *Store) ProfileEmbedding(ctx context.Context, userID string) (*StoredEmbedding, error) {
	var e StoredEmbedding
	err := s.db.QueryRow(ctx,
		`SELECT entity_id, content_hash, vector FROM embeddings WHERE entity_kind = 'profile' AND entity_id = $1`,
		userID).Scan(&e.EntityID, &e.ContentHash, &e.Vector)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query profile embedding: %v", ErrUpstreamUnavailable, err)
	}
	return &e, nil
}

func (s *Store) UpsertEmbedding(ctx context.Context, kind string, e StoredEmbedding) error {
	rows, err := s.db.Query(ctx, `
		INSERT INTO embeddings (entity_kind, entity_id, content_hash, vector, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_kind, entity_id)
		DO UPDATE SET content_hash = EXCLUDED.content_hash, vector = EXCLUDED.vector, updated_at = EXCLUDED.updated_at`,
		kind, e.EntityID, e.ContentHash, e.Vector, time.Now())
	if err != nil {
		return fmt.Errorf("%w: upsert embedding: %v", ErrUpstreamUnavailable, err)
	}
	rows.Close()
	return rows.Err()
}

// StoredEmbedding is one persisted embedding row.
type StoredEmbedding struct {
	EntityID    string    `json:"entity_id"`
	ContentHash string    `json:"content_hash"`
	Vector      []float64 `json:"vector"`
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/internal/ml"
	"github.com/careerlink/jobrec/pkg/models"
)

// semanticSnapshot holds the item embedding matrix for one fitted state.
// Only items with embeddings appear; items not yet indexed are absent, never
// zero-scored.
type semanticSnapshot struct {
	jobIDs      []string
	vectors     [][]float64
	fingerprint string
	builtAt     time.Time
}

// SemanticIndex scores jobs by dense-vector similarity. Item embeddings are
// persisted with a content hash so a re-fit only re-encodes items whose
// source text changed.
type SemanticIndex struct {
	store   *Store
	encoder ml.Encoder
	config  *config.Config
	logger  *logrus.Logger

	mu       sync.RWMutex
	fitMu    sync.Mutex
	snapshot *semanticSnapshot
}

func NewSemanticIndex(store *Store, encoder ml.Encoder, cfg *config.Config, logger *logrus.Logger) *SemanticIndex {
	return &SemanticIndex{store: store, encoder: encoder, config: cfg, logger: logger}
}

func (s *SemanticIndex) currentSnapshot() *semanticSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Fit encodes items whose stored hash is missing or stale, persists the new
// embeddings and swaps in a fresh in-memory matrix.
func (s *SemanticIndex) Fit(ctx context.Context, force bool) error {
	s.fitMu.Lock()
	defer s.fitMu.Unlock()

	jobs, err := s.store.ActiveJobs(ctx)
	if err != nil {
		return err
	}
	fingerprint := catalogFingerprint(jobs)

	s.mu.RLock()
	current := s.snapshot
	s.mu.RUnlock()
	if !force && current != nil && current.fingerprint == fingerprint &&
		time.Since(current.builtAt) < s.config.Recommendation.ModelTTL {
		return nil
	}

	stored, err := s.store.JobEmbeddings(ctx)
	if err != nil {
		return err
	}

	type pending struct {
		index int
		hash  string
	}
	var toEncode []pending
	var texts []string

	snapshot := &semanticSnapshot{
		jobIDs:      make([]string, 0, len(jobs)),
		vectors:     make([][]float64, 0, len(jobs)),
		fingerprint: fingerprint,
		builtAt:     time.Now(),
	}

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		text := jobDocumentText(&jobs[i])
		hash := contentHash(text)
		if e, ok := stored[jobs[i].ID]; ok && e.ContentHash == hash && len(e.Vector) > 0 {
			snapshot.jobIDs = append(snapshot.jobIDs, jobs[i].ID)
			snapshot.vectors = append(snapshot.vectors, e.Vector)
			continue
		}
		snapshot.jobIDs = append(snapshot.jobIDs, jobs[i].ID)
		snapshot.vectors = append(snapshot.vectors, nil)
		toEncode = append(toEncode, pending{index: len(snapshot.vectors) - 1, hash: hash})
		texts = append(texts, text)
	}

	encoded := 0
	batch := s.config.Encoder.BatchSize
	if batch <= 0 {
		batch = 32
	}
	for start := 0; start < len(texts); start += batch {
		end := start + batch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := s.encoder.Encode(ctx, texts[start:end])
		if err != nil {
			return err
		}
		for j, vec := range vectors {
			p := toEncode[start+j]
			snapshot.vectors[p.index] = vec
			encoded++
			e := StoredEmbedding{EntityID: snapshot.jobIDs[p.index], ContentHash: p.hash, Vector: vec}
			if err := s.store.UpsertEmbedding(ctx, "job", e); err != nil {
				s.logger.WithError(err).WithField("job_id", e.EntityID).Warn("Failed to persist job embedding")
			}
		}
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"jobs":    len(snapshot.jobIDs),
		"encoded": encoded,
		"reused":  len(snapshot.jobIDs) - encoded,
	}).Info("Semantic index fitted")
	return nil
}

// ScoreProfile ranks items against a user profile. The profile embedding is
// reused from the store when its field hash matches, re-encoded otherwise.
func (s *SemanticIndex) ScoreProfile(ctx context.Context, profile *models.UserProfile, topK int) ([]models.ScoredJob, error) {
	if profile.IsEmpty() {
		return nil, nil
	}

	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap == nil {
		return nil, ErrModelNotFitted
	}
	if len(snap.jobIDs) == 0 {
		return nil, nil
	}

	text := profile.QueryText()
	hash := contentHash(text)

	var vector []float64
	if stored, err := s.store.ProfileEmbedding(ctx, profile.UserID); err == nil &&
		stored != nil && stored.ContentHash == hash && len(stored.Vector) > 0 {
		vector = stored.Vector
	} else {
		encoded, err := s.encoder.Encode(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		vector = encoded[0]
		e := StoredEmbedding{EntityID: profile.UserID, ContentHash: hash, Vector: vector}
		if err := s.store.UpsertEmbedding(ctx, "profile", e); err != nil {
			s.logger.WithError(err).WithField("user_id", profile.UserID).Warn("Failed to persist profile embedding")
		}
	}

	return snap.rank(ctx, vector, topK, "")
}

// ScoreJob ranks items against one seed job, excluding the seed.
func (s *SemanticIndex) ScoreJob(ctx context.Context, jobID string, topK int) ([]models.ScoredJob, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap == nil {
		return nil, ErrModelNotFitted
	}

	var seed []float64
	for i, id := range snap.jobIDs {
		if id == jobID {
			seed = snap.vectors[i]
			break
		}
	}
	if seed == nil {
		// Seed not indexed yet: no semantic signal, not an error.
		return nil, nil
	}
	return snap.rank(ctx, seed, topK, jobID)
}

func (s *semanticSnapshot) rank(ctx context.Context, query []float64, topK int, exclude string) ([]models.ScoredJob, error) {
	queryNorm := floats.Norm(query, 2)
	if queryNorm == 0 {
		return nil, nil
	}

	scored := make([]models.ScoredJob, 0, len(s.jobIDs))
	for i, vec := range s.vectors {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if s.jobIDs[i] == exclude || len(vec) != len(query) {
			continue
		}
		vecNorm := floats.Norm(vec, 2)
		if vecNorm == 0 {
			continue
		}
		score := floats.Dot(query, vec) / (queryNorm * vecNorm)
		if score > 0 {
			scored = append(scored, models.ScoredJob{JobID: s.jobIDs[i], Score: score, Source: "semantic"})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

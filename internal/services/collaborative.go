package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/pkg/models"
)

const popularCacheKey = "popular:jobs"

// collabSnapshot is one fitted user x item interaction matrix with
// precomputed row norms. Rows are sparse: jobIdx -> summed weight.
type collabSnapshot struct {
	UserIDs     []string          `json:"user_ids"`
	UserIndex   map[string]int    `json:"user_index"`
	JobIDs      []string          `json:"job_ids"`
	JobIndex    map[string]int    `json:"job_index"`
	Rows        []map[int]float64 `json:"rows"`
	RowNorms    []float64         `json:"row_norms"`
	Fingerprint string            `json:"fingerprint"`
	BuiltAt     time.Time         `json:"built_at"`
}

// CollaborativeFilter predicts a user's affinity for unseen jobs from the
// behavior of similar users, and carries the population-level fallbacks.
type CollaborativeFilter struct {
	store  *Store
	redis  *redis.Client
	config *config.Config
	logger *logrus.Logger

	mu       sync.RWMutex
	fitMu    sync.Mutex
	snapshot *collabSnapshot
}

func NewCollaborativeFilter(store *Store, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) *CollaborativeFilter {
	return &CollaborativeFilter{store: store, redis: redisClient, config: cfg, logger: logger}
}

func (c *CollaborativeFilter) currentSnapshot() *collabSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func interactionFingerprint(cells []models.AggregatedInteraction) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(len(cells))))
	for i := range cells {
		h.Write([]byte(cells[i].UserID))
		h.Write([]byte(cells[i].JobID))
		h.Write([]byte(strconv.FormatFloat(cells[i].Score, 'f', 2, 64)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fit rebuilds the interaction matrix. It reports false without error when
// there are no interactions to fit on; staleness between explicit rebuilds is
// an accepted trade-off.
func (c *CollaborativeFilter) Fit(ctx context.Context, force bool) (bool, error) {
	c.fitMu.Lock()
	defer c.fitMu.Unlock()

	cells, err := c.store.AggregatedInteractions(ctx)
	if err != nil {
		return false, err
	}
	if len(cells) == 0 {
		c.logger.Info("No interactions available, collaborative model not fitted")
		return false, nil
	}
	fingerprint := interactionFingerprint(cells)

	c.mu.RLock()
	current := c.snapshot
	c.mu.RUnlock()
	if !force && current != nil && current.Fingerprint == fingerprint &&
		time.Since(current.BuiltAt) < c.config.Recommendation.ModelTTL {
		return true, nil
	}

	snapshot := &collabSnapshot{
		UserIndex:   make(map[string]int),
		JobIndex:    make(map[string]int),
		Fingerprint: fingerprint,
		BuiltAt:     time.Now(),
	}
	for _, cell := range cells {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		ui, ok := snapshot.UserIndex[cell.UserID]
		if !ok {
			ui = len(snapshot.UserIDs)
			snapshot.UserIndex[cell.UserID] = ui
			snapshot.UserIDs = append(snapshot.UserIDs, cell.UserID)
			snapshot.Rows = append(snapshot.Rows, make(map[int]float64))
		}
		ji, ok := snapshot.JobIndex[cell.JobID]
		if !ok {
			ji = len(snapshot.JobIDs)
			snapshot.JobIndex[cell.JobID] = ji
			snapshot.JobIDs = append(snapshot.JobIDs, cell.JobID)
		}
		snapshot.Rows[ui][ji] += cell.Score
	}

	snapshot.RowNorms = make([]float64, len(snapshot.Rows))
	for i, row := range snapshot.Rows {
		var sumSq float64
		for _, v := range row {
			sumSq += v * v
		}
		snapshot.RowNorms[i] = math.Sqrt(sumSq)
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	if c.redis != nil {
		c.redis.Del(ctx, popularCacheKey)
	}

	c.logger.WithFields(logrus.Fields{
		"users": len(snapshot.UserIDs),
		"jobs":  len(snapshot.JobIDs),
		"cells": len(cells),
	}).Info("Collaborative model fitted")
	return true, nil
}

// Recommend predicts scores for jobs the user has not interacted with, from
// the 20 most similar users. A user absent from the matrix gets an empty
// result; the caller owns the cold-start chain.
func (c *CollaborativeFilter) Recommend(ctx context.Context, userID string, limit int) ([]models.ScoredJob, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}

	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap == nil {
		return nil, ErrModelNotFitted
	}

	target, ok := snap.UserIndex[userID]
	if !ok {
		return nil, nil
	}

	type neighbor struct {
		index int
		sim   float64
	}
	neighbors := make([]neighbor, 0, len(snap.Rows))
	targetRow := snap.Rows[target]
	targetNorm := snap.RowNorms[target]
	for i, row := range snap.Rows {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if i == target || targetNorm == 0 || snap.RowNorms[i] == 0 {
			continue
		}
		var dot float64
		small, large := targetRow, row
		if len(large) < len(small) {
			small, large = large, small
		}
		for k, v := range small {
			if w, ok := large[k]; ok {
				dot += v * w
			}
		}
		if dot > 0 {
			neighbors = append(neighbors, neighbor{index: i, sim: dot / (targetNorm * snap.RowNorms[i])})
		}
	}
	sort.SliceStable(neighbors, func(i, j int) bool { return neighbors[i].sim > neighbors[j].sim })
	count := c.config.Recommendation.NeighborCount
	if count <= 0 {
		count = 20
	}
	if len(neighbors) > count {
		neighbors = neighbors[:count]
	}

	// Similarity-weighted average over neighbor scores. Candidates nobody
	// among the neighbors touched simply never enter the maps.
	weightedSum := make(map[int]float64)
	simSum := make(map[int]float64)
	for _, nb := range neighbors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for ji, score := range snap.Rows[nb.index] {
			if _, interacted := targetRow[ji]; interacted {
				continue
			}
			weightedSum[ji] += nb.sim * score
			simSum[ji] += nb.sim
		}
	}

	scored := make([]models.ScoredJob, 0, len(weightedSum))
	for ji, ws := range weightedSum {
		if simSum[ji] <= 0 {
			continue
		}
		scored = append(scored, models.ScoredJob{
			JobID:  snap.JobIDs[ji],
			Score:  ws / simSum[ji],
			Source: "collaborative",
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].JobID < scored[j].JobID
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Popular sums interaction weights per job across the whole population.
// Empty when no model is fitted or it has no interactions.
func (c *CollaborativeFilter) Popular(ctx context.Context, limit int) ([]models.ScoredJob, error) {
	if c.redis != nil {
		if data, err := c.redis.Get(ctx, popularCacheKey).Bytes(); err == nil {
			var cached []models.ScoredJob
			if err := json.Unmarshal(data, &cached); err == nil {
				if limit > 0 && len(cached) > limit {
					cached = cached[:limit]
				}
				return cached, nil
			}
		}
	}

	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap == nil {
		return nil, nil
	}

	totals := make(map[int]float64)
	for _, row := range snap.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for ji, v := range row {
			totals[ji] += v
		}
	}
	scored := make([]models.ScoredJob, 0, len(totals))
	for ji, total := range totals {
		scored = append(scored, models.ScoredJob{JobID: snap.JobIDs[ji], Score: total, Source: "popular"})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].JobID < scored[j].JobID
	})

	if c.redis != nil && len(scored) > 0 {
		if data, err := json.Marshal(scored); err == nil {
			if err := c.redis.Set(ctx, popularCacheKey, data, c.config.Recommendation.Caching.PopularTTL).Err(); err != nil {
				c.logger.WithError(err).Debug("Failed to cache popular jobs")
			}
		}
	}

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Recent scores active jobs by inverse age so the system still answers when
// there are no interactions at all: score = 1 - min(age_days, 30)/30.
func (c *CollaborativeFilter) Recent(ctx context.Context, limit int) ([]models.ScoredJob, error) {
	jobs, err := c.store.RecentJobs(ctx, limit)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	window := float64(c.config.Recommendation.RecencyWindow)
	if window <= 0 {
		window = 30
	}
	scored := make([]models.ScoredJob, 0, len(jobs))
	for _, j := range jobs {
		ageDays := now.Sub(j.CreatedAt).Hours() / 24
		if ageDays > window {
			ageDays = window
		}
		if ageDays < 0 {
			ageDays = 0
		}
		scored = append(scored, models.ScoredJob{
			JobID:  j.ID,
			Score:  1 - ageDays/window,
			Source: "recent",
		})
	}
	return scored, nil
}

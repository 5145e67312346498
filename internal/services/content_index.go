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
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/pkg/models"
)

const contentSnapshotKey = "model:content:snapshot"

// contentSnapshot is one fitted TF-IDF index. Snapshots are immutable after
// build; readers always see either the previous or the new snapshot, never a
// half-built one.
type contentSnapshot struct {
	JobIDs      []string          `json:"job_ids"`
	Vocabulary  map[string]int    `json:"vocabulary"`
	IDF         []float64         `json:"idf"`
	Rows        []map[int]float64 `json:"rows"`
	Fingerprint string            `json:"fingerprint"`
	BuiltAt     time.Time         `json:"built_at"`
}

// ContentIndex scores jobs by lexical similarity over a bag of 1-2 grams.
// Title terms carry triple weight and experience level double weight to bias
// toward role-identity terms.
type ContentIndex struct {
	store  *Store
	redis  *redis.Client
	config *config.Config
	logger *logrus.Logger

	mu       sync.RWMutex
	fitMu    sync.Mutex
	snapshot *contentSnapshot
}

func NewContentIndex(store *Store, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) *ContentIndex {
	return &ContentIndex{store: store, redis: redisClient, config: cfg, logger: logger}
}

func jobDocumentText(j *models.Job) string {
	var b strings.Builder
	for i := 0; i < 3; i++ {
		b.WriteString(j.Title)
		b.WriteByte(' ')
	}
	b.WriteString(j.Description)
	b.WriteByte(' ')
	b.WriteString(j.Benefits)
	b.WriteByte(' ')
	for i := 0; i < 2; i++ {
		b.WriteString(j.ExperienceLevel)
		b.WriteByte(' ')
	}
	return b.String()
}

func catalogFingerprint(jobs []models.Job) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(len(jobs))))
	for i := range jobs {
		h.Write([]byte(jobs[i].ID))
		h.Write([]byte(jobs[i].Title))
		h.Write([]byte(strconv.Itoa(len(jobs[i].Description))))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fit rebuilds the index from the live catalog. Concurrent calls are
// serialized; a rebuild is skipped when the catalog fingerprint is unchanged
// and the snapshot is younger than the model TTL, unless forced.
func (c *ContentIndex) Fit(ctx context.Context, force bool) error {
	c.fitMu.Lock()
	defer c.fitMu.Unlock()

	jobs, err := c.store.ActiveJobs(ctx)
	if err != nil {
		return err
	}
	fingerprint := catalogFingerprint(jobs)

	c.mu.RLock()
	current := c.snapshot
	c.mu.RUnlock()
	if !force && current != nil && current.Fingerprint == fingerprint &&
		time.Since(current.BuiltAt) < c.config.Recommendation.ModelTTL {
		return nil
	}

	// A restarted process can adopt the snapshot a peer already built.
	if !force && current == nil && c.redis != nil {
		if cached := c.loadCachedSnapshot(ctx); cached != nil && cached.Fingerprint == fingerprint {
			c.mu.Lock()
			c.snapshot = cached
			c.mu.Unlock()
			c.logger.Info("Content index warm-loaded from cache")
			return nil
		}
	}

	start := time.Now()
	snapshot, err := buildContentSnapshot(ctx, jobs, fingerprint)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	if c.redis != nil {
		if data, err := json.Marshal(snapshot); err == nil {
			if err := c.redis.Set(ctx, contentSnapshotKey, data, c.config.Recommendation.ModelTTL).Err(); err != nil {
				c.logger.WithError(err).Debug("Failed to cache content snapshot")
			}
		}
	}

	c.logger.WithFields(logrus.Fields{
		"jobs":       len(jobs),
		"vocabulary": len(snapshot.Vocabulary),
		"duration":   time.Since(start),
	}).Info("Content index fitted")
	return nil
}

func (c *ContentIndex) currentSnapshot() *contentSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *ContentIndex) loadCachedSnapshot(ctx context.Context) *contentSnapshot {
	data, err := c.redis.Get(ctx, contentSnapshotKey).Bytes()
	if err != nil {
		return nil
	}
	var snap contentSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	return &snap
}

func buildContentSnapshot(ctx context.Context, jobs []models.Job, fingerprint string) (*contentSnapshot, error) {
	docs := make([][]string, len(jobs))
	vocab := make(map[string]int)
	df := make([]int, 0, 1024)

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		grams := NGrams(Tokenize(jobDocumentText(&jobs[i])))
		docs[i] = grams
		seen := make(map[string]struct{}, len(grams))
		for _, g := range grams {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			idx, ok := vocab[g]
			if !ok {
				idx = len(vocab)
				vocab[g] = idx
				df = append(df, 0)
			}
			df[idx]++
		}
	}

	n := float64(len(jobs))
	idf := make([]float64, len(df))
	for i, d := range df {
		idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	snapshot := &contentSnapshot{
		JobIDs:      make([]string, len(jobs)),
		Vocabulary:  vocab,
		IDF:         idf,
		Rows:        make([]map[int]float64, len(jobs)),
		Fingerprint: fingerprint,
		BuiltAt:     time.Now(),
	}
	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snapshot.JobIDs[i] = jobs[i].ID
		snapshot.Rows[i] = vectorizeGrams(docs[i], vocab, idf)
	}
	return snapshot, nil
}

// vectorizeGrams builds an L2-normalized sparse TF-IDF vector over a fitted
// vocabulary. Grams outside the vocabulary are ignored.
func vectorizeGrams(grams []string, vocab map[string]int, idf []float64) map[int]float64 {
	vec := make(map[int]float64)
	for _, g := range grams {
		if idx, ok := vocab[g]; ok {
			vec[idx] += idf[idx]
		}
	}
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq > 0 {
		norm := math.Sqrt(sumSq)
		for k, v := range vec {
			vec[k] = v / norm
		}
	}
	return vec
}

func sparseDot(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for k, v := range a {
		if w, ok := b[k]; ok {
			dot += v * w
		}
	}
	return dot
}

// ScoreText ranks the catalog against free query text. Ties keep catalog
// order via the stable sort.
func (c *ContentIndex) ScoreText(ctx context.Context, text string, topK int) ([]models.ScoredJob, error) {
	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap == nil {
		return nil, ErrModelNotFitted
	}

	query := vectorizeGrams(NGrams(Tokenize(text)), snap.Vocabulary, snap.IDF)
	if len(query) == 0 {
		return nil, nil
	}
	return snap.rank(ctx, query, topK, -1)
}

// ScoreJob ranks the catalog against one seed job, excluding the seed itself.
func (c *ContentIndex) ScoreJob(ctx context.Context, jobID string, topK int) ([]models.ScoredJob, error) {
	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap == nil {
		return nil, ErrModelNotFitted
	}

	seed := -1
	for i, id := range snap.JobIDs {
		if id == jobID {
			seed = i
			break
		}
	}
	if seed < 0 {
		return nil, fmt.Errorf("%w: unknown job id %q", ErrInvalidInput, jobID)
	}
	return snap.rank(ctx, snap.Rows[seed], topK, seed)
}

func (s *contentSnapshot) rank(ctx context.Context, query map[int]float64, topK, exclude int) ([]models.ScoredJob, error) {
	scored := make([]models.ScoredJob, 0, len(s.Rows))
	for i, row := range s.Rows {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if i == exclude {
			continue
		}
		if score := sparseDot(query, row); score > 0 {
			scored = append(scored, models.ScoredJob{JobID: s.JobIDs[i], Score: score, Source: "content"})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/internal/ml"
	"github.com/careerlink/jobrec/pkg/models"
)

const (
	ModelContent       = "content"
	ModelSemantic      = "semantic"
	ModelCollaborative = "collaborative"
)

// Recommender orchestrates a recommendation request: profile assembly,
// concurrent source scoring, fusion, enrichment, filtering and pagination.
type Recommender struct {
	store         *Store
	profiles      *ProfileBuilder
	content       *ContentIndex
	semantic      *SemanticIndex
	collaborative *CollaborativeFilter
	fusion        *FusionEngine
	registry      *ml.ModelRegistry
	redis         *redis.Client
	config        *config.Config
	logger        *logrus.Logger
	metrics       *MetricsCollector
}

func NewRecommender(
	store *Store,
	profiles *ProfileBuilder,
	content *ContentIndex,
	semantic *SemanticIndex,
	collaborative *CollaborativeFilter,
	fusion *FusionEngine,
	registry *ml.ModelRegistry,
	redisClient *redis.Client,
	cfg *config.Config,
	logger *logrus.Logger,
	metrics *MetricsCollector,
) *Recommender {
	r := &Recommender{
		store:         store,
		profiles:      profiles,
		content:       content,
		semantic:      semantic,
		collaborative: collaborative,
		fusion:        fusion,
		registry:      registry,
		redis:         redisClient,
		config:        cfg,
		logger:        logger,
		metrics:       metrics,
	}
	registry.Register(&ml.ModelInfo{Name: ModelContent, Kind: "index", Version: "1"})
	registry.Register(&ml.ModelInfo{Name: ModelSemantic, Kind: "index", Version: "1"})
	registry.Register(&ml.ModelInfo{Name: ModelCollaborative, Kind: "matrix", Version: "1"})
	return r
}

// RebuildModel refits one model (or all) and records the outcome in the
// registry. The admin endpoint and the event consumers call this.
func (r *Recommender) RebuildModel(ctx context.Context, name string, force bool) error {
	rebuild := func(model string) error {
		r.registry.MarkBuilding(model)
		var err error
		var fingerprint string
		switch model {
		case ModelContent:
			err = r.content.Fit(ctx, force)
			if snap := r.content.currentSnapshot(); snap != nil {
				fingerprint = snap.Fingerprint
			}
		case ModelSemantic:
			err = r.semantic.Fit(ctx, force)
			if snap := r.semantic.currentSnapshot(); snap != nil {
				fingerprint = snap.fingerprint
			}
		case ModelCollaborative:
			_, err = r.collaborative.Fit(ctx, force)
			if snap := r.collaborative.currentSnapshot(); snap != nil {
				fingerprint = snap.Fingerprint
			}
		default:
			return fmt.Errorf("%w: unknown model %q", ErrInvalidInput, model)
		}
		if err != nil {
			r.registry.MarkFailed(model, err)
			return err
		}
		r.registry.MarkReady(model, fingerprint)
		if r.metrics != nil {
			r.metrics.RecordModelBuild(model)
		}
		return nil
	}

	if name == "all" || name == "" {
		var errs []string
		for _, model := range []string{ModelContent, ModelSemantic, ModelCollaborative} {
			if err := rebuild(model); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", model, err))
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("rebuild failures: %s", strings.Join(errs, "; "))
		}
		return nil
	}
	return rebuild(name)
}

// ModelStatus exposes the registry for the admin surface.
func (r *Recommender) ModelStatus() []ml.ModelInfo {
	return r.registry.List()
}

type sourceResult struct {
	name    string
	scores  []models.ScoredJob
	latency time.Duration
	err     error
}

// scoreSources runs the three scoring sources concurrently against one
// consistent set of fitted snapshots. A failed or timed-out source degrades
// to an empty contribution; it never fails the request.
func (r *Recommender) scoreSources(ctx context.Context, userID string, profile *models.UserProfile, seedJobID string, limit int) []models.SourceScores {
	timeout := r.config.Recommendation.SourceTimeout
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]sourceResult, 3)

	run := func(name string, score func(context.Context) ([]models.ScoredJob, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			scores, err := score(ctx)
			if errors.Is(err, ErrModelNotFitted) {
				// One synchronous rebuild, then a single retry.
				if rebuildErr := r.RebuildModel(ctx, name, false); rebuildErr == nil {
					scores, err = score(ctx)
				}
			}
			latency := time.Since(start)
			if err != nil {
				r.logger.WithError(err).WithField("source", name).Warn("Scoring source failed, degrading")
			}
			if r.metrics != nil {
				r.metrics.RecordSourceLatency(name, latency, err == nil)
			}
			mu.Lock()
			results[name] = sourceResult{name: name, scores: scores, latency: latency, err: err}
			mu.Unlock()
		}()
	}

	if seedJobID != "" {
		run(ModelContent, func(ctx context.Context) ([]models.ScoredJob, error) {
			return r.content.ScoreJob(ctx, seedJobID, limit)
		})
		run(ModelSemantic, func(ctx context.Context) ([]models.ScoredJob, error) {
			return r.semantic.ScoreJob(ctx, seedJobID, limit)
		})
	} else if !profile.IsEmpty() {
		run(ModelContent, func(ctx context.Context) ([]models.ScoredJob, error) {
			return r.content.ScoreText(ctx, profile.QueryText(), limit)
		})
		run(ModelSemantic, func(ctx context.Context) ([]models.ScoredJob, error) {
			return r.semantic.ScoreProfile(ctx, profile, limit)
		})
	}

	if userID != "" {
		run(ModelCollaborative, func(ctx context.Context) ([]models.ScoredJob, error) {
			count, err := r.store.InteractionCount(ctx, userID)
			if err != nil {
				return nil, err
			}
			if count < r.config.Recommendation.MinInteractions {
				return nil, nil
			}
			return r.collaborative.Recommend(ctx, userID, limit)
		})
	}

	wg.Wait()

	sources := make([]models.SourceScores, 0, 3)
	for _, name := range []string{ModelContent, ModelSemantic, ModelCollaborative} {
		if res, ok := results[name]; ok && res.err == nil {
			sources = append(sources, models.SourceScores{Name: name, Scores: res.scores})
		} else if ok {
			sources = append(sources, models.SourceScores{Name: name})
		}
	}
	return sources
}

// RecommendJobs produces the fused, filtered, paginated job page for a user
// (or anonymous caller). Only invalid input is returned as an error; any
// internal failure degrades down the fallback chain and, in the worst case,
// yields an empty page with metadata.error set.
func (r *Recommender) RecommendJobs(ctx context.Context, req *models.RecommendationRequest) (*models.JobPage, error) {
	start := time.Now()
	if req.Size <= 0 {
		req.Size = 10
	}

	cacheKey := r.pageCacheKey("jobs", req.UserID, "", req)
	if page := r.cachedPage(ctx, cacheKey); page != nil {
		page.Metadata.CacheHit = true
		return page, nil
	}

	var profile *models.UserProfile
	if req.UserID != "" {
		var err error
		profile, err = r.profiles.Build(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				return nil, err
			}
			r.logger.WithError(err).WithField("user_id", req.UserID).Warn("Profile build failed, continuing without profile")
		}
	}

	overfetch := req.Size * r.overfetchFactor()
	sources := r.scoreSources(ctx, req.UserID, profile, "", overfetch)
	fused := r.fusion.Fuse(sources, overfetch)

	usedSources := contributingSources(sources)
	var chainErr error
	if len(fused) == 0 {
		fused, usedSources, chainErr = r.fallback(ctx, overfetch)
	}

	page := r.assemblePage(ctx, fused, req, start, usedSources, chainErr)
	if chainErr == nil && len(page.Content) > 0 {
		r.cachePage(ctx, cacheKey, page)
	}
	return page, nil
}

// SimilarJobs ranks items similar to a seed job from content and semantic
// signals, with a collaborative boost only for identified callers.
func (r *Recommender) SimilarJobs(ctx context.Context, jobID string, req *models.RecommendationRequest) (*models.JobPage, error) {
	start := time.Now()
	if jobID == "" {
		return nil, fmt.Errorf("%w: empty job id", ErrInvalidInput)
	}
	if req.Size <= 0 {
		req.Size = 10
	}

	cacheKey := r.pageCacheKey("similar", req.UserID, jobID, req)
	if page := r.cachedPage(ctx, cacheKey); page != nil {
		page.Metadata.CacheHit = true
		return page, nil
	}

	overfetch := req.Size * r.overfetchFactor()
	sources := r.scoreSources(ctx, req.UserID, nil, jobID, overfetch)

	// An unknown seed surfaces immediately as invalid input.
	for _, src := range sources {
		if src.Name == ModelContent && len(src.Scores) == 0 {
			if _, err := r.content.ScoreJob(ctx, jobID, 1); errors.Is(err, ErrInvalidInput) {
				return nil, err
			}
		}
	}

	fused := r.fusion.Fuse(sources, overfetch)
	usedSources := contributingSources(sources)
	var chainErr error
	if len(fused) == 0 {
		fused, usedSources, chainErr = r.fallback(ctx, overfetch)
	}

	page := r.assemblePage(ctx, fused, req, start, usedSources, chainErr)
	if chainErr == nil && len(page.Content) > 0 {
		r.cachePage(ctx, cacheKey, page)
	}
	return page, nil
}

// fallback walks the population-level strategies in order: popular first,
// recent last. Each strategy either returns a populated result or explicitly
// nothing; only when every strategy fails does the page carry an error.
func (r *Recommender) fallback(ctx context.Context, limit int) ([]models.ScoredJob, []string, error) {
	popular, err := r.collaborative.Popular(ctx, limit)
	if err != nil {
		r.logger.WithError(err).Warn("Popular fallback failed")
	} else if len(popular) > 0 {
		return popular, []string{"popular"}, nil
	}

	recent, err := r.collaborative.Recent(ctx, limit)
	if err != nil {
		r.logger.WithError(err).Error("Recent fallback failed")
		return nil, nil, fmt.Errorf("%w: no recommendation source available", ErrUpstreamUnavailable)
	}
	if len(recent) == 0 {
		return nil, []string{"recent"}, nil
	}
	return recent, []string{"recent"}, nil
}

// assemblePage enriches, filters and paginates a fused ranking. Filtering
// runs strictly before pagination.
func (r *Recommender) assemblePage(ctx context.Context, fused []models.ScoredJob, req *models.RecommendationRequest, start time.Time, sources []string, chainErr error) *models.JobPage {
	metadata := models.PageMetadata{
		Sources:        sources,
		FiltersApplied: !req.Filter.IsZero(),
		Authenticated:  req.UserID != "",
	}
	if chainErr != nil {
		metadata.Error = chainErr.Error()
	}

	var enriched []models.EnrichedJob
	if len(fused) > 0 {
		var err error
		enriched, err = r.enrich(ctx, fused, req.UserID, req.Filter)
		if err != nil {
			r.logger.WithError(err).Error("Enrichment failed")
			metadata.Error = "recommendation enrichment unavailable"
			enriched = nil
		}
	}

	info := models.NewPageInfo(req.Page, req.Size, len(enriched))
	startIdx := info.Number * info.Size
	endIdx := startIdx + info.Size
	if startIdx > len(enriched) {
		startIdx = len(enriched)
	}
	if endIdx > len(enriched) {
		endIdx = len(enriched)
	}
	content := enriched[startIdx:endIdx]
	if content == nil {
		content = []models.EnrichedJob{}
	}

	metadata.QueryTimeMs = time.Since(start).Milliseconds()
	return &models.JobPage{Content: content, Page: info, Metadata: metadata}
}

// enrich resolves fused ids to live jobs, attaches display fields, removes
// the caller's own postings and applies the request filters.
func (r *Recommender) enrich(ctx context.Context, fused []models.ScoredJob, userID string, filter models.JobFilter) ([]models.EnrichedJob, error) {
	ids := make([]string, len(fused))
	for i, s := range fused {
		ids[i] = s.JobID
	}
	jobs, err := r.store.JobsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var categoryIDs, ownerIDs []string
	seenCat := make(map[string]struct{})
	seenOwner := make(map[string]struct{})
	for _, j := range jobs {
		if _, ok := seenCat[j.CategoryID]; !ok && j.CategoryID != "" {
			seenCat[j.CategoryID] = struct{}{}
			categoryIDs = append(categoryIDs, j.CategoryID)
		}
		if _, ok := seenOwner[j.OwnerID]; !ok && j.OwnerID != "" {
			seenOwner[j.OwnerID] = struct{}{}
			ownerIDs = append(ownerIDs, j.OwnerID)
		}
	}
	categories, err := r.store.Categories(ctx, categoryIDs)
	if err != nil {
		r.logger.WithError(err).Debug("Category enrichment unavailable")
		categories = map[string]string{}
	}
	owners, err := r.store.Owners(ctx, ownerIDs)
	if err != nil {
		r.logger.WithError(err).Debug("Owner enrichment unavailable")
		owners = map[string]string{}
	}

	enriched := make([]models.EnrichedJob, 0, len(fused))
	for _, s := range fused {
		job, ok := jobs[s.JobID]
		if !ok {
			continue
		}
		if userID != "" && job.OwnerID == userID {
			continue
		}
		if !r.fusion.ApplyFilters(&job, filter) {
			continue
		}
		enriched = append(enriched, models.EnrichedJob{
			Job:                 job,
			RecommendationScore: s.Score,
			OwnerName:           owners[job.OwnerID],
			CategoryName:        categories[job.CategoryID],
		})
	}
	sort.SliceStable(enriched, func(i, j int) bool {
		return enriched[i].RecommendationScore > enriched[j].RecommendationScore
	})
	return enriched, nil
}

func (r *Recommender) overfetchFactor() int {
	if f := r.config.Recommendation.OverfetchFactor; f > 0 {
		return f
	}
	return 3
}

func contributingSources(sources []models.SourceScores) []string {
	var out []string
	for _, src := range sources {
		if len(src.Scores) > 0 {
			out = append(out, src.Name)
		}
	}
	return out
}

func (r *Recommender) pageCacheKey(kind, userID, jobID string, req *models.RecommendationRequest) string {
	payload, _ := json.Marshal(struct {
		Kind   string           `json:"kind"`
		UserID string           `json:"user_id"`
		JobID  string           `json:"job_id"`
		Page   int              `json:"page"`
		Size   int              `json:"size"`
		Filter models.JobFilter `json:"filter"`
	}{kind, userID, jobID, req.Page, req.Size, req.Filter})
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("rec:%s:%s", kind, hex.EncodeToString(sum[:16]))
}

func (r *Recommender) cachedPage(ctx context.Context, key string) *models.JobPage {
	if r.redis == nil {
		return nil
	}
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var page models.JobPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil
	}
	return &page
}

func (r *Recommender) cachePage(ctx context.Context, key string, page *models.JobPage) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, key, data, r.config.Recommendation.Caching.RecommendationsTTL).Err(); err != nil {
		r.logger.WithError(err).Debug("Failed to cache recommendation page")
	}
}

package services

import (
	"sort"
	"strings"

	"github.com/careerlink/jobrec/pkg/models"
)

// FusionEngine merges independently computed score lists into one ranking
// and applies the business filters. It is pure: no storage, no locks.
type FusionEngine struct {
	weights models.FusionWeights
}

func NewFusionEngine(weights models.FusionWeights) *FusionEngine {
	return &FusionEngine{weights: weights}
}

// normalizeScores min-max normalizes to [0,1]. A list with a single distinct
// value maps everything to 1.0 so a flat source still contributes.
func normalizeScores(scores []models.ScoredJob) []models.ScoredJob {
	if len(scores) == 0 {
		return scores
	}
	minScore, maxScore := scores[0].Score, scores[0].Score
	for _, s := range scores[1:] {
		if s.Score < minScore {
			minScore = s.Score
		}
		if s.Score > maxScore {
			maxScore = s.Score
		}
	}
	out := make([]models.ScoredJob, len(scores))
	copy(out, scores)
	if maxScore == minScore {
		for i := range out {
			out[i].Score = 1.0
		}
		return out
	}
	span := maxScore - minScore
	for i := range out {
		out[i].Score = (out[i].Score - minScore) / span
	}
	return out
}

// effectiveWeights renormalizes the configured weights to sum to 1 over the
// sources that produced data. An absent source contributes zero instead of
// diluting the others.
func effectiveWeights(sources []models.SourceScores, weights map[string]float64) map[string]float64 {
	var total float64
	for _, src := range sources {
		if len(src.Scores) > 0 {
			total += weights[src.Name]
		}
	}
	out := make(map[string]float64, len(sources))
	if total == 0 {
		return out
	}
	for _, src := range sources {
		if len(src.Scores) > 0 {
			out[src.Name] = weights[src.Name] / total
		}
	}
	return out
}

// Fuse normalizes each source, renormalizes weights over non-empty sources,
// sums over the union of keys, sorts descending and truncates to limit. Ties
// keep union order (first-seen across sources, in source order). Returns an
// empty result only when every source is empty.
func (f *FusionEngine) Fuse(sources []models.SourceScores, limit int) []models.ScoredJob {
	weights := map[string]float64{
		"content":       f.weights.Content,
		"semantic":      f.weights.Semantic,
		"collaborative": f.weights.Collaborative,
	}
	effective := effectiveWeights(sources, weights)
	if len(effective) == 0 {
		return nil
	}

	fused := make(map[string]float64)
	var unionOrder []string
	for _, src := range sources {
		w, ok := effective[src.Name]
		if !ok {
			continue
		}
		for _, s := range normalizeScores(src.Scores) {
			if _, seen := fused[s.JobID]; !seen {
				unionOrder = append(unionOrder, s.JobID)
			}
			fused[s.JobID] += w * s.Score
		}
	}

	out := make([]models.ScoredJob, 0, len(fused))
	for _, id := range unionOrder {
		out = append(out, models.ScoredJob{JobID: id, Score: fused[id], Source: "hybrid"})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ApplyFilters reports whether a job passes the request criteria. Filtering
// always happens before pagination so a page boundary never exposes a
// would-be-filtered item.
func (f *FusionEngine) ApplyFilters(job *models.Job, criteria models.JobFilter) bool {
	if criteria.Keyword != "" {
		haystack := Fold(job.Title + " " + job.Description + " " + strings.Join(job.Skills, " "))
		if !strings.Contains(haystack, Fold(criteria.Keyword)) {
			return false
		}
	}
	if len(criteria.CategoryIDs) > 0 {
		allowed := false
		for _, id := range criteria.CategoryIDs {
			if id == job.CategoryID {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	if criteria.SalaryMin > 0 && job.SalaryMin < criteria.SalaryMin {
		return false
	}
	if criteria.SalaryMax > 0 && job.SalaryMax > criteria.SalaryMax {
		return false
	}
	if criteria.ExperienceLevel != "" && !strings.EqualFold(job.ExperienceLevel, criteria.ExperienceLevel) {
		return false
	}
	return true
}

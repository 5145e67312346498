package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerlink/jobrec/pkg/models"
)

func TestNormalizeScores(t *testing.T) {
	t.Run("maps scores into unit range", func(t *testing.T) {
		out := normalizeScores([]models.ScoredJob{
			{JobID: "a", Score: 2.0},
			{JobID: "b", Score: 6.0},
			{JobID: "c", Score: 10.0},
		})
		assert.Equal(t, 0.0, out[0].Score)
		assert.Equal(t, 0.5, out[1].Score)
		assert.Equal(t, 1.0, out[2].Score)
	})

	t.Run("single distinct value maps to 1.0", func(t *testing.T) {
		out := normalizeScores([]models.ScoredJob{
			{JobID: "a", Score: 3.7},
			{JobID: "b", Score: 3.7},
		})
		assert.Equal(t, 1.0, out[0].Score)
		assert.Equal(t, 1.0, out[1].Score)
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		assert.Empty(t, normalizeScores(nil))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []models.ScoredJob{{JobID: "a", Score: 2.0}, {JobID: "b", Score: 4.0}}
		normalizeScores(in)
		assert.Equal(t, 2.0, in[0].Score)
	})
}

func TestEffectiveWeights(t *testing.T) {
	weights := map[string]float64{"content": 0.4, "semantic": 0.4, "collaborative": 0.2}

	t.Run("renormalizes over non-empty sources", func(t *testing.T) {
		sources := []models.SourceScores{
			{Name: "content", Scores: []models.ScoredJob{{JobID: "a", Score: 1}}},
			{Name: "semantic", Scores: []models.ScoredJob{{JobID: "a", Score: 1}}},
			{Name: "collaborative"},
		}
		eff := effectiveWeights(sources, weights)
		require.Len(t, eff, 2)
		assert.InDelta(t, 0.5, eff["content"], 1e-9)
		assert.InDelta(t, 0.5, eff["semantic"], 1e-9)
		assert.NotContains(t, eff, "collaborative")
	})

	t.Run("all sources empty yields no weights", func(t *testing.T) {
		sources := []models.SourceScores{{Name: "content"}, {Name: "semantic"}}
		assert.Empty(t, effectiveWeights(sources, weights))
	})

	t.Run("single live source carries full weight", func(t *testing.T) {
		sources := []models.SourceScores{
			{Name: "collaborative", Scores: []models.ScoredJob{{JobID: "a", Score: 1}}},
		}
		eff := effectiveWeights(sources, weights)
		assert.InDelta(t, 1.0, eff["collaborative"], 1e-9)
	})
}

func TestFusionEngine_Fuse(t *testing.T) {
	engine := NewFusionEngine(models.FusionWeights{Content: 0.4, Semantic: 0.4, Collaborative: 0.2})

	t.Run("sums weighted normalized scores over the union of keys", func(t *testing.T) {
		sources := []models.SourceScores{
			{Name: "content", Scores: []models.ScoredJob{
				{JobID: "a", Score: 10},
				{JobID: "b", Score: 5},
				{JobID: "c", Score: 0},
			}},
			{Name: "semantic", Scores: []models.ScoredJob{
				{JobID: "b", Score: 0.9},
				{JobID: "d", Score: 0.1},
			}},
		}
		fused := engine.Fuse(sources, 0)
		require.Len(t, fused, 4)

		scores := make(map[string]float64, len(fused))
		for _, s := range fused {
			scores[s.JobID] = s.Score
		}
		// content and semantic each renormalize to 0.5
		assert.InDelta(t, 0.5, scores["a"], 1e-9)
		assert.InDelta(t, 0.25+0.5, scores["b"], 1e-9)
		assert.InDelta(t, 0.0, scores["c"], 1e-9)
		assert.InDelta(t, 0.0, scores["d"], 1e-9)

		// b dominates, a second; ties keep union order: c before d.
		assert.Equal(t, "b", fused[0].JobID)
		assert.Equal(t, "a", fused[1].JobID)
		assert.Equal(t, "c", fused[2].JobID)
		assert.Equal(t, "d", fused[3].JobID)
	})

	t.Run("empty only when every source is empty", func(t *testing.T) {
		assert.Empty(t, engine.Fuse([]models.SourceScores{{Name: "content"}, {Name: "semantic"}}, 10))

		fused := engine.Fuse([]models.SourceScores{
			{Name: "content"},
			{Name: "collaborative", Scores: []models.ScoredJob{{JobID: "x", Score: 4.2}}},
		}, 10)
		require.Len(t, fused, 1)
		assert.Equal(t, "x", fused[0].JobID)
		assert.InDelta(t, 1.0, fused[0].Score, 1e-9)
	})

	t.Run("truncates to limit after sorting", func(t *testing.T) {
		sources := []models.SourceScores{
			{Name: "content", Scores: []models.ScoredJob{
				{JobID: "a", Score: 1},
				{JobID: "b", Score: 2},
				{JobID: "c", Score: 3},
			}},
		}
		fused := engine.Fuse(sources, 2)
		require.Len(t, fused, 2)
		assert.Equal(t, "c", fused[0].JobID)
		assert.Equal(t, "b", fused[1].JobID)
	})

	t.Run("fused scores stay within unit range", func(t *testing.T) {
		sources := []models.SourceScores{
			{Name: "content", Scores: []models.ScoredJob{{JobID: "a", Score: 100}, {JobID: "b", Score: -4}}},
			{Name: "semantic", Scores: []models.ScoredJob{{JobID: "a", Score: 0.99}, {JobID: "b", Score: 0.01}}},
			{Name: "collaborative", Scores: []models.ScoredJob{{JobID: "b", Score: 5}, {JobID: "a", Score: 3}}},
		}
		for _, s := range engine.Fuse(sources, 0) {
			assert.GreaterOrEqual(t, s.Score, 0.0)
			assert.LessOrEqual(t, s.Score, 1.0)
		}
	})
}

func TestFusionEngine_ApplyFilters(t *testing.T) {
	engine := NewFusionEngine(models.FusionWeights{})
	job := &models.Job{
		Title:           "Kỹ sư phần mềm",
		Description:     "Golang backend developer",
		CategoryID:      "cat-1",
		ExperienceLevel: "Senior",
		SalaryMin:       1000,
		SalaryMax:       2000,
		Skills:          []string{"Go", "PostgreSQL"},
	}

	t.Run("no filters passes", func(t *testing.T) {
		assert.True(t, engine.ApplyFilters(job, models.JobFilter{}))
	})

	t.Run("keyword matches with diacritics folded", func(t *testing.T) {
		assert.True(t, engine.ApplyFilters(job, models.JobFilter{Keyword: "ky su"}))
		assert.True(t, engine.ApplyFilters(job, models.JobFilter{Keyword: "GOLANG"}))
		assert.False(t, engine.ApplyFilters(job, models.JobFilter{Keyword: "python"}))
	})

	t.Run("keyword matches skills", func(t *testing.T) {
		assert.True(t, engine.ApplyFilters(job, models.JobFilter{Keyword: "postgresql"}))
	})

	t.Run("category allow-list", func(t *testing.T) {
		assert.True(t, engine.ApplyFilters(job, models.JobFilter{CategoryIDs: []string{"cat-2", "cat-1"}}))
		assert.False(t, engine.ApplyFilters(job, models.JobFilter{CategoryIDs: []string{"cat-2"}}))
	})

	t.Run("salary window", func(t *testing.T) {
		assert.True(t, engine.ApplyFilters(job, models.JobFilter{SalaryMin: 800, SalaryMax: 2500}))
		assert.False(t, engine.ApplyFilters(job, models.JobFilter{SalaryMin: 1500}))
		assert.False(t, engine.ApplyFilters(job, models.JobFilter{SalaryMax: 1500}))
	})

	t.Run("experience level is case-insensitive", func(t *testing.T) {
		assert.True(t, engine.ApplyFilters(job, models.JobFilter{ExperienceLevel: "senior"}))
		assert.False(t, engine.ApplyFilters(job, models.JobFilter{ExperienceLevel: "junior"}))
	})
}

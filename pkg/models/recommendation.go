package models

// ScoredJob is one (job id, score) entry of a ranked result. Order matters:
// sources return slices, not maps, so downstream tie-breaking by source order
// stays deterministic.
type ScoredJob struct {
	JobID  string  `json:"job_id"`
	Score  float64 `json:"score"`
	Source string  `json:"source,omitempty"`
}

// SourceScores is one scoring source's contribution to fusion. An empty
// Scores slice means the source had no signal for this request; that is not
// an error.
type SourceScores struct {
	Name   string
	Scores []ScoredJob
}

// FusionWeights holds the configured per-source fusion weights. They are
// renormalized at fusion time over the sources that produced data.
type FusionWeights struct {
	Content       float64 `json:"content"`
	Semantic      float64 `json:"semantic"`
	Collaborative float64 `json:"collaborative"`
}

// RecommendationRequest is the resolved form of a recommendation query after
// transport parsing: identity (empty UserID means anonymous), pagination and
// filters.
type RecommendationRequest struct {
	UserID string    `json:"user_id,omitempty"`
	Page   int       `json:"page"`
	Size   int       `json:"size" validate:"min=1,max=100"`
	Filter JobFilter `json:"filter"`
}

// PageInfo is the pagination envelope attached to every job page.
type PageInfo struct {
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	HasNext       bool `json:"hasNext"`
	HasPrevious   bool `json:"hasPrevious"`
}

// PageMetadata carries per-request diagnostics. Error is set only when the
// whole fallback chain failed; requests never surface raw internal errors.
type PageMetadata struct {
	QueryTimeMs    int64    `json:"query_time_ms"`
	Sources        []string `json:"sources,omitempty"`
	FiltersApplied bool     `json:"filters_applied"`
	Authenticated  bool     `json:"authenticated"`
	CacheHit       bool     `json:"cache_hit,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// JobPage is the paginated response body for job recommendations.
type JobPage struct {
	Content  []EnrichedJob `json:"content"`
	Page     PageInfo      `json:"page"`
	Metadata PageMetadata  `json:"metadata"`
}

// NewPageInfo computes the pagination envelope with the clamping rules:
// totalPages has a floor of 1, a negative page clamps to 0 and an
// out-of-range page clamps to the last valid page.
func NewPageInfo(page, size, total int) PageInfo {
	if size < 1 {
		size = 1
	}
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}
	return PageInfo{
		Number:        page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		HasNext:       page < totalPages-1,
		HasPrevious:   page > 0,
	}
}

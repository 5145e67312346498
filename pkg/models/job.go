package models

import "time"

// Job is a catalog entry as read from the document store. Identifiers are
// canonical strings at every module boundary; conversion from storage-native
// ids happens once in the store layer.
type Job struct {
	ID              string     `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description"`
	Benefits        string     `json:"benefits,omitempty" db:"benefits"`
	CategoryID      string     `json:"category_id" db:"category_id"`
	ExperienceLevel string     `json:"experience_level" db:"experience_level"`
	SalaryMin       float64    `json:"salary_min" db:"salary_min"`
	SalaryMax       float64    `json:"salary_max" db:"salary_max"`
	OwnerID         string     `json:"owner_id" db:"owner_id"`
	Skills          []string   `json:"skills,omitempty" db:"skills"`
	Active          bool       `json:"active" db:"active"`
	Status          string     `json:"status" db:"status"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// EnrichedJob is a Job decorated with denormalized display data and the
// fused recommendation score for the request that produced it.
type EnrichedJob struct {
	Job
	RecommendationScore float64 `json:"recommendation_score"`
	OwnerName           string  `json:"owner_name,omitempty"`
	CategoryName        string  `json:"category_name,omitempty"`
}

// JobFilter carries the business filters applied before pagination.
type JobFilter struct {
	Keyword         string   `json:"keyword,omitempty"`
	CategoryIDs     []string `json:"category_ids,omitempty"`
	SalaryMin       float64  `json:"salary_min,omitempty"`
	SalaryMax       float64  `json:"salary_max,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
}

// IsZero reports whether no filter criteria are set.
func (f JobFilter) IsZero() bool {
	return f.Keyword == "" && len(f.CategoryIDs) == 0 &&
		f.SalaryMin == 0 && f.SalaryMax == 0 && f.ExperienceLevel == ""
}

type Category struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type JobOwner struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

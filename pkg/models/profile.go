package models

import "strings"

// UserProfile is the derived, ephemeral record assembled from a user's
// non-deleted skills and work experiences. It has no independent identity and
// is rebuilt on demand.
type UserProfile struct {
	UserID      string             `json:"user_id"`
	Skills      []string           `json:"skills"`
	JobTitles   []string           `json:"job_titles"`
	Experience  string             `json:"experience"`
	Education   string             `json:"education,omitempty"`
	SkillYears  map[string]float64 `json:"skill_years,omitempty"`
	GeneratedAt int64              `json:"generated_at"`
}

// IsEmpty reports whether the profile carries no usable signal. Callers must
// treat an empty profile as "insufficient signal", never as a failure.
func (p *UserProfile) IsEmpty() bool {
	return p == nil || (len(p.Skills) == 0 && len(p.JobTitles) == 0 && p.Experience == "")
}

// QueryText renders the profile as the weighted text blob consumed by the
// content and semantic indices. Skills carry triple weight and prior job
// titles double weight to bias toward role-identity terms.
func (p *UserProfile) QueryText() string {
	if p.IsEmpty() {
		return ""
	}
	skills := strings.Join(p.Skills, " ")
	titles := strings.Join(p.JobTitles, " ")

	var b strings.Builder
	for i := 0; i < 3; i++ {
		b.WriteString(skills)
		b.WriteByte(' ')
	}
	b.WriteString(p.Experience)
	b.WriteByte(' ')
	b.WriteString(p.Education)
	b.WriteByte(' ')
	for i := 0; i < 2; i++ {
		b.WriteString(titles)
		b.WriteByte(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// UserSkill and UserExperience mirror the profile source records in the
// document store. Soft-deleted rows are excluded at the store layer.
type UserSkill struct {
	UserID string  `json:"user_id" db:"user_id"`
	Name   string  `json:"name" db:"name"`
	Years  float64 `json:"years" db:"years"`
}

type UserExperience struct {
	UserID      string `json:"user_id" db:"user_id"`
	JobTitle    string `json:"job_title" db:"job_title"`
	Description string `json:"description" db:"description"`
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/careerlink/jobrec/internal/config"
	"github.com/careerlink/jobrec/pkg/models"
)

// ProfileBuilder assembles the derived user profile consumed by the content
// and semantic indices. Profiles are rebuilt on demand and cached briefly;
// an empty profile is a valid value, not an error.
type ProfileBuilder struct {
	store  *Store
	redis  *redis.Client
	config *config.Config
	logger *logrus.Logger
}

func NewProfileBuilder(store *Store, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) *ProfileBuilder {
	return &ProfileBuilder{store: store, redis: redisClient, config: cfg, logger: logger}
}

func (p *ProfileBuilder) Build(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}

	cacheKey := fmt.Sprintf("profile:%s", userID)
	if p.redis != nil {
		if cached, err := p.redis.Get(ctx, cacheKey).Result(); err == nil {
			var profile models.UserProfile
			if err := json.Unmarshal([]byte(cached), &profile); err == nil {
				return &profile, nil
			}
		}
	}

	skills, err := p.store.SkillsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	experiences, err := p.store.ExperiencesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &models.UserProfile{
		UserID:      userID,
		SkillYears:  make(map[string]float64, len(skills)),
		GeneratedAt: time.Now().Unix(),
	}
	for _, sk := range skills {
		profile.Skills = append(profile.Skills, sk.Name)
		profile.SkillYears[sk.Name] = sk.Years
	}
	var expText []string
	for _, exp := range experiences {
		if exp.JobTitle != "" {
			profile.JobTitles = append(profile.JobTitles, exp.JobTitle)
		}
		if exp.Description != "" {
			expText = append(expText, exp.Description)
		}
	}
	profile.Experience = joinNonEmpty(expText)

	if p.redis != nil && !profile.IsEmpty() {
		if data, err := json.Marshal(profile); err == nil {
			if err := p.redis.Set(ctx, cacheKey, data, p.config.Recommendation.Caching.ProfileTTL).Err(); err != nil {
				p.logger.WithError(err).Debug("Failed to cache profile")
			}
		}
	}

	return profile, nil
}

// Invalidate drops the cached profile, used when profile source data changes.
func (p *ProfileBuilder) Invalidate(ctx context.Context, userID string) {
	if p.redis == nil {
		return
	}
	if err := p.redis.Del(ctx, fmt.Sprintf("profile:%s", userID)).Err(); err != nil {
		p.logger.WithError(err).WithField("user_id", userID).Debug("Failed to invalidate profile cache")
	}
}

func joinNonEmpty(parts []string) string {
	out := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += part
	}
	return out
}

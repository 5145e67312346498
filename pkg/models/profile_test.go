package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserProfile_IsEmpty(t *testing.T) {
	var nilProfile *UserProfile
	assert.True(t, nilProfile.IsEmpty())
	assert.True(t, (&UserProfile{UserID: "u1"}).IsEmpty())
	assert.False(t, (&UserProfile{Skills: []string{"go"}}).IsEmpty())
	assert.False(t, (&UserProfile{JobTitles: []string{"engineer"}}).IsEmpty())
	assert.False(t, (&UserProfile{Experience: "built things"}).IsEmpty())
}

func TestUserProfile_QueryText(t *testing.T) {
	t.Run("skills repeat three times, titles twice", func(t *testing.T) {
		profile := &UserProfile{
			Skills:     []string{"golang"},
			JobTitles:  []string{"backend"},
			Experience: "microservices",
			Education:  "computer science",
		}
		text := profile.QueryText()
		assert.Equal(t, 3, strings.Count(text, "golang"))
		assert.Equal(t, 2, strings.Count(text, "backend"))
		assert.Equal(t, 1, strings.Count(text, "microservices"))
		assert.Contains(t, text, "computer science")
	})

	t.Run("whitespace is normalized", func(t *testing.T) {
		profile := &UserProfile{Skills: []string{"go"}}
		text := profile.QueryText()
		assert.NotContains(t, text, "  ")
		assert.Equal(t, text, strings.TrimSpace(text))
	})

	t.Run("empty profile renders empty text", func(t *testing.T) {
		assert.Equal(t, "", (&UserProfile{UserID: "u1"}).QueryText())
	})
}

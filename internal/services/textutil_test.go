package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "ascii passthrough", input: "Backend Developer", expected: "backend developer"},
		{name: "vietnamese diacritics", input: "Kỹ sư phần mềm", expected: "ky su phan mem"},
		{name: "d with stroke", input: "Đà Nẵng", expected: "da nang"},
		{name: "mixed", input: "Lập trình viên Java", expected: "lap trinh vien java"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fold(tt.input))
		})
	}
}

func TestTokenize(t *testing.T) {
	t.Run("drops stopwords and short fragments", func(t *testing.T) {
		tokens := Tokenize("The engineer is in a team of 5, C developers")
		assert.Equal(t, []string{"engineer", "team", "developers"}, tokens)
	})

	t.Run("vietnamese stopwords drop after folding", func(t *testing.T) {
		tokens := Tokenize("Làm việc với các đồng nghiệp")
		assert.NotContains(t, tokens, "voi")
		assert.NotContains(t, tokens, "cac")
		assert.Contains(t, tokens, "lam")
		assert.Contains(t, tokens, "dong")
	})

	t.Run("punctuation splits tokens", func(t *testing.T) {
		tokens := Tokenize("Go/Python, REST-APIs")
		assert.Equal(t, []string{"go", "python", "rest", "apis"}, tokens)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Tokenize(""))
	})
}

func TestNGrams(t *testing.T) {
	t.Run("unigrams plus bigrams in order", func(t *testing.T) {
		grams := NGrams([]string{"senior", "go", "engineer"})
		assert.Equal(t, []string{"senior", "go", "engineer", "senior go", "go engineer"}, grams)
	})

	t.Run("single token has no bigrams", func(t *testing.T) {
		assert.Equal(t, []string{"go"}, NGrams([]string{"go"}))
	})

	t.Run("nil in nil out", func(t *testing.T) {
		assert.Nil(t, NGrams(nil))
	})
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		size     int
		total    int
		expected PageInfo
	}{
		{
			name: "first of several pages",
			page: 0, size: 10, total: 25,
			expected: PageInfo{Number: 0, Size: 10, TotalElements: 25, TotalPages: 3, HasNext: true, HasPrevious: false},
		},
		{
			name: "middle page",
			page: 1, size: 10, total: 25,
			expected: PageInfo{Number: 1, Size: 10, TotalElements: 25, TotalPages: 3, HasNext: true, HasPrevious: true},
		},
		{
			name: "exact multiple of size",
			page: 1, size: 10, total: 20,
			expected: PageInfo{Number: 1, Size: 10, TotalElements: 20, TotalPages: 2, HasNext: false, HasPrevious: true},
		},
		{
			name: "empty result keeps one page",
			page: 0, size: 10, total: 0,
			expected: PageInfo{Number: 0, Size: 10, TotalElements: 0, TotalPages: 1, HasNext: false, HasPrevious: false},
		},
		{
			name: "negative page clamps to zero",
			page: -3, size: 10, total: 25,
			expected: PageInfo{Number: 0, Size: 10, TotalElements: 25, TotalPages: 3, HasNext: true, HasPrevious: false},
		},
		{
			name: "out of range page clamps to last",
			page: 99, size: 10, total: 25,
			expected: PageInfo{Number: 2, Size: 10, TotalElements: 25, TotalPages: 3, HasNext: false, HasPrevious: true},
		},
		{
			name: "zero size clamps to one",
			page: 0, size: 0, total: 3,
			expected: PageInfo{Number: 0, Size: 1, TotalElements: 3, TotalPages: 3, HasNext: true, HasPrevious: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewPageInfo(tt.page, tt.size, tt.total))
		})
	}
}

func TestJobFilter_IsZero(t *testing.T) {
	assert.True(t, JobFilter{}.IsZero())
	assert.False(t, JobFilter{Keyword: "go"}.IsZero())
	assert.False(t, JobFilter{CategoryIDs: []string{"c1"}}.IsZero())
	assert.False(t, JobFilter{SalaryMin: 100}.IsZero())
	assert.False(t, JobFilter{ExperienceLevel: "senior"}.IsZero())
}

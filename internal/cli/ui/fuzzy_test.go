package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindSimilar(t *testing.T) {
	candidates := []string{"Item", "Tag", "pos.order", "pos.order.line", "Partner"}

	tests := []struct {
		name   string
		target string
		opts   *FuzzyMatchOptions
		want   []string
	}{
		{"transposition", "itme", nil, []string{"Item"}},
		{"dotted model", "pos.ordr", nil, []string{"pos.order"}},
		{"plural", "Tags", nil, []string{"Tag"}},
		{"nothing close", "warehouse", nil, []string{}},
		{"case sensitive", "tag", &FuzzyMatchOptions{CaseSensitive: true, MaxDistance: 1}, []string{"Tag"}},
		{"limited", "Ta", &FuzzyMatchOptions{MaxDistance: 4, MaxSuggestions: 1}, []string{"Tag"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindSimilar(tt.target, candidates, tt.opts))
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, LevenshteinDistance("abc", "abc"))
	assert.Equal(t, 3, LevenshteinDistance("", "abc"))
	assert.Equal(t, 3, LevenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 3, LevenshteinDistance("saturday", "sunday"))
	assert.Equal(t, 1, LevenshteinDistance("café", "cafe"))
}

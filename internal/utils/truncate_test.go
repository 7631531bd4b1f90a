package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncationPolicy_ShortOutputUnchanged(t *testing.T) {
	p := NewTruncationPolicy(100, 100)
	output := "short output"
	assert.Equal(t, output, p.Apply(output))
}

func TestTruncationPolicy_CharLimitWins(t *testing.T) {
	p := TruncationPolicy{MaxChars: 4000, MaxTokens: 1000}
	output := strings.Repeat("x", 5000)

	result := p.Apply(output)
	assert.True(t, strings.HasPrefix(result, strings.Repeat("x", 4000)))
	assert.Contains(t, result, "truncated 1000 characters")
	assert.Contains(t, result, "~250 tokens")
	assert.LessOrEqual(t, len(result), 4000+len(TruncationNotice(1000)))
}

func TestTruncationPolicy_TokenLimitWins(t *testing.T) {
	p := TruncationPolicy{MaxChars: 4000, MaxTokens: 500}
	output := strings.Repeat("y", 3000)

	result := p.Apply(output)
	assert.Equal(t, strings.Repeat("y", 2000)+TruncationNotice(1000), result)
}

func TestTruncationPolicy_Invariant(t *testing.T) {
	tests := []struct {
		length    int
		maxChars  int
		maxTokens int
	}{
		{0, 10, 10},
		{10, 10, 10},
		{11, 10, 10},
		{100, 1000, 5},
		{997, 13, 1000},
		{5000, 4000, 1000},
	}

	for _, tt := range tests {
		p := TruncationPolicy{MaxChars: tt.maxChars, MaxTokens: tt.maxTokens}
		output := strings.Repeat("z", tt.length)
		result := p.Apply(output)

		bound := tt.length
		if tt.maxChars < bound {
			bound = tt.maxChars
		}
		if tt.maxTokens*4 < bound {
			bound = tt.maxTokens * 4
		}

		if tt.length <= p.Limit() {
			assert.Equal(t, output, result)
			continue
		}
		assert.LessOrEqual(t, len(result), bound+len(TruncationNotice(tt.length-bound)))
	}
}

func TestTruncationPolicy_MultiByteSafe(t *testing.T) {
	p := TruncationPolicy{MaxChars: 3, MaxTokens: 100}
	result := p.Apply("héllo wörld")

	assert.True(t, utf8.ValidString(result))
	assert.True(t, strings.HasPrefix(result, "hél"))
	assert.Contains(t, result, "truncated 8 characters")
}

func TestNewTruncationPolicy_Defaults(t *testing.T) {
	p := NewTruncationPolicy(0, -1)
	assert.Equal(t, DefaultMaxOutputChars, p.MaxChars)
	assert.Equal(t, DefaultMaxOutputTokens, p.MaxTokens)
	assert.Equal(t, DefaultTruncationPolicy(), p)
}

func TestEstimateTokensForChars(t *testing.T) {
	assert.Equal(t, 0, EstimateTokensForChars(0))
	assert.Equal(t, 1, EstimateTokensForChars(1))
	assert.Equal(t, 1, EstimateTokensForChars(4))
	assert.Equal(t, 2, EstimateTokensForChars(5))
}

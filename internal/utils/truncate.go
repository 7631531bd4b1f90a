package utils

import (
	"fmt"
	"unicode/utf8"
)

const (
	// DefaultMaxOutputChars is the default character budget for a tool
	// result placed back into a request
	DefaultMaxOutputChars = 30000

	// DefaultMaxOutputTokens is the default estimated-token budget for a
	// tool result
	DefaultMaxOutputTokens = 8000

	// charsPerToken is the ratio used by the token estimate
	charsPerToken = 4
)

// TruncationPolicy bounds tool output by characters and by estimated tokens.
// The tighter of the two limits wins.
type TruncationPolicy struct {
	MaxChars  int
	MaxTokens int
}

// DefaultTruncationPolicy returns the policy built from the default limits
func DefaultTruncationPolicy() TruncationPolicy {
	return TruncationPolicy{MaxChars: DefaultMaxOutputChars, MaxTokens: DefaultMaxOutputTokens}
}

// NewTruncationPolicy builds a policy; non-positive limits take the defaults
func NewTruncationPolicy(maxChars, maxTokens int) TruncationPolicy {
	p := DefaultTruncationPolicy()
	if maxChars > 0 {
		p.MaxChars = maxChars
	}
	if maxTokens > 0 {
		p.MaxTokens = maxTokens
	}
	return p
}

// Limit returns the allowed length in characters
func (p TruncationPolicy) Limit() int {
	byTokens := p.MaxTokens * charsPerToken
	if p.MaxChars < byTokens {
		return p.MaxChars
	}
	return byTokens
}

// Apply returns output unchanged when it fits, otherwise the allowed prefix
// followed by an annotation naming how much was removed.
func (p TruncationPolicy) Apply(output string) string {
	limit := p.Limit()
	total := utf8.RuneCountInString(output)
	if total <= limit {
		return output
	}

	kept := output
	n := 0
	for i := range output {
		if n == limit {
			kept = output[:i]
			break
		}
		n++
	}

	return kept + TruncationNotice(total-limit)
}

// TruncationNotice is the annotation appended to truncated output
func TruncationNotice(removedChars int) string {
	return fmt.Sprintf("\n\n[output truncated: truncated %d characters (~%d tokens)]",
		removedChars, EstimateTokensForChars(removedChars))
}

// EstimateTokensForChars converts a character count into estimated tokens,
// rounding up
func EstimateTokensForChars(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + charsPerToken - 1) / charsPerToken
}

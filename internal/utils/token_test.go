package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("hello"))
	assert.Equal(t, 1, EstimateTokens("日本"))
}

func TestTokenCounter_HeuristicFallback(t *testing.T) {
	tc, err := NewTokenCounter("")
	require.NoError(t, err)
	assert.Equal(t, EstimateTokens("hello world"), tc.CountTokens("hello world"))

	var nilCounter *TokenCounter
	assert.Equal(t, 2, nilCounter.CountTokens("hello"))
}

func TestTokenCounter_CountMessagesTokens(t *testing.T) {
	var tc *TokenCounter

	assert.Equal(t, 0, tc.CountMessagesTokens(nil))

	messages := []types.ChatMessage{
		types.NewTextMessage(types.RoleUser, "Hello"),         // user=1, Hello=2, +3
		types.NewTextMessage(types.RoleAssistant, "Hi there"), // assistant=3, "Hi there"=2, +3
	}
	assert.Equal(t, 6+8+3, tc.CountMessagesTokens(messages))
}

func TestTokenCounter_PartsAndToolCalls(t *testing.T) {
	var tc *TokenCounter

	withImage := types.ChatMessage{
		Role:  types.RoleUser,
		Parts: []types.ContentPart{types.TextPart{Text: "abcd"}, types.InlineDataPart{MIMEType: "image/png", Data: []byte{1}}},
	}
	assert.Equal(t, 1+1+attachmentTokens+3, tc.CountOneMessageTokens(withImage))

	withCall := types.ChatMessage{
		Role:      types.RoleAssistant,
		ToolCalls: []types.ToolCall{{ID: "1", Name: "f", Arguments: map[string]any{}}},
	}
	// assistant=3, f=1, {}=1, +3
	assert.Equal(t, 8, tc.CountOneMessageTokens(withCall))
}

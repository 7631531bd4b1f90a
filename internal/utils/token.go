package utils

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

const (
	// messageOverheadTokens approximates per-message framing tokens
	messageOverheadTokens = 3

	// conversationOverheadTokens approximates reply priming tokens
	conversationOverheadTokens = 3

	// attachmentTokens is the flat estimate charged for a non-text part
	attachmentTokens = 85
)

// TokenCounter estimates token counts. A nil *TokenCounter, or one without
// an encoder, falls back to the characters/4 heuristic. Either way the
// result is an estimate and need not match vendor-side tokenization.
type TokenCounter struct {
	encoder *tiktoken.Tiktoken
}

// NewTokenCounter creates a counter backed by the named tiktoken encoding
// (e.g. "cl100k_base"). An empty name yields a heuristic-only counter.
func NewTokenCounter(encoding string) (*TokenCounter, error) {
	if encoding == "" {
		return &TokenCounter{}, nil
	}

	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}

	return &TokenCounter{
		encoder: encoder,
	}, nil
}

// CountTokens counts tokens in a text string
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.encoder == nil {
		return EstimateTokens(text)
	}

	tokens := tc.encoder.Encode(text, nil, nil)
	return len(tokens)
}

// CountMessagesTokens estimates the prompt size of a conversation
func (tc *TokenCounter) CountMessagesTokens(messages []types.ChatMessage) int {
	if len(messages) == 0 {
		return 0
	}

	totalTokens := 0
	for _, message := range messages {
		totalTokens += tc.CountOneMessageTokens(message)
	}

	totalTokens += conversationOverheadTokens
	return totalTokens
}

// CountOneMessageTokens estimates the size of a single message
func (tc *TokenCounter) CountOneMessageTokens(message types.ChatMessage) int {
	totalTokens := tc.CountTokens(string(message.Role))

	if message.HasParts() {
		for _, part := range message.Parts {
			if tp, ok := part.(types.TextPart); ok {
				totalTokens += tc.CountTokens(tp.Text)
			} else {
				totalTokens += attachmentTokens
			}
		}
	} else {
		totalTokens += tc.CountTokens(message.Text)
	}

	for _, call := range message.ToolCalls {
		totalTokens += tc.CountTokens(call.Name)
		totalTokens += tc.CountJSONTokens(call.Arguments)
	}

	totalTokens += messageOverheadTokens
	return totalTokens
}

// CountJSONTokens counts tokens in a JSON object
func (tc *TokenCounter) CountJSONTokens(data interface{}) int {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return 0
	}

	return tc.CountTokens(string(jsonBytes))
}

// EstimateTokens provides a simple token estimation without tiktoken:
// roughly 4 characters per token, rounded up
func EstimateTokens(text string) int {
	return EstimateTokensForChars(utf8.RuneCountInString(text))
}

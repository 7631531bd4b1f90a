package types

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks caller-side request mistakes detected before any
// network call is made.
var ErrInvalidRequest = errors.New("invalid chat request")

// ToolDefinition declares a function the model may call. Parameters is a
// JSON-schema-like object passed through to the vendor untouched.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ChatRequest is the vendor-neutral chat completion request
type ChatRequest struct {
	Model       string           `json:"model,omitempty"`
	Messages    []ChatMessage    `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	TopP        *float64         `json:"top_p,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

// Validate checks request-level and per-message invariants
func (r *ChatRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: no messages", ErrInvalidRequest)
	}
	for i, msg := range r.Messages {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	for i, tool := range r.Tools {
		if tool.Name == "" {
			return fmt.Errorf("%w: tool %d has no name", ErrInvalidRequest, i)
		}
	}
	return nil
}

// ModelOrDefault returns the requested model, falling back to def
func (r *ChatRequest) ModelOrDefault(def string) string {
	if r.Model != "" {
		return r.Model
	}
	return def
}

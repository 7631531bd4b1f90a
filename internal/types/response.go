package types

// ChatResponse is one finalized assistant turn
type ChatResponse struct {
	Text         *string    `json:"text,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// TextOrEmpty returns the response text or "" when there is none
func (r *ChatResponse) TextOrEmpty() string {
	if r == nil || r.Text == nil {
		return ""
	}
	return *r.Text
}

// IsEmpty reports whether the response has neither text nor tool calls
func (r *ChatResponse) IsEmpty() bool {
	return r.TextOrEmpty() == "" && len(r.ToolCalls) == 0
}

// Usage holds token counts reported by the vendor
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelInfo describes one model offered by a vendor
type ModelInfo struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	ContextLength *int   `json:"context_length,omitempty"`
}

// ToolCallFragment is one streamed piece of a tool call. Index is the
// vendor's authoritative position of the call within the turn.
type ToolCallFragment struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// StreamDelta is the decoded content of one stream frame
type StreamDelta struct {
	Text         string
	ToolCalls    []ToolCallFragment
	FinishReason *string
	Usage        *Usage

	// Done is set for the out-of-band end-of-stream sentinel
	Done bool
}

// Terminal reports whether the delta ends the logical stream
func (d StreamDelta) Terminal() bool {
	return d.Done || d.FinishReason != nil
}

// DeltaFunc observes each text fragment as it streams. Returning an error
// aborts the stream.
type DeltaFunc func(text string) error

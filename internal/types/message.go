package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ContentPart is one segment of multimodal message content. The set of
// implementations is closed: TextPart, InlineDataPart and FileRefPart.
type ContentPart interface {
	isContentPart()
}

// TextPart is a plain text segment
type TextPart struct {
	Text string
}

// InlineDataPart carries binary content inline, e.g. an image
type InlineDataPart struct {
	MIMEType string
	Data     []byte
}

// FileRefPart points at content stored elsewhere
type FileRefPart struct {
	MIMEType string
	URI      string
}

func (TextPart) isContentPart()       {}
func (InlineDataPart) isContentPart() {}
func (FileRefPart) isContentPart()    {}

// IsImage reports whether the inline payload is an image
func (p InlineDataPart) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(p.MIMEType), "image/")
}

// ToolCall is a model-issued request to invoke a function
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ChatMessage is one vendor-neutral conversational turn.
//
// Content is either plain text (Text) or an ordered list of parts (Parts).
// A non-nil Parts wins over Text, and an empty non-nil Parts is sent as a
// placeholder text part.
type ChatMessage struct {
	Role       Role
	Text       string
	Parts      []ContentPart
	ToolCalls  []ToolCall
	ToolCallID string
}

// NewTextMessage builds a plain text message
func NewTextMessage(role Role, text string) ChatMessage {
	return ChatMessage{Role: role, Text: text}
}

// HasParts reports whether the message uses the multimodal form
func (m ChatMessage) HasParts() bool {
	return m.Parts != nil
}

// PlainText returns the textual content of the message, joining text parts
// when the multimodal form is used.
func (m ChatMessage) PlainText() string {
	if !m.HasParts() {
		return m.Text
	}
	var sb strings.Builder
	for _, part := range m.Parts {
		if tp, ok := part.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// Validate checks the per-role invariants of the message
func (m ChatMessage) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, m.Role)
	}
	if m.Role == RoleTool && m.ToolCallID == "" {
		return fmt.Errorf("%w: tool message without tool_call_id", ErrInvalidRequest)
	}
	if m.Role == RoleAssistant {
		for i, tc := range m.ToolCalls {
			if tc.Name == "" {
				return fmt.Errorf("%w: assistant tool call %d has no name", ErrInvalidRequest, i)
			}
		}
	}
	return nil
}

type wirePart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URI      string `json:"uri,omitempty"`
}

type wireMessage struct {
	Role       Role            `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// MarshalJSON encodes content as a string or as a typed part array
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	var content any = m.Text
	if m.HasParts() {
		parts := make([]wirePart, 0, len(m.Parts))
		for _, part := range m.Parts {
			wp, err := encodePart(part)
			if err != nil {
				return nil, err
			}
			parts = append(parts, wp)
		}
		content = parts
	}

	raw, err := marshalJSONWithoutEscape(content)
	if err != nil {
		return nil, err
	}
	return marshalJSONWithoutEscape(wireMessage{
		Role:       m.Role,
		Content:    raw,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
	})
}

// UnmarshalJSON accepts content as a string, an array of typed parts or null
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var wm wireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		return err
	}

	*m = ChatMessage{
		Role:       wm.Role,
		ToolCalls:  wm.ToolCalls,
		ToolCallID: wm.ToolCallID,
	}

	trimmed := bytes.TrimSpace(wm.Content)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &m.Text)
	}

	var parts []wirePart
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return fmt.Errorf("content must be a string or an array of parts: %w", err)
	}
	m.Parts = make([]ContentPart, 0, len(parts))
	for i, wp := range parts {
		part, err := decodePart(wp)
		if err != nil {
			return fmt.Errorf("content part %d: %w", i, err)
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

func encodePart(part ContentPart) (wirePart, error) {
	switch p := part.(type) {
	case TextPart:
		return wirePart{Type: PartTypeText, Text: p.Text}, nil
	case InlineDataPart:
		return wirePart{Type: PartTypeInlineData, MIMEType: p.MIMEType, Data: p.Data}, nil
	case FileRefPart:
		return wirePart{Type: PartTypeFileRef, MIMEType: p.MIMEType, URI: p.URI}, nil
	default:
		return wirePart{}, fmt.Errorf("unsupported content part %T", part)
	}
}

func decodePart(wp wirePart) (ContentPart, error) {
	switch wp.Type {
	case PartTypeText:
		return TextPart{Text: wp.Text}, nil
	case PartTypeInlineData:
		return InlineDataPart{MIMEType: wp.MIMEType, Data: wp.Data}, nil
	case PartTypeFileRef:
		return FileRefPart{MIMEType: wp.MIMEType, URI: wp.URI}, nil
	default:
		return nil, fmt.Errorf("unknown part type %q", wp.Type)
	}
}

// marshalJSONWithoutEscape marshals JSON without HTML escaping
func marshalJSONWithoutEscape(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	// Remove the trailing newline added by Encode
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

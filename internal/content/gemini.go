package content

import (
	"encoding/base64"

	"github.com/zgsm-ai/llm-bridge/internal/types"
)

// GeminiPart is one element of a Gemini `parts` array. Exactly one field is
// expected to be set.
type GeminiPart struct {
	Text             *string                 `json:"text,omitempty"`
	InlineData       *GeminiBlob             `json:"inlineData,omitempty"`
	FileData         *GeminiFileData         `json:"fileData,omitempty"`
	FunctionCall     *GeminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *GeminiFunctionResponse `json:"functionResponse,omitempty"`
}

// GeminiBlob is base64 inline data
type GeminiBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GeminiFileData references uploaded or remote content
type GeminiFileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

// GeminiFunctionCall is a model-issued call
type GeminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// GeminiFunctionResponse carries a tool result back to the model
type GeminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// GeminiText builds a text part
func GeminiText(text string) GeminiPart {
	return GeminiPart{Text: &text}
}

// ToGemini maps unified parts to Gemini parts
func ToGemini(parts []types.ContentPart) []GeminiPart {
	normalized := Normalize(parts)
	out := make([]GeminiPart, 0, len(normalized))
	for _, part := range normalized {
		switch p := part.(type) {
		case types.TextPart:
			out = append(out, GeminiText(p.Text))
		case types.InlineDataPart:
			out = append(out, GeminiPart{InlineData: &GeminiBlob{
				MIMEType: p.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
		}
	}
	return out
}

// FromGemini maps Gemini content parts back to unified parts. Function call
// and response parts are not content and are skipped, as is inline data
// whose payload is not valid base64.
func FromGemini(parts []GeminiPart) []types.ContentPart {
	out := make([]types.ContentPart, 0, len(parts))
	for _, part := range parts {
		switch {
		case part.Text != nil:
			out = append(out, types.TextPart{Text: *part.Text})
		case part.InlineData != nil:
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				continue
			}
			out = append(out, types.InlineDataPart{MIMEType: part.InlineData.MIMEType, Data: data})
		case part.FileData != nil:
			out = append(out, types.FileRefPart{MIMEType: part.FileData.MIMEType, URI: part.FileData.FileURI})
		}
	}
	return out
}

package content

import "github.com/zgsm-ai/llm-bridge/internal/types"

// OpenAI content part discriminators
const (
	OpenAIPartText     = "text"
	OpenAIPartImageURL = "image_url"
)

// OpenAIPart is one element of an OpenAI content array
type OpenAIPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *OpenAIImageURL `json:"image_url,omitempty"`
}

// OpenAIImageURL holds an http(s) URL or a data URI
type OpenAIImageURL struct {
	URL string `json:"url"`
}

// ToOpenAI maps unified parts to an OpenAI content array
func ToOpenAI(parts []types.ContentPart) []OpenAIPart {
	normalized := Normalize(parts)
	out := make([]OpenAIPart, 0, len(normalized))
	for _, part := range normalized {
		switch p := part.(type) {
		case types.TextPart:
			out = append(out, OpenAIPart{Type: OpenAIPartText, Text: p.Text})
		case types.InlineDataPart:
			out = append(out, OpenAIPart{
				Type:     OpenAIPartImageURL,
				ImageURL: &OpenAIImageURL{URL: DataURI(p.MIMEType, p.Data)},
			})
		}
	}
	return out
}

// FromOpenAI maps an OpenAI content array back to unified parts. Remote
// image URLs become file references; unknown part types are skipped.
func FromOpenAI(parts []OpenAIPart) []types.ContentPart {
	out := make([]types.ContentPart, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case OpenAIPartText:
			out = append(out, types.TextPart{Text: part.Text})
		case OpenAIPartImageURL:
			if part.ImageURL == nil {
				continue
			}
			if mimeType, data, ok := ParseDataURI(part.ImageURL.URL); ok {
				out = append(out, types.InlineDataPart{MIMEType: mimeType, Data: data})
			} else {
				out = append(out, types.FileRefPart{MIMEType: "image/*", URI: part.ImageURL.URL})
			}
		}
	}
	return out
}

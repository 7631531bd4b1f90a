// Package content translates unified message parts to and from the
// multimodal wire shapes of each vendor dialect.
package content

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/zgsm-ai/llm-bridge/internal/types"
)

const dataURIPrefix = "data:"

// DescribeAttachment is the text that replaces a non-image inline part
func DescribeAttachment(p types.InlineDataPart) string {
	return fmt.Sprintf("[attachment: %s, %d bytes]", mimeOrDefault(p.MIMEType), len(p.Data))
}

// DescribeFileRef is the text that replaces a file reference
func DescribeFileRef(p types.FileRefPart) string {
	return fmt.Sprintf("[file: %s at %s]", mimeOrDefault(p.MIMEType), p.URI)
}

// Text flattens parts to text, describing non-text parts in place
func Text(parts []types.ContentPart) string {
	var sb strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case types.TextPart:
			sb.WriteString(p.Text)
		case types.InlineDataPart:
			sb.WriteString(DescribeAttachment(p))
		case types.FileRefPart:
			sb.WriteString(DescribeFileRef(p))
		}
	}
	return sb.String()
}

// DataURI builds a self-describing data URI: data:<mime>;base64,<payload>
func DataURI(mimeType string, data []byte) string {
	return dataURIPrefix + mimeOrDefault(mimeType) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI decodes a base64 data URI. ok is false for any other URL,
// including non-base64 data URIs.
func ParseDataURI(uri string) (mimeType string, data []byte, ok bool) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return "", nil, false
	}
	meta, payload, found := strings.Cut(uri[len(dataURIPrefix):], ",")
	if !found {
		return "", nil, false
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return mimeOrDefault(mimeType), data, true
}

// Normalize returns the parts a vendor should receive: image inline data is
// kept, other inline data and file references become descriptive text parts,
// and an empty list becomes a single placeholder text part.
func Normalize(parts []types.ContentPart) []types.ContentPart {
	if len(parts) == 0 {
		return []types.ContentPart{types.TextPart{Text: types.EmptyContentPlaceholder}}
	}

	out := make([]types.ContentPart, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case types.TextPart:
			out = append(out, p)
		case types.InlineDataPart:
			if p.IsImage() {
				out = append(out, p)
			} else {
				out = append(out, types.TextPart{Text: DescribeAttachment(p)})
			}
		case types.FileRefPart:
			out = append(out, types.TextPart{Text: DescribeFileRef(p)})
		}
	}
	return out
}

func mimeOrDefault(mimeType string) string {
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}

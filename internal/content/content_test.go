package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

func TestDataURIRoundTrip(t *testing.T) {
	uri := DataURI("image/png", []byte("abc"))
	assert.Equal(t, "data:image/png;base64,YWJj", uri)

	mimeType, data, ok := ParseDataURI(uri)
	require.True(t, ok)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte("abc"), data)
}

func TestParseDataURI_Rejects(t *testing.T) {
	for _, uri := range []string{
		"https://example.com/cat.png",
		"data:image/png,plain",
		"data:image/png;base64",
		"data:image/png;base64,!!!",
	} {
		_, _, ok := ParseDataURI(uri)
		assert.False(t, ok, uri)
	}
}

func TestNormalize(t *testing.T) {
	parts := []types.ContentPart{
		types.TextPart{Text: "look"},
		types.InlineDataPart{MIMEType: "image/jpeg", Data: []byte{1, 2}},
		types.InlineDataPart{MIMEType: "application/pdf", Data: make([]byte, 2048)},
		types.FileRefPart{MIMEType: "text/csv", URI: "gs://bucket/a.csv"},
	}

	got := Normalize(parts)
	require.Len(t, got, 4)
	assert.Equal(t, types.TextPart{Text: "look"}, got[0])
	assert.Equal(t, parts[1], got[1])
	assert.Equal(t, types.TextPart{Text: "[attachment: application/pdf, 2048 bytes]"}, got[2])
	assert.Equal(t, types.TextPart{Text: "[file: text/csv at gs://bucket/a.csv]"}, got[3])
}

func TestNormalize_EmptyGetsPlaceholder(t *testing.T) {
	assert.Equal(t, []types.ContentPart{types.TextPart{Text: types.EmptyContentPlaceholder}}, Normalize(nil))
	assert.Equal(t, []types.ContentPart{types.TextPart{Text: types.EmptyContentPlaceholder}}, Normalize([]types.ContentPart{}))
}

func TestToOpenAI(t *testing.T) {
	parts := ToOpenAI([]types.ContentPart{
		types.TextPart{Text: "what is this?"},
		types.InlineDataPart{MIMEType: "image/png", Data: []byte("abc")},
		types.FileRefPart{MIMEType: "application/zip", URI: "file:///tmp/x.zip"},
	})

	raw, err := json.Marshal(parts)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"text","text":"what is this?"},
		{"type":"image_url","image_url":{"url":"data:image/png;base64,YWJj"}},
		{"type":"text","text":"[file: application/zip at file:///tmp/x.zip]"}
	]`, string(raw))
}

func TestFromOpenAI(t *testing.T) {
	var wire []OpenAIPart
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"text","text":"hi"},
		{"type":"image_url","image_url":{"url":"data:image/gif;base64,YWJj"}},
		{"type":"image_url","image_url":{"url":"https://example.com/cat.png"}},
		{"type":"input_audio"}
	]`), &wire))

	got := FromOpenAI(wire)
	assert.Equal(t, []types.ContentPart{
		types.TextPart{Text: "hi"},
		types.InlineDataPart{MIMEType: "image/gif", Data: []byte("abc")},
		types.FileRefPart{MIMEType: "image/*", URI: "https://example.com/cat.png"},
	}, got)
}

func TestToGemini(t *testing.T) {
	parts := ToGemini([]types.ContentPart{
		types.TextPart{Text: "hello"},
		types.InlineDataPart{MIMEType: "image/webp", Data: []byte("abc")},
		types.InlineDataPart{MIMEType: "audio/wav", Data: []byte("abcd")},
	})

	raw, err := json.Marshal(parts)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"text":"hello"},
		{"inlineData":{"mimeType":"image/webp","data":"YWJj"}},
		{"text":"[attachment: audio/wav, 4 bytes]"}
	]`, string(raw))
}

func TestToGemini_EmptyTextKept(t *testing.T) {
	raw, err := json.Marshal(ToGemini([]types.ContentPart{types.TextPart{Text: ""}}))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"text":""}]`, string(raw))
}

func TestFromGemini(t *testing.T) {
	var wire []GeminiPart
	require.NoError(t, json.Unmarshal([]byte(`[
		{"text":"caption"},
		{"inlineData":{"mimeType":"image/png","data":"YWJj"}},
		{"fileData":{"mimeType":"video/mp4","fileUri":"https://files/v1"}},
		{"functionCall":{"name":"search","args":{"q":"x"}}}
	]`), &wire))

	got := FromGemini(wire)
	assert.Equal(t, []types.ContentPart{
		types.TextPart{Text: "caption"},
		types.InlineDataPart{MIMEType: "image/png", Data: []byte("abc")},
		types.FileRefPart{MIMEType: "video/mp4", URI: "https://files/v1"},
	}, got)
}

func TestText(t *testing.T) {
	got := Text([]types.ContentPart{
		types.TextPart{Text: "see "},
		types.InlineDataPart{MIMEType: "image/png", Data: []byte("png")},
		types.TextPart{Text: " and "},
		types.FileRefPart{MIMEType: "application/pdf", URI: "gs://b/f.pdf"},
	})
	assert.Equal(t, "see [attachment: image/png, 3 bytes] and [file: application/pdf at gs://b/f.pdf]", got)
	assert.Empty(t, Text(nil))
}

package gemini

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/zgsm-ai/llm-bridge/internal/content"
	"github.com/zgsm-ai/llm-bridge/internal/stream"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

var newToolCallID = stream.NewToolCallID

// chunkDecoder decodes streamGenerateContent frames. Gemini sends each
// function call whole and without an index, so calls are numbered in
// arrival order. One decoder serves one stream.
type chunkDecoder struct {
	endpoint  string
	nextIndex int
}

func newChunkDecoder(endpoint string) *chunkDecoder {
	return &chunkDecoder{endpoint: endpoint}
}

func (d *chunkDecoder) decode(data []byte) (types.StreamDelta, bool, error) {
	if !gjson.ValidBytes(data) {
		return types.StreamDelta{}, false, types.NewMalformedResponseError(d.endpoint, "invalid stream frame", nil)
	}
	root := gjson.ParseBytes(data)

	if vendorErr := root.Get("error"); vendorErr.Exists() {
		msg := vendorErr.Get("message").String()
		le := types.NewMalformedResponseError(d.endpoint, "vendor reported stream error: "+msg, nil)
		le.Tip = types.ClassifyTip(int(vendorErr.Get("code").Int()), msg)
		return types.StreamDelta{}, false, le
	}

	delta := types.StreamDelta{Usage: parseUsage(root)}
	candidate := root.Get("candidates.0")
	if !candidate.Exists() {
		if root.Get("promptFeedback.blockReason").Exists() {
			reason := types.FinishReasonContentFilter
			delta.FinishReason = &reason
			return delta, false, nil
		}
		return delta, delta.Usage == nil, nil
	}

	parts, err := decodeParts(candidate)
	if err != nil {
		return types.StreamDelta{}, false, types.NewMalformedResponseError(d.endpoint, "invalid candidate parts", err)
	}

	for _, part := range parts {
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil || part.FunctionCall.Args == nil {
				args = []byte("{}")
			}
			delta.ToolCalls = append(delta.ToolCalls, types.ToolCallFragment{
				Index:     d.nextIndex,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
			d.nextIndex++
		}
	}
	delta.Text = content.Text(content.FromGemini(parts))

	if reason := candidate.Get("finishReason").String(); reason != "" {
		normalized := normalizeFinishReason(reason, d.nextIndex > 0)
		delta.FinishReason = &normalized
	}
	return delta, false, nil
}

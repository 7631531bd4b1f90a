package openai

import (
	"encoding/json"

	"github.com/zgsm-ai/llm-bridge/internal/stream"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

// decodeChunk decodes one chat.completion.chunk payload
func decodeChunk(endpoint string) stream.DecodeFunc {
	return func(data []byte) (types.StreamDelta, bool, error) {
		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return types.StreamDelta{}, false, err
		}
		if chunk.Error != nil {
			le := types.NewMalformedResponseError(endpoint, "vendor reported stream error: "+chunk.Error.Message, nil)
			le.Tip = types.ClassifyTip(0, chunk.Error.Message)
			return types.StreamDelta{}, false, le
		}

		delta := types.StreamDelta{Usage: chunk.Usage}
		if len(chunk.Choices) == 0 {
			return delta, chunk.Usage == nil, nil
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != nil {
			delta.Text = *choice.Delta.Content
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			reason := normalizeFinishReason(*choice.FinishReason)
			delta.FinishReason = &reason
		}

		for i, call := range choice.Delta.ToolCalls {
			index := i
			if call.Index != nil {
				index = *call.Index
			}
			delta.ToolCalls = append(delta.ToolCalls, types.ToolCallFragment{
				Index:     index,
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
		return delta, false, nil
	}
}

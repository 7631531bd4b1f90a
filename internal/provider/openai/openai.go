// Package openai adapts the OpenAI chat-completions dialect, as spoken by
// OpenAI and by local servers such as LM Studio.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/zgsm-ai/llm-bridge/internal/client"
	"github.com/zgsm-ai/llm-bridge/internal/content"
	"github.com/zgsm-ai/llm-bridge/internal/provider"
	"github.com/zgsm-ai/llm-bridge/internal/stream"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

const (
	// Name is the registry name of this adapter
	Name = "openai"

	// DefaultBaseURL points at a local LM Studio server
	DefaultBaseURL = "http://localhost:1234/v1"
)

// Adapter implements provider.Provider for the OpenAI dialect
type Adapter struct {
	settings provider.Settings
}

// New creates an OpenAI adapter
func New(settings provider.Settings) (provider.Provider, error) {
	settings = settings.WithDefaults(DefaultBaseURL)
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")
	return &Adapter{settings: settings}, nil
}

// Name implements provider.Provider
func (a *Adapter) Name() string {
	return Name
}

// CountTokens implements provider.Provider
func (a *Adapter) CountTokens(messages []types.ChatMessage) int {
	return a.settings.CountTokens(messages)
}

// Chat implements provider.Provider
func (a *Adapter) Chat(ctx context.Context, req *types.ChatRequest, onDelta types.DeltaFunc) (*types.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	model := req.ModelOrDefault(a.settings.Model)
	if model == "" {
		return nil, fmt.Errorf("%w: no model given and no default configured", types.ErrInvalidRequest)
	}

	headers, err := a.headers(ctx)
	if err != nil {
		return nil, err
	}
	body := a.buildRequest(model, req)
	httpReq := client.Request{
		Method:  http.MethodPost,
		URL:     a.settings.BaseURL + "/chat/completions",
		Headers: headers,
		Body:    body,
	}
	endpoint := client.EndpointOf(httpReq.URL)

	if !req.Stream {
		return a.settings.Send(ctx, provider.BlockingCall{
			Provider: Name,
			Model:    model,
			Request:  httpReq,
			Parse: func(raw []byte) (*types.ChatResponse, error) {
				return a.parseResponse(endpoint, raw)
			},
		})
	}

	return a.settings.Stream(ctx, provider.StreamCall{
		Provider: Name,
		Model:    model,
		Request:  httpReq,
		Decode:   decodeChunk(endpoint),
		OnDelta:  onDelta,
	})
}

// ListModels implements provider.Provider
func (a *Adapter) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	headers, err := a.headers(ctx)
	if err != nil {
		return nil, err
	}
	url := a.settings.BaseURL + "/models"
	raw, err := a.settings.HTTPClient.DoJSON(ctx, client.Request{
		Method:  http.MethodGet,
		URL:     url,
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}

	var list modelList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, types.NewMalformedResponseError(client.EndpointOf(url), "invalid model list", err)
	}
	if list.Data == nil {
		return nil, types.NewMalformedResponseError(client.EndpointOf(url), "model list has no data array", nil)
	}

	models := make([]types.ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		info := types.ModelInfo{ID: m.ID, DisplayName: m.ID, ContextLength: m.ContextLength}
		if info.ContextLength == nil {
			info.ContextLength = m.MaxContextLength
		}
		models = append(models, info)
	}
	return models, nil
}

func (a *Adapter) headers(ctx context.Context) (map[string]string, error) {
	key, err := a.settings.ResolveCredential(ctx)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{"Accept": "application/json"}
	if key != "" {
		headers["Authorization"] = "Bearer " + key
	}
	return headers, nil
}

func (a *Adapter) buildRequest(model string, req *types.ChatRequest) chatRequest {
	body := chatRequest{
		Model:       model,
		Messages:    make([]wireMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
	if req.Stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, a.buildMessage(msg))
	}

	for _, tool := range req.Tools {
		params := tool.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		body.Tools = append(body.Tools, wireTool{
			Type: "function",
			Function: wireFunctionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return body
}

func (a *Adapter) buildMessage(msg types.ChatMessage) wireMessage {
	wm := wireMessage{Role: string(msg.Role)}

	switch msg.Role {
	case types.RoleTool:
		wm.ToolCallID = msg.ToolCallID
		wm.Content = a.settings.Truncation.Apply(flattenText(msg))
		return wm

	case types.RoleUser:
		if msg.HasParts() {
			wm.Content = content.ToOpenAI(msg.Parts)
		} else {
			wm.Content = msg.Text
		}
		return wm

	case types.RoleAssistant:
		text := flattenText(msg)
		for _, call := range msg.ToolCalls {
			args, err := json.Marshal(call.Arguments)
			if err != nil || call.Arguments == nil {
				args = []byte("{}")
			}
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   call.ID,
				Type: "function",
				Function: wireFunction{
					Name:      call.Name,
					Arguments: string(args),
				},
			})
		}
		if text != "" || len(wm.ToolCalls) == 0 {
			wm.Content = text
		}
		return wm

	default:
		wm.Content = flattenText(msg)
		return wm
	}
}

// flattenText renders multimodal content as text for roles that only take
// strings
func flattenText(msg types.ChatMessage) string {
	if !msg.HasParts() {
		return msg.Text
	}
	var sb strings.Builder
	for i, part := range content.Normalize(msg.Parts) {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch p := part.(type) {
		case types.TextPart:
			sb.WriteString(p.Text)
		case types.InlineDataPart:
			sb.WriteString(content.DescribeAttachment(p))
		}
	}
	return sb.String()
}

func (a *Adapter) parseResponse(endpoint string, raw []byte) (*types.ChatResponse, error) {
	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, types.NewMalformedResponseError(endpoint, "invalid chat completion response", err)
	}
	if len(cr.Choices) == 0 {
		return nil, types.NewMalformedResponseError(endpoint, "response has no choices", nil)
	}

	choice := cr.Choices[0]
	resp := &types.ChatResponse{Usage: cr.Usage}
	if choice.FinishReason != nil {
		resp.FinishReason = normalizeFinishReason(*choice.FinishReason)
	}

	text, err := messageText(choice.Message.Content)
	if err != nil {
		return nil, types.NewMalformedResponseError(endpoint, "invalid message content", err)
	}
	if text != "" {
		resp.Text = &text
	}

	opts := a.toolOptions(endpoint)
	for i, call := range choice.Message.ToolCalls {
		if call.Function.Name == "" {
			return nil, types.NewMalformedResponseError(endpoint, fmt.Sprintf("tool call %d has no name", i), nil)
		}
		args, err := stream.ToolArguments(call.Function.Name, call.Function.Arguments, opts)
		if err != nil {
			return nil, err
		}
		id := call.ID
		if id == "" {
			id = stream.NewToolCallID()
		}
		resp.ToolCalls = append(resp.ToolCalls, types.ToolCall{ID: id, Name: call.Function.Name, Arguments: args})
	}

	if resp.IsEmpty() && resp.FinishReason == "" {
		return nil, types.NewMalformedResponseError(endpoint, "response has no content and no finish reason", nil)
	}
	return resp, nil
}

func (a *Adapter) toolOptions(endpoint string) stream.Options {
	return stream.Options{
		StrictToolArguments: a.settings.StrictToolArguments,
		Endpoint:            endpoint,
	}
}

// messageText accepts string, null, or a content-part array
func messageText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		err := json.Unmarshal(trimmed, &s)
		return s, err
	}

	var parts []content.OpenAIPart
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, part := range content.FromOpenAI(parts) {
		if tp, ok := part.(types.TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String(), nil
}

func normalizeFinishReason(reason string) string {
	switch reason {
	case "function_call":
		return types.FinishReasonToolCalls
	default:
		return reason
	}
}

// Package gemini adapts the Google Generative Language API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/zgsm-ai/llm-bridge/internal/client"
	"github.com/zgsm-ai/llm-bridge/internal/content"
	"github.com/zgsm-ai/llm-bridge/internal/provider"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

const (
	// Name is the registry name of this adapter
	Name = "gemini"

	// DefaultBaseURL is the public Generative Language endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	apiKeyHeader  = "x-goog-api-key"
	modelsPrefix  = "models/"
	modelPageSize = "1000"

	// maxModelPages bounds model list pagination
	maxModelPages = 20
)

// Adapter implements provider.Provider for Gemini
type Adapter struct {
	settings provider.Settings
}

// New creates a Gemini adapter. The credential must resolve to a non-empty
// key at construction.
func New(settings provider.Settings) (provider.Provider, error) {
	settings = settings.WithDefaults(DefaultBaseURL)
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")

	key, err := settings.ResolveCredential(context.Background())
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("gemini: %w", provider.ErrMissingCredential)
	}
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
	model := strings.TrimPrefix(req.ModelOrDefault(a.settings.Model), modelsPrefix)
	if model == "" {
		return nil, fmt.Errorf("%w: no model given and no default configured", types.ErrInvalidRequest)
	}

	headers, err := a.headers(ctx)
	if err != nil {
		return nil, err
	}

	base := a.settings.BaseURL + "/v1beta/models/" + url.PathEscape(model)
	httpReq := client.Request{
		Method:  http.MethodPost,
		Headers: headers,
		Body:    a.buildRequest(req),
	}

	if !req.Stream {
		httpReq.URL = base + ":generateContent"
		endpoint := client.EndpointOf(httpReq.URL)
		return a.settings.Send(ctx, provider.BlockingCall{
			Provider: Name,
			Model:    model,
			Request:  httpReq,
			Parse: func(raw []byte) (*types.ChatResponse, error) {
				return parseResponse(endpoint, raw)
			},
		})
	}

	httpReq.URL = base + ":streamGenerateContent?alt=sse"
	httpReq.Headers["Accept"] = "text/event-stream"
	return a.settings.Stream(ctx, provider.StreamCall{
		Provider: Name,
		Model:    model,
		Request:  httpReq,
		Decode:   newChunkDecoder(client.EndpointOf(httpReq.URL)).decode,
		OnDelta:  onDelta,
	})
}

// ListModels implements provider.Provider, following page tokens
func (a *Adapter) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	headers, err := a.headers(ctx)
	if err != nil {
		return nil, err
	}

	models := make([]types.ModelInfo, 0)
	pageToken := ""
	for page := 0; page < maxModelPages; page++ {
		query := url.Values{"pageSize": {modelPageSize}}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}
		listURL := a.settings.BaseURL + "/v1beta/models?" + query.Encode()

		raw, err := a.settings.HTTPClient.DoJSON(ctx, client.Request{
			Method:  http.MethodGet,
			URL:     listURL,
			Headers: headers,
		})
		if err != nil {
			return nil, err
		}

		batch, next, err := parseModelList(client.EndpointOf(listURL), raw)
		if err != nil {
			return nil, err
		}
		models = append(models, batch...)
		pageToken = next
		if pageToken == "" {
			return models, nil
		}
	}
	return nil, types.NewMalformedResponseError(client.EndpointOf(a.settings.BaseURL+"/v1beta/models"),
		fmt.Sprintf("model list exceeds %d pages", maxModelPages), nil)
}

func (a *Adapter) headers(ctx context.Context) (map[string]string, error) {
	key, err := a.settings.ResolveCredential(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("gemini: %w", provider.ErrMissingCredential)
	}
	return map[string]string{
		apiKeyHeader: key,
		"Accept":     "application/json",
	}, nil
}

func (a *Adapter) buildRequest(req *types.ChatRequest) generateRequest {
	body := generateRequest{Contents: make([]wireContent, 0, len(req.Messages))}

	// tool results are addressed by function name, not call id
	callNames := make(map[string]string)
	for _, msg := range req.Messages {
		for _, call := range msg.ToolCalls {
			callNames[call.ID] = call.Name
		}
	}

	var system []content.GeminiPart
	for _, msg := range req.Messages {
		switch msg.Role {
		case types.RoleSystem:
			system = append(system, content.GeminiText(msg.PlainText()))

		case types.RoleUser:
			parts := []content.GeminiPart{content.GeminiText(msg.Text)}
			if msg.HasParts() {
				parts = content.ToGemini(msg.Parts)
			}
			body.Contents = append(body.Contents, wireContent{Role: "user", Parts: parts})

		case types.RoleAssistant:
			body.Contents = append(body.Contents, wireContent{Role: "model", Parts: assistantParts(msg)})

		case types.RoleTool:
			name := callNames[msg.ToolCallID]
			if name == "" {
				name = msg.ToolCallID
			}
			part := content.GeminiPart{FunctionResponse: &content.GeminiFunctionResponse{
				Name:     name,
				Response: map[string]any{"result": a.settings.Truncation.Apply(msg.PlainText())},
			}}

			// consecutive tool results share one turn
			if n := len(body.Contents); n > 0 && isFunctionResponseTurn(body.Contents[n-1]) {
				body.Contents[n-1].Parts = append(body.Contents[n-1].Parts, part)
				continue
			}
			body.Contents = append(body.Contents, wireContent{Role: "user", Parts: []content.GeminiPart{part}})
		}
	}

	if len(system) > 0 {
		body.SystemInstruction = &wireContent{Parts: system}
	}
	if req.Temperature != nil || req.TopP != nil || req.MaxTokens != nil {
		body.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	if len(req.Tools) > 0 {
		decls := make([]functionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			params := tool.Parameters
			if params == nil {
				params = map[string]any{"type": "object", "properties": map[string]any{}}
			}
			decls = append(decls, functionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			})
		}
		body.Tools = []wireTool{{FunctionDeclarations: decls}}
	}
	return body
}

func assistantParts(msg types.ChatMessage) []content.GeminiPart {
	var parts []content.GeminiPart
	if text := msg.PlainText(); text != "" {
		parts = append(parts, content.GeminiText(text))
	}
	for _, call := range msg.ToolCalls {
		args := call.Arguments
		if args == nil {
			args = map[string]any{}
		}
		parts = append(parts, content.GeminiPart{FunctionCall: &content.GeminiFunctionCall{
			Name: call.Name,
			Args: args,
		}})
	}
	if len(parts) == 0 {
		parts = append(parts, content.GeminiText(""))
	}
	return parts
}

func isFunctionResponseTurn(c wireContent) bool {
	if c.Role != "user" || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

func parseResponse(endpoint string, raw []byte) (*types.ChatResponse, error) {
	if !gjson.ValidBytes(raw) {
		return nil, types.NewMalformedResponseError(endpoint, "invalid generateContent response", nil)
	}
	root := gjson.ParseBytes(raw)

	resp := &types.ChatResponse{Usage: parseUsage(root)}
	candidate := root.Get("candidates.0")
	if !candidate.Exists() {
		if reason := root.Get("promptFeedback.blockReason"); reason.Exists() {
			resp.FinishReason = types.FinishReasonContentFilter
			return resp, nil
		}
		return nil, types.NewMalformedResponseError(endpoint, "response has no candidates", nil)
	}

	parts, err := decodeParts(candidate)
	if err != nil {
		return nil, types.NewMalformedResponseError(endpoint, "invalid candidate parts", err)
	}

	for _, part := range parts {
		if part.FunctionCall != nil {
			if part.FunctionCall.Name == "" {
				return nil, types.NewMalformedResponseError(endpoint, "function call has no name", nil)
			}
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			resp.ToolCalls = append(resp.ToolCalls, types.ToolCall{
				ID:        newToolCallID(),
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}
	if text := content.Text(content.FromGemini(parts)); text != "" {
		resp.Text = &text
	}

	if reason := candidate.Get("finishReason").String(); reason != "" {
		resp.FinishReason = normalizeFinishReason(reason, len(resp.ToolCalls) > 0)
	} else if len(resp.ToolCalls) > 0 {
		resp.FinishReason = types.FinishReasonToolCalls
	}

	if resp.IsEmpty() && resp.FinishReason == "" {
		return nil, types.NewMalformedResponseError(endpoint, "response has no content and no finish reason", nil)
	}
	return resp, nil
}

func decodeParts(candidate gjson.Result) ([]content.GeminiPart, error) {
	raw := candidate.Get("content.parts")
	if !raw.Exists() {
		return nil, nil
	}
	if !raw.IsArray() {
		return nil, fmt.Errorf("parts is %s, not an array", raw.Type)
	}
	var parts []content.GeminiPart
	if err := json.Unmarshal([]byte(raw.Raw), &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

func parseUsage(root gjson.Result) *types.Usage {
	meta := root.Get("usageMetadata")
	if !meta.Exists() {
		return nil
	}
	usage := &types.Usage{
		PromptTokens:     int(meta.Get("promptTokenCount").Int()),
		CompletionTokens: int(meta.Get("candidatesTokenCount").Int()),
		TotalTokens:      int(meta.Get("totalTokenCount").Int()),
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

func parseModelList(endpoint string, raw []byte) ([]types.ModelInfo, string, error) {
	if !gjson.ValidBytes(raw) {
		return nil, "", types.NewMalformedResponseError(endpoint, "invalid model list", nil)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, "", types.NewMalformedResponseError(endpoint, "model list is not an object", nil)
	}

	list := root.Get("models")
	if list.Exists() && !list.IsArray() {
		return nil, "", types.NewMalformedResponseError(endpoint, "model list has no models array", nil)
	}

	var models []types.ModelInfo
	for _, m := range list.Array() {
		id := strings.TrimPrefix(m.Get("name").String(), modelsPrefix)
		if id == "" {
			continue
		}
		info := types.ModelInfo{ID: id, DisplayName: m.Get("displayName").String()}
		if info.DisplayName == "" {
			info.DisplayName = id
		}
		if limit := m.Get("inputTokenLimit"); limit.Exists() {
			n := int(limit.Int())
			info.ContextLength = &n
		}
		models = append(models, info)
	}
	return models, root.Get("nextPageToken").String(), nil
}

func normalizeFinishReason(reason string, hasToolCalls bool) string {
	if hasToolCalls {
		return types.FinishReasonToolCalls
	}
	switch reason {
	case "STOP":
		return types.FinishReasonStop
	case "MAX_TOKENS":
		return types.FinishReasonLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return types.FinishReasonContentFilter
	default:
		return strings.ToLower(reason)
	}
}

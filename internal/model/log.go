package model

import (
	"context"
	"time"

	"github.com/zgsm-ai/llm-bridge/internal/types"
	"go.uber.org/zap"
)

type contextKey string

// RequestIDContextKey stores the request id in a request context
const RequestIDContextKey contextKey = "request_id"

// WithRequestID returns ctx carrying id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, id)
}

// RequestIDFrom returns the request id stored in ctx, or ""
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// RequestLog summarizes one bridged chat request for the access log
type RequestLog struct {
	RequestID string
	Timestamp time.Time
	Provider  string
	Model     string
	Stream    bool

	// Request shape
	Messages        int
	Tools           int
	EstimatedTokens int

	// Latency metrics
	Latency    time.Duration
	FirstDelta time.Duration
	Deltas     int

	// Response information
	ToolCalls    []string
	FinishReason string
	Usage        *types.Usage

	// Error information
	ErrorKind string
	Error     string
}

// NewRequestLog starts a log entry for req
func NewRequestLog(ctx context.Context, provider string, req *types.ChatRequest) *RequestLog {
	return &RequestLog{
		RequestID: RequestIDFrom(ctx),
		Timestamp: time.Now(),
		Provider:  provider,
		Model:     req.Model,
		Stream:    req.Stream,
		Messages:  len(req.Messages),
		Tools:     len(req.Tools),
	}
}

// OnDelta records one streamed fragment
func (l *RequestLog) OnDelta() {
	if l.Deltas == 0 {
		l.FirstDelta = time.Since(l.Timestamp)
	}
	l.Deltas++
}

// Finish records the outcome of the request
func (l *RequestLog) Finish(resp *types.ChatResponse, err error) {
	l.Latency = time.Since(l.Timestamp)
	if err != nil {
		l.Error = err.Error()
		l.ErrorKind = "internal"
		if le, ok := types.AsLLMError(err); ok {
			l.ErrorKind = string(le.Kind)
		}
		return
	}
	if resp == nil {
		return
	}
	l.FinishReason = resp.FinishReason
	l.Usage = resp.Usage
	for _, call := range resp.ToolCalls {
		l.ToolCalls = append(l.ToolCalls, call.Name)
	}
}

// Fields renders the entry as zap fields
func (l *RequestLog) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("requestId", l.RequestID),
		zap.String("provider", l.Provider),
		zap.String("model", l.Model),
		zap.Bool("stream", l.Stream),
		zap.Int("messages", l.Messages),
		zap.Int("tools", l.Tools),
		zap.Int("estimatedTokens", l.EstimatedTokens),
		zap.Int64("latencyMs", l.Latency.Milliseconds()),
	}
	if l.Stream {
		fields = append(fields,
			zap.Int("deltas", l.Deltas),
			zap.Int64("firstDeltaMs", l.FirstDelta.Milliseconds()))
	}
	if l.Error != "" {
		return append(fields, zap.String("errorKind", l.ErrorKind), zap.String("error", l.Error))
	}
	fields = append(fields,
		zap.String("finishReason", l.FinishReason),
		zap.Strings("toolCalls", l.ToolCalls))
	if l.Usage != nil {
		fields = append(fields,
			zap.Int("promptTokens", l.Usage.PromptTokens),
			zap.Int("completionTokens", l.Usage.CompletionTokens),
			zap.Int("totalTokens", l.Usage.TotalTokens))
	}
	return fields
}

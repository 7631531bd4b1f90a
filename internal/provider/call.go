package provider

import (
	"context"

	"github.com/zgsm-ai/llm-bridge/internal/client"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"github.com/zgsm-ai/llm-bridge/internal/service"
	"github.com/zgsm-ai/llm-bridge/internal/stream"
	"github.com/zgsm-ai/llm-bridge/internal/timeout"
	"github.com/zgsm-ai/llm-bridge/internal/types"
	"github.com/zgsm-ai/llm-bridge/internal/utils"
	"go.uber.org/zap"
)

// BlockingCall is one non-streaming request prepared by an adapter
type BlockingCall struct {
	Provider string
	Model    string
	Request  client.Request
	Parse    func(body []byte) (*types.ChatResponse, error)
}

// Send performs call and parses the complete response body
func (s Settings) Send(ctx context.Context, call BlockingCall) (resp *types.ChatResponse, err error) {
	observer := s.Metrics.Begin(call.Provider, call.Model, service.ModeBlocking)
	defer func() { observer.Finish(resp, err) }()

	body, err := s.HTTPClient.DoJSON(ctx, call.Request)
	if err != nil {
		return nil, err
	}
	return call.Parse(body)
}

// StreamCall is one streaming request prepared by an adapter
type StreamCall struct {
	Provider string
	Model    string
	Request  client.Request
	Decode   stream.DecodeFunc
	OnDelta  types.DeltaFunc
}

// Stream performs call and drives its event stream through an accumulator.
// The body is closed before Stream returns.
func (s Settings) Stream(ctx context.Context, call StreamCall) (resp *types.ChatResponse, err error) {
	endpoint := client.EndpointOf(call.Request.URL)
	observer := s.Metrics.Begin(call.Provider, call.Model, service.ModeStream)
	defer func() { observer.Finish(resp, err) }()

	var idle *timeout.IdleTimer
	if s.IdleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel, idle = timeout.NewIdleTimer(ctx, s.IdleTimeout)
		defer cancel()
		defer idle.Stop()
	}

	httpResp, err := s.HTTPClient.Do(ctx, call.Request)
	if err != nil {
		return nil, idleError(idle, endpoint, err)
	}
	defer httpResp.Body.Close()

	stats := utils.NewFrameStats(0)
	src := stream.NewSSESource(ctx, httpResp.Body, call.Decode, stream.SSESourceOptions{
		Endpoint:      endpoint,
		MaxFrameBytes: s.MaxFrameBytes,
		Stats:         stats,
		OnFrame:       idle.Reset,
	})
	opts := stream.Options{
		OnDelta:             call.OnDelta,
		StrictToolArguments: s.StrictToolArguments,
		Endpoint:            endpoint,
	}
	if observer != nil {
		opts.Observer = observer
	}
	acc := stream.NewAccumulator(opts)

	resp, err = stream.Run(ctx, src, acc)
	if err != nil {
		logFrameStats(call, stats.Stop())
		return nil, idleError(idle, endpoint, err)
	}
	logFrameStats(call, stats.End())
	return resp, nil
}

// idleError reports an idle-guard abort as a transport failure rather than
// as caller cancellation
func idleError(idle *timeout.IdleTimer, endpoint string, err error) error {
	if idle.Fired() && types.IsCancelled(err) {
		return types.NewTransportError(endpoint, timeout.ErrStreamIdle)
	}
	return err
}

func logFrameStats(call StreamCall, info *utils.FrameStatInfo) {
	if info == nil {
		return
	}
	logger.Debug("stream frame stats",
		zap.String("provider", call.Provider),
		zap.String("model", call.Model),
		zap.Int("count", info.Count),
		zap.Float64("meanMs", info.Mean),
		zap.Float64("p50Ms", info.P50),
		zap.Float64("p95Ms", info.P95),
		zap.Float64("maxMs", info.Max),
		zap.Bool("aborted", info.IsError),
	)
}

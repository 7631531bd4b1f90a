package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

// Request modes
const (
	ModeStream   = "stream"
	ModeBlocking = "blocking"
)

// OutcomeOK labels a successful request; failures use the LLMError kind
const OutcomeOK = "ok"

// MetricsService handles Prometheus metrics collection
type MetricsService struct {
	// Request metrics
	requestsTotal *prometheus.CounterVec

	// Latency metrics
	requestLatency    *prometheus.HistogramVec
	firstDeltaLatency *prometheus.HistogramVec

	// Stream metrics
	streamFrames          *prometheus.CounterVec
	toolArgumentFallbacks *prometheus.CounterVec

	// Token metrics
	usageTokens *prometheus.CounterVec
}

// NewMetricsService creates the collectors and registers them on reg. A nil
// reg leaves them unregistered.
func NewMetricsService(reg prometheus.Registerer) *MetricsService {
	ms := &MetricsService{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_bridge_requests_total",
				Help: "Total number of chat requests sent to a provider",
			},
			[]string{"provider", "model", "mode", "outcome"},
		),

		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_bridge_request_latency_ms",
				Help:    "Chat request latency in milliseconds",
				Buckets: []float64{100, 500, 1000, 2000, 5000, 10000, 20000, 60000},
			},
			[]string{"provider", "model", "mode"},
		),

		firstDeltaLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_bridge_first_delta_latency_ms",
				Help:    "Time from request start to the first streamed text fragment in milliseconds",
				Buckets: []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000},
			},
			[]string{"provider", "model"},
		),

		streamFrames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_bridge_stream_frames_total",
				Help: "Total number of stream deltas merged",
			},
			[]string{"provider", "model"},
		),

		toolArgumentFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_bridge_tool_argument_fallbacks_total",
				Help: "Tool calls whose arguments could not be parsed and were replaced by an empty object",
			},
			[]string{"provider", "model", "tool"},
		),

		usageTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_bridge_usage_tokens_total",
				Help: "Token usage reported by providers",
			},
			[]string{"provider", "model", "token_type"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			ms.requestsTotal,
			ms.requestLatency,
			ms.firstDeltaLatency,
			ms.streamFrames,
			ms.toolArgumentFallbacks,
			ms.usageTokens,
		)
	}

	return ms
}

// Begin starts tracking one request. A nil MetricsService returns a nil
// observer, whose methods are no-ops.
func (ms *MetricsService) Begin(provider, model, mode string) *RequestObserver {
	if ms == nil {
		return nil
	}
	return &RequestObserver{
		ms:       ms,
		provider: provider,
		model:    model,
		mode:     mode,
		start:    time.Now(),
	}
}

// RequestObserver records the metrics of one request. It implements
// stream.Observer.
type RequestObserver struct {
	ms       *MetricsService
	provider string
	model    string
	mode     string
	start    time.Time
}

// ObserveFrame counts one merged delta
func (o *RequestObserver) ObserveFrame() {
	if o == nil {
		return
	}
	o.ms.streamFrames.WithLabelValues(o.provider, o.model).Inc()
}

// ObserveFirstDelta records the time to first text
func (o *RequestObserver) ObserveFirstDelta() {
	if o == nil {
		return
	}
	o.ms.firstDeltaLatency.WithLabelValues(o.provider, o.model).
		Observe(float64(time.Since(o.start).Milliseconds()))
}

// ObserveToolArgumentFallback counts a degraded tool call
func (o *RequestObserver) ObserveToolArgumentFallback(toolName string) {
	if o == nil {
		return
	}
	o.ms.toolArgumentFallbacks.WithLabelValues(o.provider, o.model, toolName).Inc()
}

// Finish records the outcome, latency and usage of the request
func (o *RequestObserver) Finish(resp *types.ChatResponse, err error) {
	if o == nil {
		return
	}
	o.ms.requestsTotal.WithLabelValues(o.provider, o.model, o.mode, Outcome(err)).Inc()
	o.ms.requestLatency.WithLabelValues(o.provider, o.model, o.mode).
		Observe(float64(time.Since(o.start).Milliseconds()))

	if err == nil && resp != nil && resp.Usage != nil {
		o.ms.usageTokens.WithLabelValues(o.provider, o.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		o.ms.usageTokens.WithLabelValues(o.provider, o.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}
}

// Outcome maps an error to the outcome label
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if le, ok := types.AsLLMError(err); ok {
		return string(le.Kind)
	}
	return "error"
}

package service

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

func TestMetricsService_RequestLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	ms := NewMetricsService(reg)

	obs := ms.Begin("openai", "m1", ModeStream)
	obs.ObserveFrame()
	obs.ObserveFrame()
	obs.ObserveFirstDelta()
	obs.ObserveToolArgumentFallback("search")
	obs.Finish(&types.ChatResponse{Usage: &types.Usage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}}, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(ms.streamFrames.WithLabelValues("openai", "m1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ms.toolArgumentFallbacks.WithLabelValues("openai", "m1", "search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ms.requestsTotal.WithLabelValues("openai", "m1", ModeStream, OutcomeOK)))
	assert.Equal(t, 7.0, testutil.ToFloat64(ms.usageTokens.WithLabelValues("openai", "m1", "prompt")))
	assert.Equal(t, 3.0, testutil.ToFloat64(ms.usageTokens.WithLabelValues("openai", "m1", "completion")))
	assert.Equal(t, 1, testutil.CollectAndCount(ms.requestLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(ms.firstDeltaLatency))
}

func TestMetricsService_FailureOutcome(t *testing.T) {
	ms := NewMetricsService(prometheus.NewRegistry())

	ms.Begin("gemini", "g", ModeBlocking).Finish(nil, types.NewHTTPStatusError("u", 429, ""))
	ms.Begin("gemini", "g", ModeBlocking).Finish(nil, errors.New("other"))

	assert.Equal(t, 1.0, testutil.ToFloat64(ms.requestsTotal.WithLabelValues("gemini", "g", ModeBlocking, string(types.ErrKindHTTPStatus))))
	assert.Equal(t, 1.0, testutil.ToFloat64(ms.requestsTotal.WithLabelValues("gemini", "g", ModeBlocking, "error")))
}

func TestMetricsService_NilSafe(t *testing.T) {
	var ms *MetricsService
	obs := ms.Begin("p", "m", ModeStream)
	assert.Nil(t, obs)

	obs.ObserveFrame()
	obs.ObserveFirstDelta()
	obs.ObserveToolArgumentFallback("x")
	obs.Finish(nil, nil)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, "cancelled", Outcome(types.NewCancellationError("", nil)))
	assert.Equal(t, "transport", Outcome(types.NewTransportError("", errors.New("x"))))
}

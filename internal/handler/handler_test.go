package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zgsm-ai/llm-bridge/internal/bootstrap"
	"github.com/zgsm-ai/llm-bridge/internal/model"
	"github.com/zgsm-ai/llm-bridge/internal/provider/mocks"
	"github.com/zgsm-ai/llm-bridge/internal/service"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

func newTestRouter(t *testing.T) (*gin.Engine, *mocks.MockProvider, *bootstrap.ServiceContext) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctrl := gomock.NewController(t)
	p := mocks.NewMockProvider(ctrl)
	p.EXPECT().Name().Return("mock").AnyTimes()
	p.EXPECT().CountTokens(gomock.Any()).Return(11).AnyTimes()

	reg := prometheus.NewRegistry()
	svcCtx := &bootstrap.ServiceContext{
		Provider:        p,
		Metrics:         service.NewMetricsService(reg),
		MetricsRegistry: reg,
	}

	router := gin.New()
	RegisterHandlers(router, svcCtx)
	return router, p, svcCtx
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const chatBody = `{"messages":[{"role":"user","content":"hi"}]}`

func TestChatHandler_Blocking(t *testing.T) {
	router, p, _ := newTestRouter(t)
	text := "Hello"
	p.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Nil()).
		DoAndReturn(func(ctx context.Context, req *types.ChatRequest, _ types.DeltaFunc) (*types.ChatResponse, error) {
			assert.NotEmpty(t, model.RequestIDFrom(ctx))
			require.Len(t, req.Messages, 1)
			assert.Equal(t, "hi", req.Messages[0].Text)
			return &types.ChatResponse{Text: &text, FinishReason: types.FinishReasonStop}, nil
		})

	w := do(router, http.MethodPost, "/api/v1/chat", chatBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("x-request-id"))
	assert.JSONEq(t, `{"text":"Hello","finish_reason":"stop"}`, w.Body.String())
}

func TestChatHandler_Stream(t *testing.T) {
	router, p, _ := newTestRouter(t)
	p.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *types.ChatRequest, onDelta types.DeltaFunc) (*types.ChatResponse, error) {
			require.NoError(t, onDelta("Hi"))
			text := "Hi"
			return &types.ChatResponse{Text: &text}, nil
		})

	w := do(router, http.MethodPost, "/api/v1/chat", `{"stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	assert.Equal(t, "data: {\"delta\":\"Hi\"}\n\ndata: {\"response\":{\"text\":\"Hi\"}}\n\ndata: [DONE]\n\n", w.Body.String())
}

func TestChatHandler_RequestID(t *testing.T) {
	router, p, _ := newTestRouter(t)
	p.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *types.ChatRequest, _ types.DeltaFunc) (*types.ChatResponse, error) {
			assert.Equal(t, "req-42", model.RequestIDFrom(ctx))
			return &types.ChatResponse{FinishReason: types.FinishReasonStop}, nil
		})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(chatBody))
	req.Header.Set("x-request-id", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("x-request-id"))
}

func TestChatHandler_BadRequests(t *testing.T) {
	router, _, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"messages":`},
		{"no messages", `{"messages":[]}`},
		{"tool without id", `{"messages":[{"role":"tool","content":"x"}]}`},
		{"unknown role", `{"messages":[{"role":"robot","content":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/v1/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var apiErr types.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, types.ErrCodeInvalidRequest, apiErr.Code)
			assert.False(t, apiErr.Success)
		})
	}
}

func TestChatHandler_ProviderError(t *testing.T) {
	router, p, _ := newTestRouter(t)
	p.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, types.NewHTTPStatusError("http://vendor/chat", http.StatusTooManyRequests, "slow down"))

	w := do(router, http.MethodPost, "/api/v1/chat", chatBody)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var apiErr types.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, types.ErrCodeProvider, apiErr.Code)
	assert.Equal(t, string(types.ErrKindHTTPStatus), apiErr.Type)
	assert.Equal(t, types.TipRateLimit, apiErr.Tip)
}

func TestModelsHandler(t *testing.T) {
	router, p, _ := newTestRouter(t)
	limit := 4096
	p.EXPECT().ListModels(gomock.Any()).Return([]types.ModelInfo{{ID: "a", DisplayName: "A", ContextLength: &limit}}, nil)

	w := do(router, http.MethodGet, "/api/v1/models", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"provider":"mock","models":[{"id":"a","display_name":"A","context_length":4096}]}`, w.Body.String())
}

func TestModelsHandler_Error(t *testing.T) {
	router, p, _ := newTestRouter(t)
	p.EXPECT().ListModels(gomock.Any()).Return(nil, types.NewMalformedResponseError("http://vendor/models", "bad list", nil))

	w := do(router, http.MethodGet, "/api/v1/models", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTokensHandler(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := do(router, http.MethodPost, "/api/v1/tokens", chatBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"provider":"mock","tokens":11}`, w.Body.String())

	w = do(router, http.MethodPost, "/api/v1/tokens", `nope`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router, _, svcCtx := newTestRouter(t)
	svcCtx.Metrics.Begin("mock", "m", service.ModeBlocking).Finish(nil, nil)

	w := do(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","provider":"mock"}`, w.Body.String())

	w = do(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "llm_bridge_requests_total")
}

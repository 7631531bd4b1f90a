package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

func TestHTTPClient_DoJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json; charset=utf-8", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "m", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewHTTPClient(HTTPClientConfig{})
	raw, err := c.DoJSON(context.Background(), Request{
		URL:     server.URL + "/v1/chat/completions",
		Headers: map[string]string{"Authorization": "Bearer k"},
		Body:    map[string]string{"model": "m"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestHTTPClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		tip     string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Invalid API key"}}`, "Invalid API key", types.TipCredential},
		{"not found", http.StatusNotFound, ``, "Not Found", types.TipEndpoint},
		{"model missing", http.StatusBadRequest, `{"error":"model foo is not loaded"}`, "model foo is not loaded", types.TipModelNotLoaded},
		{"rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`, "slow down", types.TipRateLimit},
		{"server", http.StatusServiceUnavailable, `upstream down`, "upstream down", types.TipBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewHTTPClientFrom(server.Client()).DoJSON(context.Background(), Request{
				Method: http.MethodGet,
				URL:    server.URL + "/models?key=secret",
			})
			le, ok := types.AsLLMError(err)
			require.True(t, ok)
			assert.Equal(t, types.ErrKindHTTPStatus, le.Kind)
			assert.Equal(t, tt.status, le.StatusCode)
			assert.Equal(t, tt.message, le.Message)
			assert.Equal(t, tt.tip, le.Tip)
			assert.Equal(t, server.URL+"/models", le.Endpoint)
		})
	}
}

func TestHTTPClient_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPClient(HTTPClientConfig{}).DoJSON(context.Background(), Request{URL: url})
	le, ok := types.AsLLMError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrKindTransport, le.Kind)
	assert.Equal(t, types.TipServerNotRunning, le.Tip)
}

func TestHTTPClient_CancelledBeforeCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(HTTPClientConfig{}).Do(ctx, Request{URL: "http://127.0.0.1:1"})
	assert.True(t, types.IsCancelled(err))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil))
	assert.Equal(t, "bad", ErrorMessage([]byte(`{"error":{"message":"bad","code":400}}`)))
	assert.Equal(t, "plain", ErrorMessage([]byte(`{"error":"plain"}`)))
	assert.Equal(t, "", ErrorMessage([]byte(`{"unrelated":1}`)))
	assert.Equal(t, "not json", ErrorMessage([]byte(`not json`)))
}

func TestEndpointOf(t *testing.T) {
	assert.Equal(t, "https://host/v1beta/models/x:generateContent",
		EndpointOf("https://host/v1beta/models/x:generateContent?key=abc&alt=sse"))
}

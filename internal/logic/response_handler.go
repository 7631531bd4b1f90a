package logic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"github.com/zgsm-ai/llm-bridge/internal/types"
	"go.uber.org/zap"
)

// streamEvent is one SSE data frame sent to clients
type streamEvent struct {
	Delta    *string             `json:"delta,omitempty"`
	Response *types.ChatResponse `json:"response,omitempty"`
}

type errorEvent struct {
	Error *types.APIError `json:"error"`
}

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	flusher, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: flusher}
}

func (s *sseWriter) writeEvent(v any) error {
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode stream event: %w", err)
	}
	return s.writeData(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

func (s *sseWriter) writeDone() error {
	return s.writeData([]byte("[DONE]"))
}

func (s *sseWriter) writeData(data []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write stream event: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// sendSSEError sends an error message in SSE format followed by [DONE]
func (s *sseWriter) sendSSEError(err error) {
	logger.Warn("sending SSE error response", zap.Error(err))

	if werr := s.writeEvent(errorEvent{Error: types.NewAPIError(err)}); werr != nil {
		logger.Error("failed to write SSE error", zap.Error(werr))
		return
	}
	if werr := s.writeDone(); werr != nil {
		logger.Error("failed to write SSE done", zap.Error(werr))
	}
}

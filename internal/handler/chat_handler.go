package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zgsm-ai/llm-bridge/internal/bootstrap"
	"github.com/zgsm-ai/llm-bridge/internal/logic"
	"github.com/zgsm-ai/llm-bridge/internal/types"
)

// ChatHandler handles chat requests
func ChatHandler(svcCtx *bootstrap.ServiceContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Parse and validate request
		var req types.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			sendErrorResponse(c, fmt.Errorf("%w: %v", types.ErrInvalidRequest, err))
			return
		}
		if err := req.Validate(); err != nil {
			sendErrorResponse(c, err)
			return
		}

		l := logic.NewChatLogic(c.Request.Context(), svcCtx)

		// 2. Handle stream and non-stream cases separately
		if req.Stream {
			handleStreamResponse(c, l, &req)
		} else {
			handleNonStreamResponse(c, l, &req)
		}
	}
}

// handleStreamResponse handles streaming response. Errors are reported in
// the stream by the logic layer once headers are sent.
func handleStreamResponse(c *gin.Context, l *logic.ChatLogic, req *types.ChatRequest) {
	setSSEResponseHeaders(c)
	c.Status(http.StatusOK)

	if flusher, ok := c.Writer.(http.Flusher); ok {
		flusher.Flush()
	}

	_ = l.ChatStream(req, c.Writer)
}

// handleNonStreamResponse handles non-streaming response
func handleNonStreamResponse(c *gin.Context, l *logic.ChatLogic, req *types.ChatRequest) {
	resp, err := l.Chat(req)
	if err != nil {
		sendErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ModelsHandler lists the active provider's models
func ModelsHandler(svcCtx *bootstrap.ServiceContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := logic.ListModels(c.Request.Context(), svcCtx)
		if err != nil {
			sendErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// TokensHandler estimates the prompt size of the posted messages
func TokensHandler(svcCtx *bootstrap.ServiceContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req logic.TokensRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			sendErrorResponse(c, fmt.Errorf("%w: %v", types.ErrInvalidRequest, err))
			return
		}
		resp, err := logic.CountTokens(svcCtx, &req)
		if err != nil {
			sendErrorResponse(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HealthHandler reports liveness
func HealthHandler(svcCtx *bootstrap.ServiceContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": svcCtx.Provider.Name()})
	}
}

// sendErrorResponse sends the structured error envelope
func sendErrorResponse(c *gin.Context, err error) {
	apiErr := types.NewAPIError(err)
	c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
}

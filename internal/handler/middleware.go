package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"github.com/zgsm-ai/llm-bridge/internal/model"
	"go.uber.org/zap"
)

// RequestIDMiddleware tags every request with an id, echoes it in the
// response headers and logs the request once it completes
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFromHeaders(c)

		c.Request = c.Request.WithContext(model.WithRequestID(c.Request.Context(), requestID))
		c.Header(requestIDHeader, requestID)

		c.Next()

		logger.Debug("http request",
			zap.String("requestId", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

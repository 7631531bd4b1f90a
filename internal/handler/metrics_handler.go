package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zgsm-ai/llm-bridge/internal/bootstrap"
)

// MetricsHandler handles Prometheus metrics endpoint
func MetricsHandler(serverCtx *bootstrap.ServiceContext) gin.HandlerFunc {
	if serverCtx.MetricsRegistry == nil {
		return gin.WrapH(promhttp.Handler())
	}
	handler := promhttp.HandlerFor(serverCtx.MetricsRegistry, promhttp.HandlerOpts{})
	return gin.WrapH(handler)
}

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/zgsm-ai/llm-bridge/internal/bootstrap"
)

func RegisterHandlers(router *gin.Engine, serverCtx *bootstrap.ServiceContext) {
	router.Use(RequestIDMiddleware())

	apiGroup := router.Group("/api/v1")
	{
		apiGroup.POST("/chat", ChatHandler(serverCtx))
		apiGroup.GET("/models", ModelsHandler(serverCtx))
		apiGroup.POST("/tokens", TokensHandler(serverCtx))
	}
	router.GET("/metrics", MetricsHandler(serverCtx))
	router.GET("/healthz", HealthHandler(serverCtx))
}

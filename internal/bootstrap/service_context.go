package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/zgsm-ai/llm-bridge/internal/cache"
	"github.com/zgsm-ai/llm-bridge/internal/client"
	"github.com/zgsm-ai/llm-bridge/internal/config"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"github.com/zgsm-ai/llm-bridge/internal/provider"
	"github.com/zgsm-ai/llm-bridge/internal/provider/gemini"
	"github.com/zgsm-ai/llm-bridge/internal/provider/openai"
	"github.com/zgsm-ai/llm-bridge/internal/service"
	"github.com/zgsm-ai/llm-bridge/internal/utils"
	"go.uber.org/zap"
)

const redisPingTimeout = 3 * time.Second

// ServiceContext holds all service dependencies
type ServiceContext struct {
	Config config.Config

	// Provider is the active adapter, wrapped with the model list cache
	Provider provider.Provider

	// Services
	Metrics         *service.MetricsService
	MetricsRegistry *prometheus.Registry

	// Utilities
	TokenCounter *utils.TokenCounter
	ModelCache   cache.ModelCache

	redisCache *cache.RedisModelCache
}

// NewRegistry returns a registry holding every built-in adapter
func NewRegistry() *provider.Registry {
	r := provider.NewRegistry()
	r.Register(openai.Name, openai.New)
	r.Register(gemini.Name, gemini.New)
	return r
}

// NewServiceContext creates a new service context with all dependencies
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	tokenCounter, err := utils.NewTokenCounter(c.Tokenizer.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to create token counter: %w", err)
	}

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := service.NewMetricsService(metricsRegistry)

	svc := &ServiceContext{
		Config:          c,
		Metrics:         metrics,
		MetricsRegistry: metricsRegistry,
		TokenCounter:    tokenCounter,
	}

	p, err := NewRegistry().New(c.Provider, svc.providerSettings())
	if err != nil {
		return nil, err
	}

	svc.ModelCache = svc.newModelCache()
	svc.Provider = provider.WithModelCache(p, svc.ModelCache, c.Redis.ModelCacheTTL)

	logger.Info("service context ready",
		zap.String("provider", p.Name()),
		zap.String("tokenizer", c.Tokenizer.Encoding),
		zap.Duration("modelCacheTTL", c.Redis.ModelCacheTTL))
	return svc, nil
}

func (svc *ServiceContext) providerSettings() provider.Settings {
	c := svc.Config
	pc, _ := c.ActiveProvider()

	return provider.Settings{
		BaseURL:    pc.BaseURL,
		Model:      pc.Model,
		Credential: Credential(pc),
		HTTPClient: client.NewHTTPClient(client.HTTPClientConfig{
			DialTimeout:           c.HTTP.DialTimeout,
			TLSHandshakeTimeout:   c.HTTP.TLSHandshakeTimeout,
			ResponseHeaderTimeout: c.HTTP.ResponseHeaderTimeout,
			IdleConnTimeout:       c.HTTP.IdleConnTimeout,
			MaxIdleConns:          c.HTTP.MaxIdleConns,
			MaxIdleConnsPerHost:   c.HTTP.MaxIdleConnsPerHost,
		}),
		Truncation:          utils.NewTruncationPolicy(c.Truncation.MaxChars, c.Truncation.MaxTokens),
		TokenCounter:        svc.TokenCounter,
		Metrics:             svc.Metrics,
		StrictToolArguments: c.Stream.StrictToolArguments,
		IdleTimeout:         c.Stream.IdleTimeout,
		MaxFrameBytes:       c.Stream.MaxFrameBytes,
	}
}

// Credential picks the credential source of a provider: a literal key wins
// over the environment variable
func Credential(pc config.ProviderConfig) provider.CredentialProvider {
	if pc.APIKey != "" {
		return provider.StaticCredential(pc.APIKey)
	}
	if pc.APIKeyEnv != "" {
		return provider.EnvCredential(pc.APIKeyEnv)
	}
	return provider.StaticCredential("")
}

// newModelCache prefers Redis and falls back to process memory when Redis
// is not configured or unreachable
func (svc *ServiceContext) newModelCache() cache.ModelCache {
	rc := svc.Config.Redis
	if rc.ModelCacheTTL <= 0 {
		return nil
	}
	if rc.Addr == "" {
		return cache.NewMemoryModelCache()
	}

	redisCache := cache.NewRedisModelCache(cache.RedisConfig{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, using in-memory model cache",
			zap.String("addr", rc.Addr),
			zap.Error(err))
		_ = redisCache.Close()
		return cache.NewMemoryModelCache()
	}

	svc.redisCache = redisCache
	return redisCache
}

// Stop gracefully stops all services
func (svc *ServiceContext) Stop() {
	if svc.redisCache != nil {
		if err := svc.redisCache.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	logger.Sync()
}

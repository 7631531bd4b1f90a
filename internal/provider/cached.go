package provider

import (
	"context"
	"errors"
	"time"

	"github.com/zgsm-ai/llm-bridge/internal/cache"
	"github.com/zgsm-ai/llm-bridge/internal/logger"
	"github.com/zgsm-ai/llm-bridge/internal/types"
	"go.uber.org/zap"
)

// cachedProvider serves ListModels from a cache. Cache failures are logged
// and bypassed.
type cachedProvider struct {
	Provider
	cache cache.ModelCache
	ttl   time.Duration
}

// WithModelCache decorates p so ListModels results are cached for ttl. A nil
// cache or non-positive ttl returns p unchanged.
func WithModelCache(p Provider, c cache.ModelCache, ttl time.Duration) Provider {
	if c == nil || ttl <= 0 {
		return p
	}
	return &cachedProvider{Provider: p, cache: c, ttl: ttl}
}

// ListModels implements Provider
func (p *cachedProvider) ListModels(ctx context.Context) ([]types.ModelInfo, error) {
	name := p.Name()

	models, err := p.cache.Get(ctx, name)
	if err == nil {
		return models, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("model cache read failed",
			zap.String("provider", name),
			zap.Error(err),
		)
	}

	models, err = p.Provider.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, name, models, p.ttl); err != nil {
		logger.Warn("model cache write failed",
			zap.String("provider", name),
			zap.Error(err),
		)
	}
	return models, nil
}

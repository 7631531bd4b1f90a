// Package cache stores provider model listings between requests.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zgsm-ai/llm-bridge/internal/types"
)

// ErrMiss is returned by Get when no fresh entry exists
var ErrMiss = errors.New("cache miss")

// ModelCache stores model listings keyed by provider name
type ModelCache interface {
	Get(ctx context.Context, provider string) ([]types.ModelInfo, error)
	Set(ctx context.Context, provider string, models []types.ModelInfo, ttl time.Duration) error
}

// MemoryModelCache is an in-process ModelCache, used when no Redis address
// is configured
type MemoryModelCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	models    []types.ModelInfo
	expiresAt time.Time
}

// NewMemoryModelCache creates an empty in-process cache
func NewMemoryModelCache() *MemoryModelCache {
	return &MemoryModelCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements ModelCache
func (c *MemoryModelCache) Get(_ context.Context, provider string) ([]types.ModelInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[provider]
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, ErrMiss
	}
	return append([]types.ModelInfo(nil), entry.models...), nil
}

// Set implements ModelCache
func (c *MemoryModelCache) Set(_ context.Context, provider string, models []types.ModelInfo, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[provider] = memoryEntry{
		models:    append([]types.ModelInfo(nil), models...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

package gemini

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// ModelLister lists generation-capable model names.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// ModelCache is a read-mostly cache of the available model list. Refresh is
// idempotent and cheap relative to request volume, so concurrent refreshes
// are allowed to run redundantly; last writer wins.
type ModelCache struct {
	lister       ModelLister
	defaultModel string

	mu     sync.RWMutex
	models []string
}

// NewModelCache creates a cache over lister. defaultModel is pinned into
// every list the cache returns; empty falls back to DefaultModel.
func NewModelCache(lister ModelLister, defaultModel string) *ModelCache {
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	return &ModelCache{lister: lister, defaultModel: defaultModel}
}

// Default returns the pinned default model name.
func (c *ModelCache) Default() string {
	return c.defaultModel
}

// Get returns the cached model list, refreshing it when empty or when force
// is set. A failed refresh degrades to a list holding only the default model
// rather than an error; generation itself will surface a broken backend.
func (c *ModelCache) Get(ctx context.Context, force bool) []string {
	c.mu.RLock()
	cached := c.models
	c.mu.RUnlock()

	if len(cached) > 0 && !force {
		return slices.Clone(cached)
	}

	models, err := c.lister.ListModels(ctx)
	if err != nil {
		slog.Warn("model list refresh failed, falling back to default", "error", err)
		models = nil
	}
	if !slices.Contains(models, c.defaultModel) {
		models = append([]string{c.defaultModel}, models...)
	}

	c.mu.Lock()
	c.models = models
	c.mu.Unlock()

	return slices.Clone(models)
}

// Validate reports whether model is known. On a cache miss it forces exactly
// one refresh before giving up, so a freshly released model is picked up
// without restarting.
func (c *ModelCache) Validate(ctx context.Context, model string) bool {
	if slices.Contains(c.Get(ctx, false), model) {
		return true
	}
	slog.Debug("model not in cached list, refreshing", "model", model)
	return slices.Contains(c.Get(ctx, true), model)
}

package kube

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/moolen/kubediagnose/internal/logging"
)

const namespaceCacheKey = "namespaces"

// NamespaceCache memoizes the namespace list for a short TTL. All other
// reads are passed through to the wrapped fetcher untouched.
type NamespaceCache struct {
	Fetcher
	cache  *expirable.LRU[string, []string]
	logger *logging.Logger
}

// NewNamespaceCache wraps next. A ttl of zero or less returns next unchanged.
func NewNamespaceCache(next Fetcher, ttl time.Duration) Fetcher {
	if ttl <= 0 {
		return next
	}
	return &NamespaceCache{
		Fetcher: next,
		cache:   expirable.NewLRU[string, []string](1, nil, ttl),
		logger:  logging.GetLogger("kube"),
	}
}

// ListNamespaces returns the cached list or refreshes it
func (c *NamespaceCache) ListNamespaces(ctx context.Context) ([]string, error) {
	if names, ok := c.cache.Get(namespaceCacheKey); ok {
		c.logger.Debug("Namespace cache hit (%d namespaces)", len(names))
		return append([]string(nil), names...), nil
	}

	names, err := c.Fetcher.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(namespaceCacheKey, names)
	return append([]string(nil), names...), nil
}

// Invalidate drops the cached namespace list
func (c *NamespaceCache) Invalidate() {
	c.cache.Purge()
}

var (
	_ Fetcher = (*NamespaceCache)(nil)
	_ Fetcher = (*Client)(nil)
)

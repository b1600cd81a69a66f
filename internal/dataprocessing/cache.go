package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"loandash/pkg/contracts/domain"
)

// LoadObserver is notified of every parse performed by a Cache.
type LoadObserver interface {
	ObserveLoad(ctx context.Context, source string, report CleaningReport, elapsed time.Duration, err error)
}

// Cache memoizes cleaned tables by source identity. A cached table is
// reused while the source digest is unchanged; concurrent loads of one
// source share a single fetch.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*domain.Table
	group   singleflight.Group

	logger   *slog.Logger
	observer LoadObserver
}

// NewCache creates an empty cache. observer may be nil.
func NewCache(logger *slog.Logger, observer LoadObserver) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries:  make(map[string]*domain.Table),
		logger:   logger.With("component", "dataset_cache"),
		observer: observer,
	}
}

type cacheResult struct {
	table   *domain.Table
	changed bool
}

// Get returns the table for src. changed is false when the cached table was
// still current and no parsing happened.
func (c *Cache) Get(ctx context.Context, src Source) (table *domain.Table, changed bool, err error) {
	key := src.String()
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		raw, err := src.Fetch(ctx)
		if err != nil {
			c.observe(ctx, key, CleaningReport{}, 0, err)
			return nil, fmt.Errorf("load %s: %w", key, err)
		}

		if cached := c.Peek(key); cached != nil && cached.Meta().Digest == raw.Digest {
			c.logger.DebugContext(ctx, "Dataset unchanged", "source", key, "digest", raw.Digest)
			return cacheResult{table: cached}, nil
		}

		start := time.Now()
		res, err := Build(raw, key)
		elapsed := time.Since(start)
		if err != nil {
			c.observe(ctx, key, CleaningReport{}, elapsed, err)
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		c.observe(ctx, key, res.Report, elapsed, nil)

		c.mu.Lock()
		c.entries[key] = res.Table
		c.mu.Unlock()

		c.logger.InfoContext(ctx, "Dataset loaded",
			"source", key,
			"digest", raw.Digest,
			"rows_read", res.Report.Input,
			"rows_kept", res.Report.Kept,
			"duration_ms", elapsed.Milliseconds())
		return cacheResult{table: res.Table, changed: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(cacheResult)
	return r.table, r.changed, nil
}

// Peek returns the cached table for a source identity without loading.
func (c *Cache) Peek(key string) *domain.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

func (c *Cache) observe(ctx context.Context, key string, report CleaningReport, elapsed time.Duration, err error) {
	if c.observer != nil {
		c.observer.ObserveLoad(ctx, key, report, elapsed, err)
	}
}

package crunchyroll

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// API is the catalog surface shared by the HTTP client and the scraping
// fallback.
type API interface {
	Name() string
	IsConfigured() bool
	Search(ctx context.Context, query string, limit int) ([]Series, error)
	GetSeasons(ctx context.Context, seriesID string) ([]Season, error)
	GetSeries(ctx context.Context, seriesID string) (*SeriesDetail, error)
}

// CachedClient wraps an API with a TTL cache so repeated resolutions of
// similar titles do not hammer the remote catalog. Cached entries are
// shared across resolutions with no consistency guarantee beyond the TTL.
type CachedClient struct {
	inner  API
	cache  *Cache
	logger zerolog.Logger
}

// NewCachedClient creates a caching wrapper around the given client.
func NewCachedClient(inner API, cfg CacheConfig, logger zerolog.Logger) *CachedClient {
	return &CachedClient{
		inner:  inner,
		cache:  NewCache(cfg),
		logger: logger.With().Str("component", "catalog-cache").Logger(),
	}
}

// Name returns the wrapped client's name.
func (c *CachedClient) Name() string {
	return c.inner.Name()
}

// IsConfigured reports whether the wrapped client is usable.
func (c *CachedClient) IsConfigured() bool {
	return c.inner.IsConfigured()
}

// Search returns cached search results when fresh.
func (c *CachedClient) Search(ctx context.Context, query string, limit int) ([]Series, error) {
	key := fmt.Sprintf("search:%s:%d", query, limit)
	if results, ok := c.cache.getSeriesList(key); ok {
		c.logger.Debug().Str("query", query).Msg("search cache hit")
		return results, nil
	}

	results, err := c.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, results)
	return results, nil
}

// GetSeasons returns the cached season listing when fresh.
func (c *CachedClient) GetSeasons(ctx context.Context, seriesID string) ([]Season, error) {
	key := "seasons:" + seriesID
	if seasons, ok := c.cache.getSeasonList(key); ok {
		c.logger.Debug().Str("seriesId", seriesID).Msg("seasons cache hit")
		return seasons, nil
	}

	seasons, err := c.inner.GetSeasons(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, seasons)
	return seasons, nil
}

// GetSeries returns the cached series detail when fresh.
func (c *CachedClient) GetSeries(ctx context.Context, seriesID string) (*SeriesDetail, error) {
	key := "series:" + seriesID
	if detail, ok := c.cache.getSeriesDetail(key); ok {
		c.logger.Debug().Str("seriesId", seriesID).Msg("series cache hit")
		return detail, nil
	}

	detail, err := c.inner.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, detail)
	return detail, nil
}

// SweepCache drops expired entries; wired to the maintenance scheduler.
func (c *CachedClient) SweepCache() int {
	removed := c.cache.Sweep()
	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Msg("swept expired catalog cache entries")
	}
	return removed
}

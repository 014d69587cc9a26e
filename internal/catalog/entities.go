package catalog

import (
	"context"

	"github.com/mmcdole/marquee/internal/domain"
)

// cachedFetch returns the cached value for key, or runs fetch once for all
// concurrent callers and caches a successful result.
func cachedFetch[T any](c *Cache, ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	if v, ok := c.entities[key]; ok {
		c.mu.Unlock()
		return v.(T), nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.Lock()
		epoch := c.epoch
		c.mu.Unlock()

		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			c.logger.Warn("catalog fetch failed", "key", key, "error", err)
			return v, err
		}
		c.mu.Lock()
		if c.epoch == epoch {
			c.entities[key] = v
		}
		c.mu.Unlock()
		return v, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Details returns the cached detail page for a title
func (c *Cache) Details(ctx context.Context, kind domain.MediaKind, id int) (*domain.MediaDetails, error) {
	return cachedFetch(c, ctx, entityKey(PrefixDetails, kind, id), func(ctx context.Context) (*domain.MediaDetails, error) {
		return c.client.Details(ctx, kind, id)
	})
}

// Similar returns the cached similar-titles page for a title
func (c *Cache) Similar(ctx context.Context, kind domain.MediaKind, id int) (*domain.CatalogPage, error) {
	return cachedFetch(c, ctx, entityKey(PrefixSimilar, kind, id), func(ctx context.Context) (*domain.CatalogPage, error) {
		return c.client.Similar(ctx, kind, id)
	})
}

// Videos returns the cached videos for a title
func (c *Cache) Videos(ctx context.Context, kind domain.MediaKind, id int) ([]domain.VideoRef, error) {
	return cachedFetch(c, ctx, entityKey(PrefixVideos, kind, id), func(ctx context.Context) ([]domain.VideoRef, error) {
		return c.client.Videos(ctx, kind, id)
	})
}

// Person returns the cached person details
func (c *Cache) Person(ctx context.Context, personID int) (*domain.PersonDetails, error) {
	return cachedFetch(c, ctx, entityKey(PrefixPerson, "", personID), func(ctx context.Context) (*domain.PersonDetails, error) {
		return c.client.PersonDetails(ctx, personID)
	})
}

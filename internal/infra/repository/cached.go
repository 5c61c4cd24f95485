package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/palimpsest-cms/palimpsest/internal/domain"
)

const publishedCacheTTL = 60 // seconds

// CachedVariantReader is a read-through memcached layer over published
// variant lookups, used by the public delivery path. Drafts are never
// cached. Invalidate must be called whenever a locale's published state
// changes.
type CachedVariantReader struct {
	inner *VariantRepository
	mc    *memcache.Client
}

func NewCachedVariantReader(inner *VariantRepository, mc *memcache.Client) *CachedVariantReader {
	return &CachedVariantReader{inner: inner, mc: mc}
}

func cacheKey(collection, documentID, locale string) string {
	return fmt.Sprintf("pub/%s/%s/%s", collection, documentID, locale)
}

// FindPublished serves from memcached when possible. Cache failures are
// logged and fall back to the database.
func (c *CachedVariantReader) FindPublished(ctx context.Context, collection, documentID, locale string) (domain.DocumentVariant, error) {
	key := cacheKey(collection, documentID, locale)

	item, err := c.mc.Get(key)
	if err == nil {
		var variant domain.DocumentVariant
		if err := json.Unmarshal(item.Value, &variant); err == nil {
			return variant, nil
		}
		// 壊れたキャッシュはDBから読み直す
	} else if err != memcache.ErrCacheMiss {
		slog.WarnContext(ctx, "memcached get failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	variant, err := c.inner.FindPublished(ctx, collection, documentID, locale)
	if err != nil {
		return domain.DocumentVariant{}, err
	}

	if encoded, err := json.Marshal(variant); err == nil {
		setErr := c.mc.Set(&memcache.Item{
			Key:        key,
			Value:      encoded,
			Expiration: publishedCacheTTL,
		})
		if setErr != nil {
			slog.WarnContext(ctx, "memcached set failed",
				slog.String("key", key),
				slog.String("error", setErr.Error()),
			)
		}
	}
	return variant, nil
}

// Invalidate drops the cached published variant for one locale.
func (c *CachedVariantReader) Invalidate(ctx context.Context, collection, documentID, locale string) {
	key := cacheKey(collection, documentID, locale)
	if err := c.mc.Delete(key); err != nil && err != memcache.ErrCacheMiss {
		slog.WarnContext(ctx, "memcached delete failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// InvalidateDocument drops every locale of a document from the cache.
func (c *CachedVariantReader) InvalidateDocument(ctx context.Context, collection, documentID string, locales []string) {
	for _, locale := range locales {
		c.Invalidate(ctx, collection, documentID, locale)
	}
}

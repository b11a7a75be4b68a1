package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-crmquery/core"
)

const profileAttributeCacheKeyPrefix = "go-crmquery::profile_attribute::v1"

// CachedProfileStore fronts a ProfileStore with a read-through cache. Writes
// go to the base store first and then evict the key.
type CachedProfileStore struct {
	base  core.ProfileStore
	cache repositorycache.CacheService
}

func NewCachedProfileStore(base core.ProfileStore, cacheService repositorycache.CacheService) (*CachedProfileStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base profile store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: profile cache service is required")
	}
	return &CachedProfileStore{base: base, cache: cacheService}, nil
}

// ProfileAttributeCacheKey is go-crmquery::profile_attribute::v1::<customer>::<name>
// with both segments URL-path escaped.
func ProfileAttributeCacheKey(customerID string, name string) (string, error) {
	customerID = strings.TrimSpace(customerID)
	name = normalizeAttributeName(name)
	if customerID == "" || name == "" {
		return "", fmt.Errorf("sqlstore: profile cache key requires customer id and attribute name")
	}
	return strings.Join([]string{
		profileAttributeCacheKeyPrefix,
		url.PathEscape(customerID),
		url.PathEscape(name),
	}, "::"), nil
}

func (s *CachedProfileStore) GetAttribute(ctx context.Context, customerID string, name string) (string, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", fmt.Errorf("sqlstore: cached profile store is not configured")
	}
	cacheKey, err := ProfileAttributeCacheKey(customerID, name)
	if err != nil {
		return "", nil
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (string, error) {
		return s.base.GetAttribute(ctx, customerID, name)
	})
}

func (s *CachedProfileStore) SetAttribute(ctx context.Context, customerID string, name string, value string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached profile store is not configured")
	}
	if err := s.base.SetAttribute(ctx, customerID, name, value); err != nil {
		return err
	}
	cacheKey, err := ProfileAttributeCacheKey(customerID, name)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}


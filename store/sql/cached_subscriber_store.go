package sqlstore

import (
	"context"
	"fmt"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/wildcatlabs/wildcat/core"
)

// subscriberListCacheKey is the single cache entry for the full
// destination list; the set is small and read on every message event.
const subscriberListCacheKey = "wildcat::webhook_subscribers::v1::all"

// CachedSubscriberStore keeps the subscriber list warm so the ingestion
// hot path does not hit the database per message. Writes invalidate.
type CachedSubscriberStore struct {
	base  core.SubscriberStore
	cache repositorycache.CacheService
}

func NewCachedSubscriberStore(
	base core.SubscriberStore,
	cacheService repositorycache.CacheService,
) (*CachedSubscriberStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base subscriber store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: subscriber cache service is required")
	}
	return &CachedSubscriberStore{base: base, cache: cacheService}, nil
}

func (s *CachedSubscriberStore) List(ctx context.Context) ([]core.Subscriber, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached subscriber store is not configured")
	}
	subscribers, err := repositorycache.GetOrFetch(ctx, s.cache, subscriberListCacheKey,
		func(ctx context.Context) ([]core.Subscriber, error) {
			fetched, fetchErr := s.base.List(ctx)
			if fetchErr != nil {
				return nil, fetchErr
			}
			return append([]core.Subscriber(nil), fetched...), nil
		})
	if err != nil {
		return nil, err
	}
	return append([]core.Subscriber(nil), subscribers...), nil
}

func (s *CachedSubscriberStore) UpsertByURL(ctx context.Context, url string) (core.Subscriber, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Subscriber{}, false, fmt.Errorf("sqlstore: cached subscriber store is not configured")
	}
	subscriber, created, err := s.base.UpsertByURL(ctx, url)
	if err != nil {
		return core.Subscriber{}, false, err
	}
	if created {
		if err := s.cache.Delete(ctx, subscriberListCacheKey); err != nil {
			return core.Subscriber{}, false, err
		}
	}
	return subscriber, created, nil
}

var _ core.SubscriberStore = (*CachedSubscriberStore)(nil)

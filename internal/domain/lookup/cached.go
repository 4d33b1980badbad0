package lookup

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medapp/medapp/internal/platform/cache"
)

// CachedService serves lookup lists from Redis, falling back to next on a
// miss or on any cache failure. Cache failures are logged, never returned.
type CachedService struct {
	next   Lister
	cache  *cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedService(next Lister, c *cache.Cache, ttl time.Duration, logger zerolog.Logger) *CachedService {
	return &CachedService{next: next, cache: c, ttl: ttl, logger: logger}
}

func (s *CachedService) Patients(ctx context.Context) ([]Item, error) {
	return s.load(ctx, KindPatients, s.next.Patients)
}

func (s *CachedService) Doctors(ctx context.Context) ([]Item, error) {
	return s.load(ctx, KindDoctors, s.next.Doctors)
}

func (s *CachedService) Medicines(ctx context.Context) ([]Item, error) {
	return s.load(ctx, KindMedicines, s.next.Medicines)
}

// Invalidate drops every cached list.
func (s *CachedService) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, cacheKey(KindPatients), cacheKey(KindDoctors), cacheKey(KindMedicines))
}

func cacheKey(kind Kind) string {
	return "lookup:" + string(kind)
}

func (s *CachedService) load(ctx context.Context, kind Kind, fetch func(context.Context) ([]Item, error)) ([]Item, error) {
	key := cacheKey(kind)

	var items []Item
	hit, err := s.cache.Get(ctx, key, &items)
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", string(kind)).Msg("lookup cache read failed")
	}
	if hit && items != nil {
		return items, nil
	}

	items, err = fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, items, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("kind", string(kind)).Msg("lookup cache write failed")
	}
	return items, nil
}

// Package identity is the read-mostly identity & role store consumed by
// the authorization engine. Lookups go through a short-TTL redis
// read-through cache; role changes and deactivations invalidate eagerly
// so a revoked actor does not stay authorized for a full TTL.
package identity

import (
	"context"
	"time"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/core/cache"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

const cacheTTL = 30 * time.Second

type Store struct {
	users domain.UserRepository
	cache *cache.Cache // nil disables caching
}

func NewStore(users domain.UserRepository, c *cache.Cache) *Store {
	return &Store{users: users, cache: c}
}

func cacheKey(id string) string { return "identity:" + id }

// Resolve returns (nil, nil) for an unknown identity.
func (s *Store) Resolve(ctx context.Context, actorID string) (*domain.User, error) {
	if actorID == "" {
		return nil, nil
	}
	if s.cache == nil {
		return s.users.FindByID(ctx, actorID)
	}
	return cache.GetOrLoadJSON[domain.User](s.cache, ctx, cacheKey(actorID), cacheTTL,
		func(ctx context.Context) (*domain.User, error) {
			return s.users.FindByID(ctx, actorID)
		})
}

// Invalidate drops the cached identity after an administrative mutation.
func (s *Store) Invalidate(ctx context.Context, actorID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, cacheKey(actorID))
	}
}

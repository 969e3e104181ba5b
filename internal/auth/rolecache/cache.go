package rolecache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spatial-studio/spatial-backend/internal/auth"
)

const (
	roleKeyPrefix = "gate:role:" // gate:role:{user_id}
	defaultTTL    = 5 * time.Minute
)

// CachedRoleStore fronts a RoleStore with a short-lived Redis cache so the
// gate does not hit Postgres on every request. Cache failures degrade to
// the inner store, never to an open gate.
type CachedRoleStore struct {
	client *redis.Client
	inner  auth.RoleStore
	ttl    time.Duration
}

func New(client *redis.Client, inner auth.RoleStore) *CachedRoleStore {
	return &CachedRoleStore{
		client: client,
		inner:  inner,
		ttl:    defaultTTL,
	}
}

func (s *CachedRoleStore) RoleFor(ctx context.Context, userID string) (string, error) {
	key := roleKeyPrefix + userID

	role, err := s.client.Get(ctx, key).Result()
	if err == nil && role != "" {
		return role, nil
	}
	if err != nil && err != redis.Nil {
		log.Printf("[warn] operation=role_cache_get user_id=%s error=%v", userID, err)
	}

	role, err = s.inner.RoleFor(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, key, role, s.ttl).Err(); err != nil {
		log.Printf("[warn] operation=role_cache_set user_id=%s error=%v", userID, err)
	}

	return role, nil
}

// Invalidate drops the cached role after an assignment change.
func (s *CachedRoleStore) Invalidate(ctx context.Context, userID string) error {
	return s.client.Del(ctx, roleKeyPrefix+userID).Err()
}

package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/redis/go-redis/v9"
)

// StatusCache stores reconciled entitlement statuses in Redis so that every
// replica answers tier gates from the same snapshot.
type StatusCache struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewStatusCache(rdb *redis.Client, keyPrefix string, ttl time.Duration) *StatusCache {
	if keyPrefix == "" {
		keyPrefix = "neko:entitlement:"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StatusCache{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (s *StatusCache) key(userID string) string { return s.keyNS + userID }

func (s *StatusCache) Put(ctx context.Context, userID string, st entitlements.Status) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(userID), b, s.ttl).Err()
}

func (s *StatusCache) Get(ctx context.Context, userID string) (entitlements.Status, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entitlements.Status{}, false, nil
	}
	if err != nil {
		return entitlements.Status{}, false, err
	}
	var st entitlements.Status
	if err := json.Unmarshal(val, &st); err != nil {
		return entitlements.Status{}, false, err
	}
	st.Tier = entitlements.Normalize(string(st.Tier))
	return st, true, nil
}

func (s *StatusCache) Del(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, s.key(userID)).Err()
}

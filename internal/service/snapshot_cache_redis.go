package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/orgstack/identity-admin/internal/authz"
	"github.com/redis/go-redis/v9"
)

// RedisSnapshotCache stores authorization snapshots in Redis. Invalidation
// bumps an epoch counter instead of scanning keys: the data key embeds the
// current global and per-user epochs, so a bump orphans stale entries and
// lets their TTL reclaim them.
type RedisSnapshotCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSnapshotCache(client redis.UniversalClient, prefix string) *RedisSnapshotCache {
	if prefix == "" {
		prefix = "authz_snapshot"
	}
	return &RedisSnapshotCache{client: client, prefix: prefix}
}

func (s *RedisSnapshotCache) Get(ctx context.Context, userID uint) (*authz.Snapshot, bool, error) {
	if s.client == nil {
		return nil, false, nil
	}
	key, err := s.dataKey(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap authz.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

func (s *RedisSnapshotCache) Set(ctx context.Context, userID uint, snap *authz.Snapshot, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	key, err := s.dataKey(ctx, userID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, ttl).Err()
}

func (s *RedisSnapshotCache) InvalidateUser(ctx context.Context, userID uint) error {
	if s.client == nil {
		return nil
	}
	return s.client.Incr(ctx, s.userEpochKey(userID)).Err()
}

func (s *RedisSnapshotCache) InvalidateAll(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Incr(ctx, s.globalEpochKey()).Err()
}

func (s *RedisSnapshotCache) dataKey(ctx context.Context, userID uint) (string, error) {
	globalEpoch, err := s.epoch(ctx, s.globalEpochKey())
	if err != nil {
		return "", err
	}
	userEpoch, err := s.epoch(ctx, s.userEpochKey(userID))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:data:g%d:u%d:user:%d", s.prefix, globalEpoch, userEpoch, userID), nil
}

func (s *RedisSnapshotCache) epoch(ctx context.Context, key string) (uint64, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(raw, 10, 64)
}

func (s *RedisSnapshotCache) globalEpochKey() string {
	return fmt.Sprintf("%s:epoch:global", s.prefix)
}

func (s *RedisSnapshotCache) userEpochKey(userID uint) string {
	return fmt.Sprintf("%s:epoch:user:%d", s.prefix, userID)
}

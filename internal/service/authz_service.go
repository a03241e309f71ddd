package service

import (
	"context"
	"fmt"
	"time"

	"github.com/orgstack/identity-admin/internal/authz"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
	"golang.org/x/sync/singleflight"
)

// SnapshotCache stores computed authorization snapshots keyed by user.
type SnapshotCache interface {
	Get(ctx context.Context, userID uint) (*authz.Snapshot, bool, error)
	Set(ctx context.Context, userID uint, snap *authz.Snapshot, ttl time.Duration) error
	SnapshotInvalidator
}

// AuthzService answers capability checks for the HTTP layer and the message
// broker. Snapshots are cached with a short TTL; concurrent misses for the
// same user collapse into one database load via singleflight.
type AuthzService struct {
	resolver *authz.Resolver
	userRepo repository.UserRepository
	cache    SnapshotCache
	ttl      time.Duration
	sf       singleflight.Group
}

func NewAuthzService(resolver *authz.Resolver, userRepo repository.UserRepository, cache SnapshotCache, ttl time.Duration) *AuthzService {
	return &AuthzService{resolver: resolver, userRepo: userRepo, cache: cache, ttl: ttl}
}

// Can reports whether the user holds the capability. A missing user yields
// repository.ErrUserNotFound rather than a silent deny so callers can tell
// staleness apart from refusal.
func (s *AuthzService) Can(ctx context.Context, userID uint, capability string) (bool, error) {
	start := time.Now()
	snap, err := s.SnapshotFor(ctx, userID)
	if err != nil {
		observability.RecordAuthzResolution(ctx, capability, "error", time.Since(start))
		return false, err
	}
	allowed := s.resolver.Resolve(snap, capability)
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	observability.RecordAuthzResolution(ctx, capability, outcome, time.Since(start))
	return allowed, nil
}

// Privileged reports whether the user may read administrative topics.
func (s *AuthzService) Privileged(ctx context.Context, userID uint) (bool, error) {
	snap, err := s.SnapshotFor(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.resolver.Privileged(snap), nil
}

// SnapshotFor returns the user's authorization snapshot, from cache when
// fresh.
func (s *AuthzService) SnapshotFor(ctx context.Context, userID uint) (*authz.Snapshot, error) {
	if s.cache != nil && s.ttl > 0 {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err == nil && ok {
			observability.RecordAuthzSnapshotCacheEvent(ctx, "hit")
			return cached, nil
		}
	}

	sfKey := fmt.Sprintf("authzsnap:user:%d", userID)
	result, err, shared := s.sf.Do(sfKey, func() (interface{}, error) {
		if s.cache != nil && s.ttl > 0 {
			cached, ok, err := s.cache.Get(ctx, userID)
			if err == nil && ok {
				return cached, nil
			}
		}
		user, err := s.userRepo.FindByID(userID)
		if err != nil {
			return nil, err
		}
		snap := authz.SnapshotForUser(user)
		if s.cache != nil && s.ttl > 0 {
			_ = s.cache.Set(ctx, userID, snap, s.ttl)
		}
		return snap, nil
	})
	if shared {
		observability.RecordAuthzSnapshotCacheEvent(ctx, "singleflight_shared")
	} else {
		observability.RecordAuthzSnapshotCacheEvent(ctx, "singleflight_leader")
	}
	if err != nil {
		return nil, err
	}
	snap, ok := result.(*authz.Snapshot)
	if !ok {
		return nil, fmt.Errorf("invalid snapshot result type")
	}
	return snap, nil
}

func (s *AuthzService) InvalidateUser(ctx context.Context, userID uint) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateUser(ctx, userID)
}

func (s *AuthzService) InvalidateAll(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateAll(ctx)
}

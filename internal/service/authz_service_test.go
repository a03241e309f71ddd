package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/authz"
	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/repository"
)

func newAuthzServiceForTest(t *testing.T, ttl time.Duration) (*AuthzService, *gorm.DB, *RedisSnapshotCache) {
	t.Helper()
	db := newServiceDBForTest(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisSnapshotCache(client, "authz_snapshot_test")
	resolver := authz.NewResolver(authz.Config{
		SuperRole:        "Super Admin",
		PrivilegedGroups: []string{"Administrators"},
	})
	return NewAuthzService(resolver, repository.NewUserRepository(db), cache, ttl), db, cache
}

func grantCapability(t *testing.T, db *gorm.DB, user *domain.User, capability string) {
	t.Helper()
	perm := &domain.Permission{Name: capability, GuardName: "web"}
	if err := db.Create(perm).Error; err != nil {
		t.Fatalf("create permission: %v", err)
	}
	role := &domain.Role{Name: "Holder-" + capability, GuardName: "web", Permissions: []domain.Permission{*perm}}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := db.Create(&domain.UserRole{UserID: user.ID, RoleID: role.ID}).Error; err != nil {
		t.Fatalf("assign role: %v", err)
	}
}

func TestCanResolvesRolePermission(t *testing.T) {
	svc, db, _ := newAuthzServiceForTest(t, 30*time.Second)
	user := createTestUser(t, db, "alice")
	grantCapability(t, db, user, "users.view")

	allowed, err := svc.Can(context.Background(), user.ID, "users.view")
	if err != nil {
		t.Fatalf("can: %v", err)
	}
	if !allowed {
		t.Fatal("expected allow via role permission")
	}

	denied, err := svc.Can(context.Background(), user.ID, "users.delete")
	if err != nil {
		t.Fatalf("can: %v", err)
	}
	if denied {
		t.Fatal("expected deny for unheld capability")
	}
}

func TestCanUnknownUserIsErrorNotDeny(t *testing.T) {
	svc, _, _ := newAuthzServiceForTest(t, 30*time.Second)

	_, err := svc.Can(context.Background(), 999, "users.view")
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSnapshotServedFromCacheUntilInvalidated(t *testing.T) {
	svc, db, _ := newAuthzServiceForTest(t, time.Minute)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")
	grantCapability(t, db, user, "users.view")

	allowed, err := svc.Can(ctx, user.ID, "users.view")
	if err != nil || !allowed {
		t.Fatalf("initial resolve: allowed=%v err=%v", allowed, err)
	}

	// The pivot row is gone but the cached snapshot still answers.
	if err := db.Where("user_id = ?", user.ID).Delete(&domain.UserRole{}).Error; err != nil {
		t.Fatalf("drop role: %v", err)
	}
	allowed, err = svc.Can(ctx, user.ID, "users.view")
	if err != nil {
		t.Fatalf("cached resolve: %v", err)
	}
	if !allowed {
		t.Fatal("expected stale cache to still allow")
	}

	if err := svc.InvalidateUser(ctx, user.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	allowed, err = svc.Can(ctx, user.ID, "users.view")
	if err != nil {
		t.Fatalf("fresh resolve: %v", err)
	}
	if allowed {
		t.Fatal("expected deny after invalidation forced a reload")
	}
}

func TestInvalidateAllDropsEveryUser(t *testing.T) {
	svc, db, _ := newAuthzServiceForTest(t, time.Minute)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")
	grantCapability(t, db, user, "users.view")

	if _, err := svc.Can(ctx, user.ID, "users.view"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := db.Where("user_id = ?", user.ID).Delete(&domain.UserRole{}).Error; err != nil {
		t.Fatalf("drop role: %v", err)
	}
	if err := svc.InvalidateAll(ctx); err != nil {
		t.Fatalf("invalidate all: %v", err)
	}

	allowed, err := svc.Can(ctx, user.ID, "users.view")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if allowed {
		t.Fatal("expected global invalidation to force a reload")
	}
}

func TestPrivilegedGroupMember(t *testing.T) {
	svc, db, _ := newAuthzServiceForTest(t, 0)
	ctx := context.Background()

	group := &domain.Group{Name: "Administrators"}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	user := &domain.User{Username: "root", Name: "Root", Status: domain.UserStatusActive, GroupID: &group.ID}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	privileged, err := svc.Privileged(ctx, user.ID)
	if err != nil {
		t.Fatalf("privileged: %v", err)
	}
	if !privileged {
		t.Fatal("group member should be privileged")
	}
	allowed, err := svc.Can(ctx, user.ID, "anything.at.all")
	if err != nil || !allowed {
		t.Fatalf("expected default-allow for privileged member, allowed=%v err=%v", allowed, err)
	}
}

func TestConcurrentMissesCollapse(t *testing.T) {
	svc, db, _ := newAuthzServiceForTest(t, time.Minute)
	user := createTestUser(t, db, "alice")
	grantCapability(t, db, user, "users.view")

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SnapshotFor(context.Background(), user.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent snapshot: %v", err)
	}
}

func TestRedisSnapshotCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisSnapshotCache(client, "")
	ctx := context.Background()

	snap := &authz.Snapshot{UserID: 7, RoleNames: []string{"Admin"}, RolePermissions: []string{"users.view"}}
	if err := cache.Set(ctx, 7, snap, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := cache.Get(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.UserID != 7 || len(got.RolePermissions) != 1 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	if err := cache.InvalidateUser(ctx, 7); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, err := cache.Get(ctx, 7); err != nil || ok {
		t.Fatalf("expected miss after epoch bump, ok=%v err=%v", ok, err)
	}
}

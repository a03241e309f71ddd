package service

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/repository"
)

func newRoleServiceForTest(t *testing.T) (*RoleService, *gorm.DB, *capturePublisher, *captureInvalidator) {
	t.Helper()
	db := newServiceDBForTest(t)
	pub := &capturePublisher{}
	inv := &captureInvalidator{}
	svc := NewRoleService(db, repository.NewRoleRepository(db), repository.NewPermissionRepository(db), pub, inv, nil)
	return svc, db, pub, inv
}

func createTestPermissions(t *testing.T, db *gorm.DB, names ...string) []uint {
	t.Helper()
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		perm := &domain.Permission{Name: name, GuardName: "web"}
		if err := db.Create(perm).Error; err != nil {
			t.Fatalf("create permission %s: %v", name, err)
		}
		ids = append(ids, perm.ID)
	}
	return ids
}

func rolePayloadFromEvent(t *testing.T, pub *capturePublisher, ev publishedEvent) map[string]any {
	t.Helper()
	payload := pub.payloadJSON(t, ev)
	role, ok := payload["role"].(map[string]any)
	if !ok {
		t.Fatalf("expected role payload, got %v", payload)
	}
	return role
}

func TestCreateRolePublishesCreated(t *testing.T) {
	svc, db, pub, _ := newRoleServiceForTest(t)
	perms := createTestPermissions(t, db, "users.view")

	role, err := svc.Create(context.Background(), "Editor", "content editors", perms)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if len(role.Permissions) != 1 {
		t.Fatalf("expected one permission attached, got %d", len(role.Permissions))
	}

	ev := pub.lastEvent(t)
	if ev.Event != notify.EventRoleCreated || ev.Topic != notify.TopicAdmin {
		t.Fatalf("expected %s on admin topic, got %s on %s", notify.EventRoleCreated, ev.Event, ev.Topic)
	}
}

func TestCreateRoleRequiresName(t *testing.T) {
	svc, _, _, _ := newRoleServiceForTest(t)

	if _, err := svc.Create(context.Background(), "  ", "", nil); !errors.Is(err, ErrRoleNameRequired) {
		t.Fatalf("expected ErrRoleNameRequired, got %v", err)
	}
}

func TestDetachPublishesFullRemainingList(t *testing.T) {
	svc, db, pub, _ := newRoleServiceForTest(t)
	ctx := context.Background()
	perms := createTestPermissions(t, db, "users.view", "users.create", "users.delete")

	role, err := svc.Create(ctx, "Editor", "", perms)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	updated, err := svc.DetachPermissions(ctx, role.ID, perms[:1])
	if err != nil {
		t.Fatalf("detach: %v", err)
	}
	if len(updated.Permissions) != 2 {
		t.Fatalf("expected two remaining permissions, got %d", len(updated.Permissions))
	}

	ev := pub.lastEvent(t)
	if ev.Event != notify.EventRolePermissionsUpdated {
		t.Fatalf("expected %s, got %s", notify.EventRolePermissionsUpdated, ev.Event)
	}
	payload := rolePayloadFromEvent(t, pub, ev)
	if payload["permissions_count"] != float64(2) {
		t.Fatalf("expected permissions_count 2, got %v", payload["permissions_count"])
	}
	list, ok := payload["permissions"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("payload must carry the full remaining list, got %v", payload["permissions"])
	}
}

func TestSyncIsIdempotentAndRepublishes(t *testing.T) {
	svc, db, pub, _ := newRoleServiceForTest(t)
	ctx := context.Background()
	perms := createTestPermissions(t, db, "users.view", "users.create")

	role, err := svc.Create(ctx, "Editor", "", nil)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	first, err := svc.SyncPermissions(ctx, role.ID, perms)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	firstEv := pub.lastEvent(t)

	second, err := svc.SyncPermissions(ctx, role.ID, perms)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	secondEv := pub.lastEvent(t)

	if len(first.Permissions) != len(second.Permissions) {
		t.Fatalf("identical sync changed the stored set: %d vs %d", len(first.Permissions), len(second.Permissions))
	}
	firstPerms, _ := json.Marshal(rolePayloadFromEvent(t, pub, firstEv)["permissions"])
	secondPerms, _ := json.Marshal(rolePayloadFromEvent(t, pub, secondEv)["permissions"])
	if !reflect.DeepEqual(firstPerms, secondPerms) {
		t.Fatalf("expected identical payloads: %s vs %s", firstPerms, secondPerms)
	}
}

func TestSyncEmptyClearsPermissions(t *testing.T) {
	svc, db, _, _ := newRoleServiceForTest(t)
	ctx := context.Background()
	perms := createTestPermissions(t, db, "users.view")

	role, err := svc.Create(ctx, "Editor", "", perms)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	cleared, err := svc.SyncPermissions(ctx, role.ID, nil)
	if err != nil {
		t.Fatalf("sync empty: %v", err)
	}
	if len(cleared.Permissions) != 0 {
		t.Fatalf("expected empty permission set, got %d", len(cleared.Permissions))
	}
}

func TestAttachUnknownPermissionRejected(t *testing.T) {
	svc, _, _, _ := newRoleServiceForTest(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "Editor", "", nil)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if _, err := svc.AttachPermissions(ctx, role.ID, []uint{404}); !errors.Is(err, repository.ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
}

func TestPivotMutationUnknownRole(t *testing.T) {
	svc, _, _, _ := newRoleServiceForTest(t)

	if _, err := svc.SyncPermissions(context.Background(), 404, nil); !errors.Is(err, repository.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestDeleteRoleInvalidatesHolders(t *testing.T) {
	svc, db, pub, inv := newRoleServiceForTest(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "Editor", "", nil)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	holder := createTestUser(t, db, "alice")
	if err := db.Create(&domain.UserRole{UserID: holder.ID, RoleID: role.ID}).Error; err != nil {
		t.Fatalf("assign role: %v", err)
	}

	if err := svc.Delete(ctx, role.ID); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	if len(inv.users) == 0 || inv.users[len(inv.users)-1] != holder.ID {
		t.Fatalf("expected holder %d invalidated, got %v", holder.ID, inv.users)
	}

	ev := pub.lastEvent(t)
	if ev.Event != notify.EventRoleDeleted {
		t.Fatalf("expected %s, got %s", notify.EventRoleDeleted, ev.Event)
	}
	payload := pub.payloadJSON(t, ev)
	deleted, ok := payload["role"].(map[string]any)
	if !ok || deleted["name"] != "Editor" {
		t.Fatalf("expected identifying payload, got %v", payload)
	}
}

func TestPivotMutationInvalidatesHolders(t *testing.T) {
	svc, db, _, inv := newRoleServiceForTest(t)
	ctx := context.Background()
	perms := createTestPermissions(t, db, "users.view")

	role, err := svc.Create(ctx, "Editor", "", nil)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	holder := createTestUser(t, db, "alice")
	if err := db.Create(&domain.UserRole{UserID: holder.ID, RoleID: role.ID}).Error; err != nil {
		t.Fatalf("assign role: %v", err)
	}

	if _, err := svc.AttachPermissions(ctx, role.ID, perms); err != nil {
		t.Fatalf("attach: %v", err)
	}
	found := false
	for _, id := range inv.users {
		if id == holder.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected holder %d in invalidations, got %v", holder.ID, inv.users)
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/repository"
)

func newGroupServiceForTest(t *testing.T) (*GroupService, *gorm.DB, *capturePublisher, *captureInvalidator) {
	t.Helper()
	db := newServiceDBForTest(t)
	pub := &capturePublisher{}
	inv := &captureInvalidator{}
	return NewGroupService(repository.NewGroupRepository(db), pub, inv, nil), db, pub, inv
}

func TestGroupRenameInvalidatesMembers(t *testing.T) {
	svc, db, pub, inv := newGroupServiceForTest(t)
	ctx := context.Background()

	group, err := svc.Create(ctx, "Webmaster", "")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	member := createTestUser(t, db, "alice")
	if err := db.Model(member).Update("group_id", group.ID).Error; err != nil {
		t.Fatalf("join group: %v", err)
	}

	if _, err := svc.Update(ctx, group.ID, "Operators", ""); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if len(inv.users) == 0 || inv.users[len(inv.users)-1] != member.ID {
		t.Fatalf("expected member %d invalidated, got %v", member.ID, inv.users)
	}
	ev := pub.lastEvent(t)
	if ev.Event != notify.EventGroupUpdated || ev.Topic != notify.TopicAdmin {
		t.Fatalf("expected %s on admin topic, got %s on %s", notify.EventGroupUpdated, ev.Event, ev.Topic)
	}
	payload := pub.payloadJSON(t, ev)
	grp, ok := payload["group"].(map[string]any)
	if !ok || grp["name"] != "Operators" {
		t.Fatalf("payload must carry the new name, got %v", payload)
	}
}

func TestGroupDeleteSweepsMembersFirst(t *testing.T) {
	svc, db, pub, inv := newGroupServiceForTest(t)
	ctx := context.Background()

	group, err := svc.Create(ctx, "Webmaster", "")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	member := createTestUser(t, db, "alice")
	if err := db.Model(member).Update("group_id", group.ID).Error; err != nil {
		t.Fatalf("join group: %v", err)
	}

	if err := svc.Delete(ctx, group.ID); err != nil {
		t.Fatalf("delete group: %v", err)
	}

	if len(inv.users) == 0 || inv.users[len(inv.users)-1] != member.ID {
		t.Fatalf("expected member %d invalidated despite nulled group_id, got %v", member.ID, inv.users)
	}
	ev := pub.lastEvent(t)
	if ev.Event != notify.EventGroupDeleted {
		t.Fatalf("expected %s, got %s", notify.EventGroupDeleted, ev.Event)
	}
}

func TestGroupDeleteUnknown(t *testing.T) {
	svc, _, _, _ := newGroupServiceForTest(t)

	if err := svc.Delete(context.Background(), 404); !errors.Is(err, repository.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestGroupDeleteDetachesMembers(t *testing.T) {
	svc, db, _, _ := newGroupServiceForTest(t)
	ctx := context.Background()

	group, err := svc.Create(ctx, "Webmaster", "")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	member := createTestUser(t, db, "alice")
	if err := db.Model(member).Update("group_id", group.ID).Error; err != nil {
		t.Fatalf("join group: %v", err)
	}

	if err := svc.Delete(ctx, group.ID); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	var reloaded domain.User
	if err := db.First(&reloaded, member.ID).Error; err != nil {
		t.Fatalf("reload member: %v", err)
	}
	if reloaded.GroupID != nil {
		t.Fatalf("expected member detached from deleted group, got %v", *reloaded.GroupID)
	}
}

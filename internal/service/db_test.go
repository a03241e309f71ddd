package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/orgstack/identity-admin/internal/domain"
)

var testDBCounter int

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", testDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Group{},
		&domain.Role{},
		&domain.Permission{},
		&domain.UserRole{},
		&domain.RolePermission{},
		&domain.UserPermission{},
		&domain.Email{},
		&domain.Phone{},
		&domain.Category{},
		&domain.CategoryAssignment{},
		&domain.Theme{},
		&domain.Credential{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, Name: username, Status: domain.UserStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

type publishedEvent struct {
	Topic   string
	Event   string
	Payload any
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	events []publishedEvent
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, topic, event string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{Topic: topic, Event: event, Payload: payload})
	return nil
}

func (p *capturePublisher) lastEvent(t *testing.T) publishedEvent {
	t.Helper()
	if len(p.events) == 0 {
		t.Fatal("expected at least one published event")
	}
	return p.events[len(p.events)-1]
}

func (p *capturePublisher) payloadJSON(t *testing.T, ev publishedEvent) map[string]any {
	t.Helper()
	raw, err := json.Marshal(ev.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return out
}

// captureInvalidator records snapshot invalidation calls.
type captureInvalidator struct {
	users []uint
	all   int
}

func (c *captureInvalidator) InvalidateUser(ctx context.Context, userID uint) error {
	c.users = append(c.users, userID)
	return nil
}

func (c *captureInvalidator) InvalidateAll(ctx context.Context) error {
	c.all++
	return nil
}

// Package notify fans out access-control change events to subscribers.
//
// Every payload is a fully materialized snapshot of the changed entity, not
// a delta, so a subscriber that missed an event is resynchronized by the
// next one it receives. Publication is best-effort: a failed publish is
// logged and swallowed, never allowed to fail the data mutation it follows.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orgstack/identity-admin/internal/domain"
)

// Topics. TopicAdmin is restricted to super-role or privileged-group
// principals; the per-user topics deliver only to the owning principal.
const (
	TopicAdmin = "admin"
)

func UserTopic(userID uint) string          { return fmt.Sprintf("user.%d", userID) }
func NotificationsTopic(userID uint) string { return fmt.Sprintf("notifications.%d", userID) }

// Event names on the wire. The client mirror keys off these exact strings.
const (
	EventRoleCreated            = "role.created"
	EventRoleUpdated            = "role.updated"
	EventRoleDeleted            = "role.deleted"
	EventRolePermissionsUpdated = "role.permissions.updated"
	EventPermissionCreated      = "permission.created"
	EventPermissionUpdated      = "permission.updated"
	EventPermissionDeleted      = "permission.deleted"
	EventGroupUpdated           = "group.updated"
	EventGroupDeleted           = "group.deleted"
	EventCategoryUpdated        = "category.updated"
	EventCategoryDeleted        = "category.deleted"
	EventUserCreated            = "user.created"
	EventUserUpdated            = "user.updated"
	EventUserStatusChanged      = "user.status.changed"
	EventUserGrantsUpdated      = "user.grants.updated"
	EventThemeDefaultChanged    = "theme.default.changed"
)

// Envelope is the wire frame around every event.
type Envelope struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	Event       string          `json:"event"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

func NewEnvelope(topic, event string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{
		ID:          uuid.NewString(),
		Topic:       topic,
		Event:       event,
		Payload:     raw,
		PublishedAt: time.Now().UTC(),
	}, nil
}

// Publisher delivers an event to all active subscribers of topic,
// at-least-once. Callers treat it as fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, topic, event string, payload any) error
}

// Subscriber is the receive side of the transport.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan Envelope, func(), error)
}

// RolePayload carries the role's complete current permission list, not the
// diff that triggered the event.
func RolePayload(role *domain.Role) map[string]any {
	perms := make([]map[string]any, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		perms = append(perms, map[string]any{
			"id":         p.ID,
			"name":       p.Name,
			"guard_name": p.GuardName,
		})
	}
	return map[string]any{
		"role": map[string]any{
			"id":                role.ID,
			"name":              role.Name,
			"guard_name":        role.GuardName,
			"permissions":       perms,
			"permissions_count": len(perms),
			"updated_at":        role.UpdatedAt,
		},
	}
}

// DeletedPayload is the minimal identifying shape shared by every
// <entity>.deleted event.
func DeletedPayload(entity string, id uint, name string) map[string]any {
	return map[string]any{
		entity: map[string]any{"id": id, "name": name},
	}
}

func GroupPayload(group *domain.Group) map[string]any {
	return map[string]any{
		"group": map[string]any{
			"id":         group.ID,
			"name":       group.Name,
			"updated_at": group.UpdatedAt,
		},
	}
}

func CategoryPayload(category *domain.Category) map[string]any {
	return map[string]any{
		"category": map[string]any{
			"id":         category.ID,
			"name":       category.Name,
			"updated_at": category.UpdatedAt,
		},
	}
}

func PermissionPayload(perm *domain.Permission) map[string]any {
	return map[string]any{
		"permission": map[string]any{
			"id":         perm.ID,
			"name":       perm.Name,
			"guard_name": perm.GuardName,
			"updated_at": perm.UpdatedAt,
		},
	}
}

func ThemePayload(theme *domain.Theme) map[string]any {
	return map[string]any{
		"theme": map[string]any{
			"id":         theme.ID,
			"name":       theme.Name,
			"slug":       theme.Slug,
			"is_default": theme.IsDefault,
			"updated_at": theme.UpdatedAt,
		},
	}
}

// UserPayload flattens the user's resolver-relevant state: group, role names
// and direct grants, so a mirror can replace all slices from one event.
func UserPayload(user *domain.User) map[string]any {
	roleNames := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roleNames = append(roleNames, r.Name)
	}
	grants := make([]map[string]any, 0, len(user.DirectGrants))
	for _, g := range user.DirectGrants {
		grants = append(grants, map[string]any{
			"name":     g.Permission.Name,
			"negative": g.Negative,
		})
	}
	groupID := uint(0)
	if user.GroupID != nil {
		groupID = *user.GroupID
	}
	return map[string]any{
		"user": map[string]any{
			"id":            user.ID,
			"username":      user.Username,
			"status":        user.Status,
			"group_id":      groupID,
			"group_name":    user.GroupName(),
			"role_names":    roleNames,
			"direct_grants": grants,
			"updated_at":    user.UpdatedAt,
		},
	}
}

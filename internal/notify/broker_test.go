package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/orgstack/identity-admin/internal/authz"
)

var brokerPolicy = authz.Config{
	SuperRole:        "Super Admin",
	PrivilegedGroups: []string{"Administrators", "Webmaster"},
}

func newBrokerForTest(t *testing.T) (*Broker, *RedisNotifier) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	n := NewRedisNotifier(client, "test_events", nil)
	return NewBroker(n, authz.NewResolver(brokerPolicy)), n
}

func TestBrokerAdminTopicAuthorization(t *testing.T) {
	b, _ := newBrokerForTest(t)

	cases := []struct {
		name string
		snap *authz.Snapshot
		want bool
	}{
		{"nil principal", nil, false},
		{"super role", &authz.Snapshot{UserID: 1, RoleNames: []string{"Super Admin"}}, true},
		{"privileged group", &authz.Snapshot{UserID: 2, GroupName: "Webmaster"}, true},
		{"ordinary user", &authz.Snapshot{UserID: 3, RoleNames: []string{"Editor"}}, false},
		{"ordinary group", &authz.Snapshot{UserID: 4, GroupName: "Editors"}, false},
	}
	for _, tc := range cases {
		if got := b.Authorize(tc.snap, TopicAdmin); got != tc.want {
			t.Fatalf("%s: Authorize(admin) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBrokerUserTopicOwnership(t *testing.T) {
	b, _ := newBrokerForTest(t)

	owner := &authz.Snapshot{UserID: 42}
	other := &authz.Snapshot{UserID: 43}

	if !b.Authorize(owner, UserTopic(42)) {
		t.Fatalf("owner must be allowed on its own topic")
	}
	if !b.Authorize(owner, NotificationsTopic(42)) {
		t.Fatalf("owner must be allowed on its notifications topic")
	}
	if b.Authorize(other, UserTopic(42)) {
		t.Fatalf("non-owner must be denied on a private topic")
	}
	if b.Authorize(owner, "user.notanumber") {
		t.Fatalf("malformed topic must be denied")
	}
	if b.Authorize(owner, "unknown.topic") {
		t.Fatalf("unknown topic must be denied")
	}
}

func TestBrokerSubscribeForbidden(t *testing.T) {
	b, _ := newBrokerForTest(t)
	_, err := b.Subscribe(context.Background(), &authz.Snapshot{UserID: 3}, TopicAdmin)
	if !errors.Is(err, ErrTopicForbidden) {
		t.Fatalf("expected ErrTopicForbidden, got %v", err)
	}
}

func TestBrokerSubscribeIsIdempotent(t *testing.T) {
	b, n := newBrokerForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap := &authz.Snapshot{UserID: 1, RoleNames: []string{"Super Admin"}}
	first, err := b.Subscribe(ctx, snap, TopicAdmin)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	second, err := b.Subscribe(ctx, snap, TopicAdmin)
	if err != nil {
		t.Fatalf("re-subscribe: %v", err)
	}
	if first != second {
		t.Fatalf("re-subscribing the same pair must return the existing channel")
	}

	if err := n.Publish(ctx, TopicAdmin, EventRoleCreated, map[string]any{"role": map[string]any{"id": 1, "name": "Editor"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case env := <-first:
		if env.Event != EventRoleCreated {
			t.Fatalf("unexpected event %q", env.Event)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for event")
	}

	b.Unsubscribe(1, TopicAdmin)
	b.Unsubscribe(1, TopicAdmin) // no-op
}

// The mirror keys off literal event names; keep both sides of the wire
// contract from drifting apart.
func TestEventNamesMatchMirrorContract(t *testing.T) {
	pairs := map[string]string{
		EventRolePermissionsUpdated: authz.EventRolePermissionsUpdated,
		EventRoleDeleted:            authz.EventRoleDeleted,
		EventGroupUpdated:           authz.EventGroupUpdated,
		EventGroupDeleted:           authz.EventGroupDeleted,
		EventUserUpdated:            authz.EventUserUpdated,
		EventUserGrantsUpdated:      authz.EventUserGrantsUpdated,
	}
	for server, client := range pairs {
		if server != client {
			t.Fatalf("event name drift: server %q vs mirror %q", server, client)
		}
	}
}

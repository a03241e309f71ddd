package notify

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/orgstack/identity-admin/internal/authz"
)

var ErrTopicForbidden = errors.New("principal may not subscribe to topic")

// Broker gates topic subscriptions behind the resolver's group/role logic
// and keeps subscribe idempotent: re-subscribing an already-subscribed
// (principal, topic) pair is a no-op returning the existing channel.
type Broker struct {
	transport Subscriber
	resolver  *authz.Resolver

	mu   sync.Mutex
	subs map[string]*subscription
}

type subscription struct {
	ch     <-chan Envelope
	cancel func()
}

func NewBroker(transport Subscriber, resolver *authz.Resolver) *Broker {
	return &Broker{
		transport: transport,
		resolver:  resolver,
		subs:      make(map[string]*subscription),
	}
}

// Authorize decides whether the principal may receive events on topic.
// The admin topic requires super-role or privileged-group membership; the
// per-user topics are deliverable only to the owning principal. Unknown
// topics are denied.
func (b *Broker) Authorize(snap *authz.Snapshot, topic string) bool {
	if snap == nil {
		return false
	}
	if topic == TopicAdmin {
		return b.resolver.Privileged(snap)
	}
	if owner, ok := topicOwner(topic); ok {
		return owner == snap.UserID
	}
	return false
}

func topicOwner(topic string) (uint, bool) {
	for _, prefix := range []string{"user.", "notifications."} {
		if rest, ok := strings.CutPrefix(topic, prefix); ok {
			id, err := strconv.ParseUint(rest, 10, 64)
			if err != nil {
				return 0, false
			}
			return uint(id), true
		}
	}
	return 0, false
}

func (b *Broker) Subscribe(ctx context.Context, snap *authz.Snapshot, topic string) (<-chan Envelope, error) {
	if !b.Authorize(snap, topic) {
		return nil, ErrTopicForbidden
	}
	key := subscriptionKey(snap.UserID, topic)

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.subs[key]; ok {
		return existing.ch, nil
	}
	ch, cancel, err := b.transport.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	b.subs[key] = &subscription{ch: ch, cancel: cancel}
	return ch, nil
}

// Unsubscribe is idempotent; unsubscribing a pair that is not subscribed is
// a no-op.
func (b *Broker) Unsubscribe(userID uint, topic string) {
	key := subscriptionKey(userID, topic)
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[key]; ok {
		sub.cancel()
		delete(b.subs, key)
	}
}

func subscriptionKey(userID uint, topic string) string {
	return strconv.FormatUint(uint64(userID), 10) + "|" + topic
}

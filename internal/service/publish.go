package service

import (
	"context"
	"log/slog"

	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/observability"
)

// publishEvent emits a change event after the enclosing transaction has
// committed. Publication is best-effort: the committed mutation is the
// source of truth and a transiently stale mirror beats a failed admin
// action, so errors are logged and swallowed.
func publishEvent(ctx context.Context, pub notify.Publisher, logger *slog.Logger, topic, event string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, topic, event, payload); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "event publish failed", "topic", topic, "event", event, "error", err)
		}
		observability.RecordNotifierPublish(ctx, event, "error")
		return
	}
	observability.RecordNotifierPublish(ctx, event, "success")
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/orgstack/identity-admin/internal/http/middleware"
	"github.com/orgstack/identity-admin/internal/http/response"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/service"
)

// EventsHandler streams change notifications over SSE. The broker decides
// whether the caller may attach to the requested topic; absent a topic
// parameter the caller is attached to their own user topic.
type EventsHandler struct {
	broker   *notify.Broker
	authzSvc service.AuthzServiceInterface
}

func NewEventsHandler(broker *notify.Broker, authzSvc service.AuthzServiceInterface) *EventsHandler {
	return &EventsHandler{broker: broker, authzSvc: authzSvc}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "streaming unsupported", nil)
		return
	}

	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = notify.UserTopic(userID)
	}

	snap, err := h.authzSvc.SnapshotFor(r.Context(), userID)
	if err != nil {
		observability.RecordBrokerSubscription(r.Context(), "error")
		writeServiceError(w, r, err)
		return
	}

	ch, err := h.broker.Subscribe(r.Context(), snap, topic)
	if err != nil {
		if errors.Is(err, notify.ErrTopicForbidden) {
			observability.RecordBrokerSubscription(r.Context(), "denied")
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "subscription not permitted", map[string]any{"topic": topic})
			return
		}
		observability.RecordBrokerSubscription(r.Context(), "error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "subscription failed", nil)
		return
	}
	observability.RecordBrokerSubscription(r.Context(), "subscribed")
	defer h.broker.Unsubscribe(userID, topic)

	// The server-wide write timeout would cut the stream; lift it for this
	// connection only.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case env, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Event, data)
			flusher.Flush()
		}
	}
}

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHealthEndpointsAndSecurityHeaders(t *testing.T) {
	baseURL, client, closeFn := newTestServer(t)
	defer closeFn()

	resp, env := doJSON(t, client, http.MethodGet, baseURL+"/health/live", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("liveness: status=%d error=%+v", resp.StatusCode, env.Error)
	}
	var live map[string]string
	if err := json.Unmarshal(env.Data, &live); err != nil {
		t.Fatalf("decode liveness: %v", err)
	}
	if live["status"] != "ok" {
		t.Fatalf("expected ok, got %q", live["status"])
	}

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected DENY, got %q", got)
	}
	resp, _ = doJSON(t, client, http.MethodGet, baseURL+"/health/ready", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readiness: status=%d", resp.StatusCode)
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	baseURL, client, closeFn := newTestServer(t)
	defer closeFn()

	resp, env := doJSON(t, client, http.MethodGet, baseURL+"/api/v1/nope", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected the NOT_FOUND envelope on unknown routes, got %+v", env.Error)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("expected a JSON 404, got %q", ct)
	}
}

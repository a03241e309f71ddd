package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestAuditEmitsRequestScopedRecord(t *testing.T) {
	buf := captureLog(t)

	req := httptest.NewRequest("POST", "/api/v1/admin/roles", nil)
	req.Header.Set("X-Request-Id", "req-test-1")

	Audit(req, "admin.role.created", "role_id", 9, "name", "Editor")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode audit record: %v (raw=%q)", err, buf.String())
	}
	if record["event"] != "admin.role.created" {
		t.Fatalf("unexpected event: %v", record["event"])
	}
	if record["method"] != "POST" || record["path"] != "/api/v1/admin/roles" {
		t.Fatalf("request identity missing: %+v", record)
	}
	if record["request_id"] != "req-test-1" {
		t.Fatalf("unexpected request id: %v", record["request_id"])
	}
	if record["role_id"] != float64(9) || record["name"] != "Editor" {
		t.Fatalf("caller attributes missing: %+v", record)
	}
}

func TestAuditWithoutTraceUsesPlainMessage(t *testing.T) {
	buf := captureLog(t)

	req := httptest.NewRequest("DELETE", "/api/v1/admin/themes/3", nil)
	Audit(req, "admin.theme.deleted", "theme_id", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode audit record: %v", err)
	}
	if record["msg"] != "audit" {
		t.Fatalf("expected bare audit message outside a span, got %v", record["msg"])
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orgstack/identity-admin/internal/security"
)

type stubVerifier struct{ mgr *security.JWTManager }

func (v stubVerifier) VerifyToken(raw string) (*security.Claims, error) { return v.mgr.Verify(raw) }

func newAuthTestChain(t *testing.T) (*security.JWTManager, http.Handler, *uint) {
	t.Helper()
	mgr := security.NewJWTManager("auth-middleware-test-secret-123456", "identity-admin")
	var seenUserID uint
	h := AuthMiddleware(stubVerifier{mgr: mgr})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			t.Fatal("expected user id in context")
		}
		seenUserID = id
		w.WriteHeader(http.StatusNoContent)
	}))
	return mgr, h, &seenUserID
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	mgr, h, seen := newAuthTestChain(t)
	token, err := mgr.Issue(7, "avery", time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if *seen != 7 {
		t.Fatalf("expected user id 7, got %d", *seen)
	}
}

func TestAuthMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	_, h, _ := newAuthTestChain(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token: expected 401, got %d", rr.Code)
	}
}

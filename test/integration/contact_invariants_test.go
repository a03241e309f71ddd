package integration

import (
	"encoding/json"
	"net/http"
	"testing"
)

type emailView struct {
	ID      uint   `json:"id"`
	Address string `json:"address"`
	Primary bool   `json:"is_primary"`
}

func listEmails(t *testing.T, client *http.Client, baseURL, token string, userID uint) []emailView {
	t.Helper()
	resp, env := doJSON(t, client, http.MethodGet, baseURL+"/api/v1/admin/users/"+itoa(userID)+"/contacts", nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list contacts failed: status=%d error=%+v", resp.StatusCode, env.Error)
	}
	var payload struct {
		Emails []emailView `json:"emails"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode contacts: %v", err)
	}
	return payload.Emails
}

func addEmail(t *testing.T, client *http.Client, baseURL, token string, userID uint, address string, primary bool) emailView {
	t.Helper()
	resp, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/admin/users/"+itoa(userID)+"/emails", map[string]any{
		"address": address,
		"primary": primary,
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add email failed: status=%d error=%+v", resp.StatusCode, env.Error)
	}
	var email emailView
	if err := json.Unmarshal(env.Data, &email); err != nil {
		t.Fatalf("decode email: %v", err)
	}
	return email
}

func TestEmailLifecycleKeepsExactlyOnePrimary(t *testing.T) {
	baseURL, client, closeFn := newTestServer(t)
	defer closeFn()

	adminToken := login(t, client, baseURL, adminUsername, adminPassword)
	userID, _ := createUserWithPassword(t, client, baseURL, adminToken, "contacts", "Contact#Pass12")

	first := addEmail(t, client, baseURL, adminToken, userID, "first@example.com", false)
	if !first.Primary {
		t.Fatal("expected first email to become primary")
	}

	second := addEmail(t, client, baseURL, adminToken, userID, "second@example.com", true)
	if !second.Primary {
		t.Fatal("expected explicit primary to take over")
	}
	emails := listEmails(t, client, baseURL, adminToken, userID)
	primaries := 0
	for _, e := range emails {
		if e.Primary {
			primaries++
		}
	}
	if len(emails) != 2 || primaries != 1 {
		t.Fatalf("expected 2 emails with one primary, got %+v", emails)
	}

	resp, env := doJSON(t, client, http.MethodDelete, baseURL+"/api/v1/admin/users/"+itoa(userID)+"/emails/"+itoa(second.ID), nil, adminToken)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove primary email failed: status=%d error=%+v", resp.StatusCode, env.Error)
	}
	emails = listEmails(t, client, baseURL, adminToken, userID)
	if len(emails) != 1 || !emails[0].Primary {
		t.Fatalf("expected survivor to be promoted, got %+v", emails)
	}

	resp, env = doJSON(t, client, http.MethodDelete, baseURL+"/api/v1/admin/users/"+itoa(userID)+"/emails/"+itoa(emails[0].ID), nil, adminToken)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 removing last email, got %d", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %+v", env.Error)
	}
	emails = listEmails(t, client, baseURL, adminToken, userID)
	if len(emails) != 1 {
		t.Fatalf("expected last email retained after rejection, got %+v", emails)
	}
}

func TestSetPrimaryEmailEndpoint(t *testing.T) {
	baseURL, client, closeFn := newTestServer(t)
	defer closeFn()

	adminToken := login(t, client, baseURL, adminUsername, adminPassword)
	userID, _ := createUserWithPassword(t, client, baseURL, adminToken, "primaries", "Primary#Pass12")

	first := addEmail(t, client, baseURL, adminToken, userID, "a@example.com", false)
	second := addEmail(t, client, baseURL, adminToken, userID, "b@example.com", false)
	if !first.Primary || second.Primary {
		t.Fatalf("unexpected initial primaries: %+v %+v", first, second)
	}

	resp, env := doJSON(t, client, http.MethodPut, baseURL+"/api/v1/admin/users/"+itoa(userID)+"/emails/"+itoa(second.ID)+"/primary", nil, adminToken)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("set primary failed: status=%d error=%+v", resp.StatusCode, env.Error)
	}
	emails := listEmails(t, client, baseURL, adminToken, userID)
	for _, e := range emails {
		if e.ID == second.ID && !e.Primary {
			t.Fatal("expected second email to be primary")
		}
		if e.ID == first.ID && e.Primary {
			t.Fatal("expected first email to be demoted")
		}
	}
}

func TestAddEmailValidation(t *testing.T) {
	baseURL, client, closeFn := newTestServer(t)
	defer closeFn()

	adminToken := login(t, client, baseURL, adminUsername, adminPassword)
	userID, _ := createUserWithPassword(t, client, baseURL, adminToken, "novalid", "NoValid#Pass12")

	resp, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/admin/users/"+itoa(userID)+"/emails", map[string]any{
		"address": "   ",
	}, adminToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank address, got %d", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Fatalf("expected BAD_REQUEST, got %+v", env.Error)
	}

	resp, _ = doJSON(t, client, http.MethodPost, baseURL+"/api/v1/admin/users/999999/emails", map[string]any{
		"address": "ghost@example.com",
	}, adminToken)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp.StatusCode)
	}
}

func TestPhoneCollectionMayDrainToEmpty(t *testing.T) {
	baseURL, client, closeFn := newTestServer(t)
	defer closeFn()

	adminToken := login(t, client, baseURL, adminUsername, adminPassword)
	userID, _ := createUserWithPassword(t, client, baseURL, adminToken, "phones", "Phones#Pass123")

	resp, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/admin/users/"+itoa(userID)+"/phones", map[string]any{
		"number": "+15550001111",
	}, adminToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add phone failed: status=%d error=%+v", resp.StatusCode, env.Error)
	}
	var phone struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &phone); err != nil {
		t.Fatalf("decode phone: %v", err)
	}

	resp, env = doJSON(t, client, http.MethodDelete, baseURL+"/api/v1/admin/users/"+itoa(userID)+"/phones/"+itoa(phone.ID), nil, adminToken)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected last phone removable, got status=%d error=%+v", resp.StatusCode, env.Error)
	}
}

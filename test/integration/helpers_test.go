package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/orgstack/identity-admin/internal/authz"
	"github.com/orgstack/identity-admin/internal/database"
	"github.com/orgstack/identity-admin/internal/http/handler"
	"github.com/orgstack/identity-admin/internal/http/router"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/repository"
	"github.com/orgstack/identity-admin/internal/security"
	"github.com/orgstack/identity-admin/internal/service"
)

const (
	adminUsername = "admin"
	adminPassword = "Admin#Pass1234"
	superRoleName = "Super Admin"
)

type apiError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func newTestServer(t *testing.T) (string, *http.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := database.Seed(db, superRoleName, adminUsername, adminPassword); err != nil {
		t.Fatalf("seed: %v", err)
	}

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	contactRepo := repository.NewContactRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	themeRepo := repository.NewThemeRepository(db)
	credRepo := repository.NewCredentialRepository(db)

	jwtMgr := security.NewJWTManager("0123456789abcdef0123456789abcdef", "identity-admin-test")
	resolver := authz.NewResolver(authz.Config{
		SuperRole:        superRoleName,
		PrivilegedGroups: []string{"Administrators"},
	})
	cache := service.NewRedisSnapshotCache(redisClient, "authz_snapshot_it")
	notifier := notify.NewRedisNotifier(redisClient, "identity_events_it", logger)

	authSvc := service.NewAuthService(userRepo, credRepo, jwtMgr, 15*time.Minute)
	authzSvc := service.NewAuthzService(resolver, userRepo, cache, 30*time.Second)
	userSvc := service.NewUserService(userRepo, permRepo, notifier, cache, logger)
	roleSvc := service.NewRoleService(db, roleRepo, permRepo, notifier, cache, logger)
	permSvc := service.NewPermissionService(permRepo, notifier, cache, logger)
	groupSvc := service.NewGroupService(groupRepo, notifier, cache, logger)
	contactSvc := service.NewContactService(db, contactRepo, logger)
	categorySvc := service.NewCategoryService(db, categoryRepo, notifier, logger)
	themeSvc := service.NewThemeService(db, themeRepo, notifier, logger)
	broker := notify.NewBroker(notifier, resolver)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authSvc),
		UserHandler:      handler.NewUserHandler(userSvc, authzSvc, contactSvc, categorySvc, themeSvc),
		AdminHandler:     handler.NewAdminHandler(userSvc, authSvc, roleSvc, permSvc, groupSvc, contactSvc, categorySvc, themeSvc),
		EventsHandler:    handler.NewEventsHandler(broker, authzSvc),
		TokenVerifier:    authSvc,
		Authz:            authzSvc,
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  10000,
	})

	srv := httptest.NewServer(h)
	closeFn := func() {
		srv.Close()
		_ = redisClient.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return srv.URL, srv.Client(), closeFn
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, token string) (*http.Response, apiEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
			t.Fatalf("decode envelope: %v", err)
		}
	}
	return resp, env
}

func login(t *testing.T, client *http.Client, baseURL, username, password string) string {
	t.Helper()
	resp, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s failed: status=%d error=%+v", username, resp.StatusCode, env.Error)
	}
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode login payload: %v", err)
	}
	if data.AccessToken == "" {
		t.Fatal("expected access token")
	}
	return data.AccessToken
}

// createUserWithPassword provisions a fresh account through the admin API and
// returns its id together with a token for it.
func createUserWithPassword(t *testing.T, client *http.Client, baseURL, adminToken, username, password string) (uint, string) {
	t.Helper()
	resp, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/admin/users", map[string]string{
		"username": username,
		"name":     "Test Account",
		"password": password,
	}, adminToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user failed: status=%d error=%+v", resp.StatusCode, env.Error)
	}
	var user struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return user.ID, login(t, client, baseURL, username, password)
}

func itoa(v uint) string { return fmt.Sprintf("%d", v) }

package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/orgstack/identity-admin/internal/health"
	"github.com/orgstack/identity-admin/internal/http/handler"
	"github.com/orgstack/identity-admin/internal/http/middleware"
	"github.com/orgstack/identity-admin/internal/http/response"
	"github.com/orgstack/identity-admin/internal/service"
)

// GlobalRateLimiterFunc and AuthRateLimiterFunc are distinct types so the
// injector can carry both limiters side by side.
type (
	GlobalRateLimiterFunc func(http.Handler) http.Handler
	AuthRateLimiterFunc   func(http.Handler) http.Handler
)

type Dependencies struct {
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler
	AdminHandler  *handler.AdminHandler
	EventsHandler *handler.EventsHandler

	TokenVerifier middleware.TokenVerifier
	Authz         service.AuthzServiceInterface

	CORSOrigins      []string
	AuthRateLimitRPM int
	APIRateLimitRPM  int

	// Optional overrides; nil falls back to in-process fixed windows.
	GlobalRateLimiter GlobalRateLimiterFunc
	AuthRateLimiter   AuthRateLimiterFunc

	Readiness      *health.ProbeRunner
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	}

	authn := middleware.AuthMiddleware(dep.TokenVerifier)
	can := func(capability string) func(http.Handler) http.Handler {
		return middleware.RequireCapability(dep.Authz, capability)
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(authLimiter).Post("/auth/login", dep.AuthHandler.Login)

		r.Get("/themes/default", dep.UserHandler.DefaultTheme)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Get("/me", dep.UserHandler.Me)
			r.Get("/me/contacts", dep.UserHandler.MyContacts)
			r.Get("/me/categories", dep.UserHandler.MyCategories)
			if dep.EventsHandler != nil {
				r.Get("/events", dep.EventsHandler.Stream)
			}
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authn)

			r.Route("/users", func(r chi.Router) {
				r.With(can("users.view")).Get("/", dep.AdminHandler.ListUsers)
				r.With(can("users.create")).Post("/", dep.AdminHandler.CreateUser)
				r.With(can("users.view")).Get("/{id}", dep.AdminHandler.GetUser)
				r.With(can("users.update")).Put("/{id}/status", dep.AdminHandler.SetUserStatus)
				r.With(can("users.update")).Put("/{id}/roles", dep.AdminHandler.SetUserRoles)
				r.With(can("users.update")).Put("/{id}/group", dep.AdminHandler.SetUserGroup)
				r.With(can("users.update")).Put("/{id}/grants", dep.AdminHandler.SetUserGrants)
				r.With(can("users.update")).Put("/{id}/password", dep.AdminHandler.SetUserPassword)

				r.With(can("users.view")).Get("/{id}/contacts", dep.AdminHandler.ListUserContacts)
				r.With(can("users.update")).Post("/{id}/emails", dep.AdminHandler.AddUserEmail)
				r.With(can("users.update")).Put("/{id}/emails/{emailID}/primary", dep.AdminHandler.SetPrimaryUserEmail)
				r.With(can("users.update")).Delete("/{id}/emails/{emailID}", dep.AdminHandler.RemoveUserEmail)
				r.With(can("users.update")).Post("/{id}/phones", dep.AdminHandler.AddUserPhone)
				r.With(can("users.update")).Put("/{id}/phones/{phoneID}/primary", dep.AdminHandler.SetPrimaryUserPhone)
				r.With(can("users.update")).Delete("/{id}/phones/{phoneID}", dep.AdminHandler.RemoveUserPhone)

				r.With(can("categories.view")).Get("/{id}/categories", dep.AdminHandler.ListUserCategories)
				r.With(can("categories.manage")).Post("/{id}/categories", dep.AdminHandler.AssignUserCategory)
				r.With(can("categories.manage")).Put("/{id}/categories/{assignmentID}/primary", dep.AdminHandler.SetPrimaryUserCategory)
				r.With(can("categories.manage")).Delete("/{id}/categories/{assignmentID}", dep.AdminHandler.UnassignUserCategory)
			})

			r.Route("/roles", func(r chi.Router) {
				r.With(can("roles.view")).Get("/", dep.AdminHandler.ListRoles)
				r.With(can("roles.manage")).Post("/", dep.AdminHandler.CreateRole)
				r.With(can("roles.view")).Get("/{id}", dep.AdminHandler.GetRole)
				r.With(can("roles.manage")).Put("/{id}", dep.AdminHandler.UpdateRole)
				r.With(can("roles.manage")).Delete("/{id}", dep.AdminHandler.DeleteRole)
				r.With(can("roles.manage")).Post("/{id}/permissions/attach", dep.AdminHandler.AttachRolePermissions)
				r.With(can("roles.manage")).Post("/{id}/permissions/detach", dep.AdminHandler.DetachRolePermissions)
				r.With(can("roles.manage")).Put("/{id}/permissions", dep.AdminHandler.SyncRolePermissions)
			})

			r.Route("/permissions", func(r chi.Router) {
				r.With(can("permissions.view")).Get("/", dep.AdminHandler.ListPermissions)
				r.With(can("permissions.manage")).Post("/", dep.AdminHandler.CreatePermission)
				r.With(can("permissions.manage")).Put("/{id}", dep.AdminHandler.UpdatePermission)
				r.With(can("permissions.manage")).Delete("/{id}", dep.AdminHandler.DeletePermission)
			})

			r.Route("/groups", func(r chi.Router) {
				r.With(can("groups.view")).Get("/", dep.AdminHandler.ListGroups)
				r.With(can("groups.manage")).Post("/", dep.AdminHandler.CreateGroup)
				r.With(can("groups.view")).Get("/{id}", dep.AdminHandler.GetGroup)
				r.With(can("groups.manage")).Put("/{id}", dep.AdminHandler.UpdateGroup)
				r.With(can("groups.manage")).Delete("/{id}", dep.AdminHandler.DeleteGroup)
			})

			r.Route("/categories", func(r chi.Router) {
				r.With(can("categories.view")).Get("/", dep.AdminHandler.ListCategories)
				r.With(can("categories.manage")).Post("/", dep.AdminHandler.CreateCategory)
				r.With(can("categories.manage")).Put("/{id}", dep.AdminHandler.UpdateCategory)
				r.With(can("categories.manage")).Delete("/{id}", dep.AdminHandler.DeleteCategory)
			})

			r.Route("/themes", func(r chi.Router) {
				r.With(can("themes.view")).Get("/", dep.AdminHandler.ListThemes)
				r.With(can("themes.manage")).Post("/", dep.AdminHandler.CreateTheme)
				r.With(can("themes.manage")).Put("/{id}/default", dep.AdminHandler.SetDefaultTheme)
				r.With(can("themes.manage")).Delete("/{id}", dep.AdminHandler.DeleteTheme)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

package handler

import (
	"net/http"

	"github.com/orgstack/identity-admin/internal/http/middleware"
	"github.com/orgstack/identity-admin/internal/http/response"
	"github.com/orgstack/identity-admin/internal/service"
)

// UserHandler serves the authenticated user's own view: profile, resolved
// authorization snapshot, contacts, and category assignments.
type UserHandler struct {
	userSvc     service.UserServiceInterface
	authzSvc    service.AuthzServiceInterface
	contactSvc  service.ContactServiceInterface
	categorySvc service.CategoryServiceInterface
	themeSvc    service.ThemeServiceInterface
}

func NewUserHandler(
	userSvc service.UserServiceInterface,
	authzSvc service.AuthzServiceInterface,
	contactSvc service.ContactServiceInterface,
	categorySvc service.CategoryServiceInterface,
	themeSvc service.ThemeServiceInterface,
) *UserHandler {
	return &UserHandler{
		userSvc:     userSvc,
		authzSvc:    authzSvc,
		contactSvc:  contactSvc,
		categorySvc: categorySvc,
		themeSvc:    themeSvc,
	}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	user, err := h.userSvc.GetByID(userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load profile", nil)
		return
	}
	snap, err := h.authzSvc.SnapshotFor(r.Context(), userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to resolve authorization", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"user": user, "authorization": snap})
}

func (h *UserHandler) MyContacts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	emails, err := h.contactSvc.EmailsForUser(userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load emails", nil)
		return
	}
	phones, err := h.contactSvc.PhonesForUser(userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load phones", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"emails": emails, "phones": phones})
}

func (h *UserHandler) MyCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	assignments, err := h.categorySvc.AssignmentsForUser(userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load categories", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"assignments": assignments})
}

// DefaultTheme is public; clients need it before any user signs in.
func (h *UserHandler) DefaultTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.themeSvc.Default()
	if err != nil {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "no default theme configured", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, theme)
}

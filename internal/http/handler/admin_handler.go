package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/http/middleware"
	"github.com/orgstack/identity-admin/internal/http/response"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
	"github.com/orgstack/identity-admin/internal/service"
)

// AdminHandler exposes the administrative surface: identities, RBAC
// catalogs, category assignments, themes, and contact mutations. All
// invariants live in the service layer; handlers only translate HTTP.
type AdminHandler struct {
	userSvc     service.UserServiceInterface
	authSvc     service.AuthServiceInterface
	roleSvc     service.RoleServiceInterface
	permSvc     service.PermissionServiceInterface
	groupSvc    service.GroupServiceInterface
	contactSvc  service.ContactServiceInterface
	categorySvc service.CategoryServiceInterface
	themeSvc    service.ThemeServiceInterface
}

func NewAdminHandler(
	userSvc service.UserServiceInterface,
	authSvc service.AuthServiceInterface,
	roleSvc service.RoleServiceInterface,
	permSvc service.PermissionServiceInterface,
	groupSvc service.GroupServiceInterface,
	contactSvc service.ContactServiceInterface,
	categorySvc service.CategoryServiceInterface,
	themeSvc service.ThemeServiceInterface,
) *AdminHandler {
	return &AdminHandler{
		userSvc:     userSvc,
		authSvc:     authSvc,
		roleSvc:     roleSvc,
		permSvc:     permSvc,
		groupSvc:    groupSvc,
		contactSvc:  contactSvc,
		categorySvc: categorySvc,
		themeSvc:    themeSvc,
	}
}

func urlID(r *http.Request, param string) (uint, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return false
	}
	return true
}

// writeServiceError maps service and repository errors onto the response
// envelope. Invariant violations are conflicts, not server faults.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrGroupNotFound),
		errors.Is(err, repository.ErrRoleNotFound),
		errors.Is(err, repository.ErrPermissionNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrThemeNotFound),
		errors.Is(err, repository.ErrEmailNotFound),
		errors.Is(err, repository.ErrPhoneNotFound),
		errors.Is(err, repository.ErrCredentialNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, service.ErrInvariant):
		response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, service.ErrNotPermitted):
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, service.ErrUsernameRequired),
		errors.Is(err, service.ErrUnknownStatus),
		errors.Is(err, service.ErrRoleNameRequired),
		errors.Is(err, service.ErrPermissionNameRequired),
		errors.Is(err, service.ErrCategoryNameRequired),
		errors.Is(err, service.ErrThemeNameRequired),
		errors.Is(err, service.ErrEmailAddressRequired),
		errors.Is(err, service.ErrPhoneNumberRequired):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "operation failed", nil)
	}
}

// --- Users ---

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userSvc.List()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, users)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := h.userSvc.Create(r.Context(), body.Username, body.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if body.Password != "" {
		if err := h.authSvc.SetPassword(r.Context(), user.ID, body.Password); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	observability.Audit(r, "admin.user.created", "user_id", user.ID, "username", user.Username)
	response.JSON(w, r, http.StatusCreated, user)
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	user, err := h.userSvc.GetByID(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AdminHandler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := h.userSvc.SetStatus(r.Context(), id, body.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.status_changed", "user_id", id, "status", body.Status)
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AdminHandler) SetUserRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var body struct {
		RoleIDs []uint `json:"role_ids"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := h.userSvc.SetRoles(r.Context(), id, body.RoleIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.roles_set", "user_id", id, "role_count", len(body.RoleIDs))
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AdminHandler) SetUserGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var body struct {
		GroupID *uint `json:"group_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := h.userSvc.SetGroup(r.Context(), id, body.GroupID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.group_set", "user_id", id)
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AdminHandler) SetUserGrants(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var body struct {
		Grants []service.DirectGrant `json:"grants"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := h.userSvc.SetDirectGrants(r.Context(), id, body.Grants)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.grants_set", "user_id", id, "grant_count", len(body.Grants))
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AdminHandler) SetUserPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "password is required", nil)
		return
	}
	if err := h.authSvc.SetPassword(r.Context(), id, body.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.password_set", "user_id", id)
	response.JSON(w, r, http.StatusNoContent, nil)
}

// --- User contacts ---

func (h *AdminHandler) ListUserContacts(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	emails, err := h.contactSvc.EmailsForUser(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	phones, err := h.contactSvc.PhonesForUser(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"emails": emails, "phones": phones})
}

func (h *AdminHandler) AddUserEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var body struct {
		Address string `json:"address"`
		Primary bool   `json:"primary"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	email, err := h.contactSvc.AddEmail(r.Context(), id, body.Address, body.Primary)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.email_added", "user_id", id, "email_id", email.ID)
	response.JSON(w, r, http.StatusCreated, email)
}

func (h *AdminHandler) SetPrimaryUserEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	emailID, ok := urlID(r, "emailID")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid email id", nil)
		return
	}
	if err := h.contactSvc.SetPrimaryEmail(r.Context(), userID, emailID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.email_primary_set", "user_id", userID, "email_id", emailID)
	response.JSON(w, r, http.StatusNoContent, nil)
}

func (h *AdminHandler) RemoveUserEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	emailID, ok := urlID(r, "emailID")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid email id", nil)
		return
	}
	if err := h.contactSvc.RemoveEmail(r.Context(), userID, emailID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.email_removed", "user_id", userID, "email_id", emailID)
	response.JSON(w, r, http.StatusNoContent, nil)
}

func (h *AdminHandler) AddUserPhone(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var body struct {
		Number  string `json:"number"`
		Primary bool   `json:"primary"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	phone, err := h.contactSvc.AddPhone(r.Context(), id, body.Number, body.Primary)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.phone_added", "user_id", id, "phone_id", phone.ID)
	response.JSON(w, r, http.StatusCreated, phone)
}

func (h *AdminHandler) SetPrimaryUserPhone(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	phoneID, ok := urlID(r, "phoneID")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid phone id", nil)
		return
	}
	if err := h.contactSvc.SetPrimaryPhone(r.Context(), userID, phoneID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.phone_primary_set", "user_id", userID, "phone_id", phoneID)
	response.JSON(w, r, http.StatusNoContent, nil)
}

func (h *AdminHandler) RemoveUserPhone(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	phoneID, ok := urlID(r, "phoneID")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid phone id", nil)
		return
	}
	if err := h.contactSvc.RemovePhone(r.Context(), userID, phoneID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.phone_removed", "user_id", userID, "phone_id", phoneID)
	response.JSON(w, r, http.StatusNoContent, nil)
}

// --- User category assignments ---

func (h *AdminHandler) ListUserCategories(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	assignments, err := h.categorySvc.AssignmentsForUser(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, assignments)
}

func (h *AdminHandler) AssignUserCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	var body struct {
		CategoryID uint `json:"category_id"`
		Primary    bool `json:"primary"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	actorID, _ := middleware.UserIDFromContext(r.Context())
	assignment, err := h.categorySvc.Assign(r.Context(), userID, body.CategoryID, body.Primary, actorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.category_assigned", "user_id", userID, "category_id", body.CategoryID)
	response.JSON(w, r, http.StatusCreated, assignment)
}

func (h *AdminHandler) SetPrimaryUserCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	assignmentID, ok := urlID(r, "assignmentID")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid assignment id", nil)
		return
	}
	if err := h.categorySvc.SetPrimary(r.Context(), userID, assignmentID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.category_primary_set", "user_id", userID, "assignment_id", assignmentID)
	response.JSON(w, r, http.StatusNoContent, nil)
}

func (h *AdminHandler) UnassignUserCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	assignmentID, ok := urlID(r, "assignmentID")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid assignment id", nil)
		return
	}
	if err := h.categorySvc.Unassign(r.Context(), userID, assignmentID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.user.category_unassigned", "user_id", userID, "assignment_id", assignmentID)
	response.JSON(w, r, http.StatusNoContent, nil)
}

// --- Roles ---

func (h *AdminHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleSvc.List()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, roles)
}

func (h *AdminHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		PermissionIDs []uint `json:"permission_ids"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	role, err := h.roleSvc.Create(r.Context(), body.Name, body.Description, body.PermissionIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.role.created", "role_id", role.ID, "name", role.Name)
	response.JSON(w, r, http.StatusCreated, role)
}

func (h *AdminHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid role id", nil)
		return
	}
	role, err := h.roleSvc.GetByID(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, role)
}

func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid role id", nil)
		return
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	role, err := h.roleSvc.Update(r.Context(), id, body.Name, body.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.role.updated", "role_id", id)
	response.JSON(w, r, http.StatusOK, role)
}

func (h *AdminHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid role id", nil)
		return
	}
	if err := h.roleSvc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.role.deleted", "role_id", id)
	response.JSON(w, r, http.StatusNoContent, nil)
}

func (h *AdminHandler) AttachRolePermissions(w http.ResponseWriter, r *http.Request) {
	h.mutateRolePermissions(w, r, "admin.role.permissions_attached", h.roleSvc.AttachPermissions)
}

func (h *AdminHandler) DetachRolePermissions(w http.ResponseWriter, r *http.Request) {
	h.mutateRolePermissions(w, r, "admin.role.permissions_detached", h.roleSvc.DetachPermissions)
}

func (h *AdminHandler) SyncRolePermissions(w http.ResponseWriter, r *http.Request) {
	h.mutateRolePermissions(w, r, "admin.role.permissions_synced", h.roleSvc.SyncPermissions)
}

func (h *AdminHandler) mutateRolePermissions(
	w http.ResponseWriter, r *http.Request,
	event string,
	apply func(ctx context.Context, roleID uint, permissionIDs []uint) (*domain.Role, error),
) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid role id", nil)
		return
	}
	var body struct {
		PermissionIDs []uint `json:"permission_ids"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	role, err := apply(r.Context(), id, body.PermissionIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, event, "role_id", id, "permission_count", len(role.Permissions))
	response.JSON(w, r, http.StatusOK, role)
}

// --- Permissions ---

func (h *AdminHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.permSvc.List()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, perms)
}

func (h *AdminHandler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	perm, err := h.permSvc.Create(r.Context(), body.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.permission.created", "permission_id", perm.ID, "name", perm.Name)
	response.JSON(w, r, http.StatusCreated, perm)
}

func (h *AdminHandler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid permission id", nil)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	perm, err := h.permSvc.Update(r.Context(), id, body.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.permission.updated", "permission_id", id)
	response.JSON(w, r, http.StatusOK, perm)
}

func (h *AdminHandler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid permission id", nil)
		return
	}
	if err := h.permSvc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.permission.deleted", "permission_id", id)
	response.JSON(w, r, http.StatusNoContent, nil)
}

// --- Groups ---

func (h *AdminHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupSvc.List()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, groups)
}

func (h *AdminHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	group, err := h.groupSvc.Create(r.Context(), body.Name, body.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.group.created", "group_id", group.ID, "name", group.Name)
	response.JSON(w, r, http.StatusCreated, group)
}

func (h *AdminHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid group id", nil)
		return
	}
	group, err := h.groupSvc.GetByID(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, group)
}

func (h *AdminHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid group id", nil)
		return
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	group, err := h.groupSvc.Update(r.Context(), id, body.Name, body.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.group.updated", "group_id", id)
	response.JSON(w, r, http.StatusOK, group)
}

func (h *AdminHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid group id", nil)
		return
	}
	if err := h.groupSvc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.group.deleted", "group_id", id)
	response.JSON(w, r, http.StatusNoContent, nil)
}

// --- Categories (catalog) ---

func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categorySvc.List()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, categories)
}

func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	category, err := h.categorySvc.Create(r.Context(), body.Name, body.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.category.created", "category_id", category.ID, "name", category.Name)
	response.JSON(w, r, http.StatusCreated, category)
}

func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	category, err := h.categorySvc.Update(r.Context(), id, body.Name, body.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.category.updated", "category_id", id)
	response.JSON(w, r, http.StatusOK, category)
}

func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	if err := h.categorySvc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.category.deleted", "category_id", id)
	response.JSON(w, r, http.StatusNoContent, nil)
}

// --- Themes ---

func (h *AdminHandler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.themeSvc.List()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, themes)
}

func (h *AdminHandler) CreateTheme(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string `json:"name"`
		Slug    string `json:"slug"`
		Default bool   `json:"default"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	theme, err := h.themeSvc.Create(r.Context(), body.Name, body.Slug, body.Default)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.theme.created", "theme_id", theme.ID, "name", theme.Name)
	response.JSON(w, r, http.StatusCreated, theme)
}

func (h *AdminHandler) SetDefaultTheme(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid theme id", nil)
		return
	}
	theme, err := h.themeSvc.SetDefault(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.theme.default_set", "theme_id", id)
	response.JSON(w, r, http.StatusOK, theme)
}

func (h *AdminHandler) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid theme id", nil)
		return
	}
	if err := h.themeSvc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "admin.theme.deleted", "theme_id", id)
	response.JSON(w, r, http.StatusNoContent, nil)
}

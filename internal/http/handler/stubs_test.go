package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/orgstack/identity-admin/internal/authz"
	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/http/middleware"
	"github.com/orgstack/identity-admin/internal/security"
	"github.com/orgstack/identity-admin/internal/service"
)

func requestWithClaims(method, target string, body string, userID uint) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	claims := &security.Claims{
		Username:         "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatUint(uint64(userID), 10)},
	}
	ctx := context.WithValue(r.Context(), middleware.ClaimsContextKey, claims)
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	// Reuse an already-installed route context so chained calls accumulate
	// params instead of replacing each other.
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		rctx.URLParams.Add(key, value)
		return r
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type stubUserService struct {
	createFn    func(username, name string) (*domain.User, error)
	getByIDFn   func(id uint) (*domain.User, error)
	setStatusFn func(userID uint, status string) (*domain.User, error)
	setRolesFn  func(userID uint, roleIDs []uint) (*domain.User, error)
}

func (s *stubUserService) Create(ctx context.Context, username, name string) (*domain.User, error) {
	if s.createFn != nil {
		return s.createFn(username, name)
	}
	return &domain.User{ID: 1, Username: username, Name: name, Status: domain.UserStatusActive}, nil
}

func (s *stubUserService) GetByID(id uint) (*domain.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(id)
	}
	return &domain.User{ID: id, Username: "user"}, nil
}

func (s *stubUserService) List() ([]domain.User, error) { return []domain.User{{ID: 1}}, nil }

func (s *stubUserService) SetStatus(ctx context.Context, userID uint, status string) (*domain.User, error) {
	if s.setStatusFn != nil {
		return s.setStatusFn(userID, status)
	}
	return &domain.User{ID: userID, Status: status}, nil
}

func (s *stubUserService) SetRoles(ctx context.Context, userID uint, roleIDs []uint) (*domain.User, error) {
	if s.setRolesFn != nil {
		return s.setRolesFn(userID, roleIDs)
	}
	return &domain.User{ID: userID}, nil
}

func (s *stubUserService) SetGroup(ctx context.Context, userID uint, groupID *uint) (*domain.User, error) {
	return &domain.User{ID: userID, GroupID: groupID}, nil
}

func (s *stubUserService) SetDirectGrants(ctx context.Context, userID uint, grants []service.DirectGrant) (*domain.User, error) {
	return &domain.User{ID: userID}, nil
}

type stubAuthService struct {
	loginFn       func(username, password string) (*service.LoginResult, error)
	setPasswordFn func(userID uint, password string) error
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*service.LoginResult, error) {
	if s.loginFn != nil {
		return s.loginFn(username, password)
	}
	return nil, service.ErrInvalidCredentials
}

func (s *stubAuthService) SetPassword(ctx context.Context, userID uint, password string) error {
	if s.setPasswordFn != nil {
		return s.setPasswordFn(userID, password)
	}
	return nil
}

func (s *stubAuthService) VerifyToken(raw string) (*security.Claims, error) {
	return nil, service.ErrInvalidCredentials
}

type stubAuthzService struct {
	snapshotFn func(userID uint) (*authz.Snapshot, error)
}

func (s *stubAuthzService) Can(ctx context.Context, userID uint, capability string) (bool, error) {
	return true, nil
}

func (s *stubAuthzService) Privileged(ctx context.Context, userID uint) (bool, error) {
	return false, nil
}

func (s *stubAuthzService) SnapshotFor(ctx context.Context, userID uint) (*authz.Snapshot, error) {
	if s.snapshotFn != nil {
		return s.snapshotFn(userID)
	}
	return &authz.Snapshot{UserID: userID}, nil
}

type stubRoleService struct {
	createFn func(name, description string, permissionIDs []uint) (*domain.Role, error)
	deleteFn func(id uint) error
	syncFn   func(roleID uint, permissionIDs []uint) (*domain.Role, error)
	attachFn func(roleID uint, permissionIDs []uint) (*domain.Role, error)
	detachFn func(roleID uint, permissionIDs []uint) (*domain.Role, error)
}

func (s *stubRoleService) Create(ctx context.Context, name, description string, permissionIDs []uint) (*domain.Role, error) {
	if s.createFn != nil {
		return s.createFn(name, description, permissionIDs)
	}
	return &domain.Role{ID: 1, Name: name}, nil
}

func (s *stubRoleService) Update(ctx context.Context, id uint, name, description string) (*domain.Role, error) {
	return &domain.Role{ID: id, Name: name}, nil
}

func (s *stubRoleService) Delete(ctx context.Context, id uint) error {
	if s.deleteFn != nil {
		return s.deleteFn(id)
	}
	return nil
}

func (s *stubRoleService) GetByID(id uint) (*domain.Role, error) {
	return &domain.Role{ID: id, Name: "Role"}, nil
}

func (s *stubRoleService) List() ([]domain.Role, error) { return []domain.Role{{ID: 1}}, nil }

func (s *stubRoleService) AttachPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*domain.Role, error) {
	if s.attachFn != nil {
		return s.attachFn(roleID, permissionIDs)
	}
	return &domain.Role{ID: roleID}, nil
}

func (s *stubRoleService) DetachPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*domain.Role, error) {
	if s.detachFn != nil {
		return s.detachFn(roleID, permissionIDs)
	}
	return &domain.Role{ID: roleID}, nil
}

func (s *stubRoleService) SyncPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*domain.Role, error) {
	if s.syncFn != nil {
		return s.syncFn(roleID, permissionIDs)
	}
	return &domain.Role{ID: roleID}, nil
}

type stubPermissionService struct {
	createFn func(name string) (*domain.Permission, error)
}

func (s *stubPermissionService) Create(ctx context.Context, name string) (*domain.Permission, error) {
	if s.createFn != nil {
		return s.createFn(name)
	}
	return &domain.Permission{ID: 1, Name: name}, nil
}

func (s *stubPermissionService) Update(ctx context.Context, id uint, name string) (*domain.Permission, error) {
	return &domain.Permission{ID: id, Name: name}, nil
}

func (s *stubPermissionService) Delete(ctx context.Context, id uint) error { return nil }

func (s *stubPermissionService) GetByID(id uint) (*domain.Permission, error) {
	return &domain.Permission{ID: id}, nil
}

func (s *stubPermissionService) List() ([]domain.Permission, error) {
	return []domain.Permission{{ID: 1, Name: "users.view"}}, nil
}

type stubGroupService struct{}

func (s *stubGroupService) Create(ctx context.Context, name, description string) (*domain.Group, error) {
	return &domain.Group{ID: 1, Name: name}, nil
}

func (s *stubGroupService) Update(ctx context.Context, id uint, name, description string) (*domain.Group, error) {
	return &domain.Group{ID: id, Name: name}, nil
}

func (s *stubGroupService) Delete(ctx context.Context, id uint) error { return nil }

func (s *stubGroupService) GetByID(id uint) (*domain.Group, error) {
	return &domain.Group{ID: id}, nil
}

func (s *stubGroupService) List() ([]domain.Group, error) { return nil, nil }

type stubContactService struct {
	removeEmailFn func(userID, emailID uint) error
	addEmailFn    func(userID uint, address string, primary bool) (*domain.Email, error)
}

func (s *stubContactService) AddEmail(ctx context.Context, userID uint, address string, primary bool) (*domain.Email, error) {
	if s.addEmailFn != nil {
		return s.addEmailFn(userID, address, primary)
	}
	return &domain.Email{ID: 1, UserID: userID, Address: address, IsPrimary: primary}, nil
}

func (s *stubContactService) SetPrimaryEmail(ctx context.Context, userID, emailID uint) error {
	return nil
}

func (s *stubContactService) RemoveEmail(ctx context.Context, userID, emailID uint) error {
	if s.removeEmailFn != nil {
		return s.removeEmailFn(userID, emailID)
	}
	return nil
}

func (s *stubContactService) AddPhone(ctx context.Context, userID uint, number string, primary bool) (*domain.Phone, error) {
	return &domain.Phone{ID: 1, UserID: userID, Number: number, IsPrimary: primary}, nil
}

func (s *stubContactService) SetPrimaryPhone(ctx context.Context, userID, phoneID uint) error {
	return nil
}

func (s *stubContactService) RemovePhone(ctx context.Context, userID, phoneID uint) error {
	return nil
}

func (s *stubContactService) EmailsForUser(userID uint) ([]domain.Email, error) {
	return []domain.Email{{ID: 1, UserID: userID, Address: "a@example.com", IsPrimary: true}}, nil
}

func (s *stubContactService) PhonesForUser(userID uint) ([]domain.Phone, error) {
	return nil, nil
}

type stubCategoryService struct {
	assignFn func(userID, categoryID uint, primary bool, assignedBy uint) (*domain.CategoryAssignment, error)
}

func (s *stubCategoryService) Create(ctx context.Context, name, description string) (*domain.Category, error) {
	return &domain.Category{ID: 1, Name: name}, nil
}

func (s *stubCategoryService) Update(ctx context.Context, id uint, name, description string) (*domain.Category, error) {
	return &domain.Category{ID: id, Name: name}, nil
}

func (s *stubCategoryService) Delete(ctx context.Context, id uint) error { return nil }

func (s *stubCategoryService) List() ([]domain.Category, error) { return nil, nil }

func (s *stubCategoryService) Assign(ctx context.Context, userID, categoryID uint, primary bool, assignedBy uint) (*domain.CategoryAssignment, error) {
	if s.assignFn != nil {
		return s.assignFn(userID, categoryID, primary, assignedBy)
	}
	return &domain.CategoryAssignment{ID: 1, UserID: userID, CategoryID: categoryID, IsPrimary: primary, AssignedBy: assignedBy}, nil
}

func (s *stubCategoryService) SetPrimary(ctx context.Context, userID, assignmentID uint) error {
	return nil
}

func (s *stubCategoryService) Unassign(ctx context.Context, userID, assignmentID uint) error {
	return nil
}

func (s *stubCategoryService) AssignmentsForUser(userID uint) ([]domain.CategoryAssignment, error) {
	return []domain.CategoryAssignment{{ID: 1, UserID: userID, CategoryID: 2}}, nil
}

type stubThemeService struct {
	defaultFn func() (*domain.Theme, error)
}

func (s *stubThemeService) Create(ctx context.Context, name, slug string, isDefault bool) (*domain.Theme, error) {
	return &domain.Theme{ID: 1, Name: name, Slug: slug, IsDefault: isDefault}, nil
}

func (s *stubThemeService) SetDefault(ctx context.Context, id uint) (*domain.Theme, error) {
	return &domain.Theme{ID: id, IsDefault: true}, nil
}

func (s *stubThemeService) Delete(ctx context.Context, id uint) error { return nil }

func (s *stubThemeService) List() ([]domain.Theme, error) { return nil, nil }

func (s *stubThemeService) Default() (*domain.Theme, error) {
	if s.defaultFn != nil {
		return s.defaultFn()
	}
	return &domain.Theme{ID: 1, Name: "Default", Slug: "default", IsDefault: true}, nil
}

func (s *stubThemeService) GetByID(id uint) (*domain.Theme, error) {
	return &domain.Theme{ID: id}, nil
}

func newTestAdminHandler(
	userSvc service.UserServiceInterface,
	roleSvc service.RoleServiceInterface,
	contactSvc service.ContactServiceInterface,
	categorySvc service.CategoryServiceInterface,
) *AdminHandler {
	if userSvc == nil {
		userSvc = &stubUserService{}
	}
	if roleSvc == nil {
		roleSvc = &stubRoleService{}
	}
	if contactSvc == nil {
		contactSvc = &stubContactService{}
	}
	if categorySvc == nil {
		categorySvc = &stubCategoryService{}
	}
	return NewAdminHandler(
		userSvc,
		&stubAuthService{},
		roleSvc,
		&stubPermissionService{},
		&stubGroupService{},
		contactSvc,
		categorySvc,
		&stubThemeService{},
	)
}

package service

import (
	"context"

	"github.com/orgstack/identity-admin/internal/authz"
	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/security"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	SetPassword(ctx context.Context, userID uint, password string) error
	VerifyToken(raw string) (*security.Claims, error)
}

type AuthzServiceInterface interface {
	Can(ctx context.Context, userID uint, capability string) (bool, error)
	Privileged(ctx context.Context, userID uint) (bool, error)
	SnapshotFor(ctx context.Context, userID uint) (*authz.Snapshot, error)
}

type UserServiceInterface interface {
	Create(ctx context.Context, username, name string) (*domain.User, error)
	GetByID(id uint) (*domain.User, error)
	List() ([]domain.User, error)
	SetStatus(ctx context.Context, userID uint, status string) (*domain.User, error)
	SetRoles(ctx context.Context, userID uint, roleIDs []uint) (*domain.User, error)
	SetGroup(ctx context.Context, userID uint, groupID *uint) (*domain.User, error)
	SetDirectGrants(ctx context.Context, userID uint, grants []DirectGrant) (*domain.User, error)
}

type RoleServiceInterface interface {
	Create(ctx context.Context, name, description string, permissionIDs []uint) (*domain.Role, error)
	Update(ctx context.Context, id uint, name, description string) (*domain.Role, error)
	Delete(ctx context.Context, id uint) error
	GetByID(id uint) (*domain.Role, error)
	List() ([]domain.Role, error)
	AttachPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*domain.Role, error)
	DetachPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*domain.Role, error)
	SyncPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*domain.Role, error)
}

type PermissionServiceInterface interface {
	Create(ctx context.Context, name string) (*domain.Permission, error)
	Update(ctx context.Context, id uint, name string) (*domain.Permission, error)
	Delete(ctx context.Context, id uint) error
	GetByID(id uint) (*domain.Permission, error)
	List() ([]domain.Permission, error)
}

type GroupServiceInterface interface {
	Create(ctx context.Context, name, description string) (*domain.Group, error)
	Update(ctx context.Context, id uint, name, description string) (*domain.Group, error)
	Delete(ctx context.Context, id uint) error
	GetByID(id uint) (*domain.Group, error)
	List() ([]domain.Group, error)
}

type ContactServiceInterface interface {
	AddEmail(ctx context.Context, userID uint, address string, primary bool) (*domain.Email, error)
	SetPrimaryEmail(ctx context.Context, userID, emailID uint) error
	RemoveEmail(ctx context.Context, userID, emailID uint) error
	AddPhone(ctx context.Context, userID uint, number string, primary bool) (*domain.Phone, error)
	SetPrimaryPhone(ctx context.Context, userID, phoneID uint) error
	RemovePhone(ctx context.Context, userID, phoneID uint) error
	EmailsForUser(userID uint) ([]domain.Email, error)
	PhonesForUser(userID uint) ([]domain.Phone, error)
}

type CategoryServiceInterface interface {
	Create(ctx context.Context, name, description string) (*domain.Category, error)
	Update(ctx context.Context, id uint, name, description string) (*domain.Category, error)
	Delete(ctx context.Context, id uint) error
	List() ([]domain.Category, error)
	Assign(ctx context.Context, userID, categoryID uint, primary bool, assignedBy uint) (*domain.CategoryAssignment, error)
	SetPrimary(ctx context.Context, userID, assignmentID uint) error
	Unassign(ctx context.Context, userID, assignmentID uint) error
	AssignmentsForUser(userID uint) ([]domain.CategoryAssignment, error)
}

type ThemeServiceInterface interface {
	Create(ctx context.Context, name, slug string, isDefault bool) (*domain.Theme, error)
	SetDefault(ctx context.Context, id uint) (*domain.Theme, error)
	Delete(ctx context.Context, id uint) error
	List() ([]domain.Theme, error)
	Default() (*domain.Theme, error)
	GetByID(id uint) (*domain.Theme, error)
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
)

var ErrRoleNameRequired = errors.New("role name is required")

// RoleService owns the role catalog and the role↔permission pivot. Every
// pivot mutation publishes role.permissions.updated with the role's full
// current permission list — never the diff — after the write commits.
type RoleService struct {
	db       *gorm.DB
	roleRepo repository.RoleRepository
	permRepo repository.PermissionRepository
	notifier notify.Publisher
	cache    SnapshotInvalidator
	logger   *slog.Logger
}

// SnapshotInvalidator drops cached resolver snapshots after a mutation that
// changes resolver inputs.
type SnapshotInvalidator interface {
	InvalidateUser(ctx context.Context, userID uint) error
	InvalidateAll(ctx context.Context) error
}

func NewRoleService(
	db *gorm.DB,
	roleRepo repository.RoleRepository,
	permRepo repository.PermissionRepository,
	notifier notify.Publisher,
	cache SnapshotInvalidator,
	logger *slog.Logger,
) *RoleService {
	return &RoleService{
		db:       db,
		roleRepo: roleRepo,
		permRepo: permRepo,
		notifier: notifier,
		cache:    cache,
		logger:   logger,
	}
}

func (s *RoleService) Create(ctx context.Context, name, description string, permissionIDs []uint) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoleNameRequired
	}
	role := &domain.Role{Name: name, GuardName: "web", Description: strings.TrimSpace(description)}
	if err := s.roleRepo.Create(role, permissionIDs); err != nil {
		observability.RecordAdminRBACMutation(ctx, "role", "create", "error")
		return nil, err
	}
	created, err := s.roleRepo.FindByID(role.ID)
	if err != nil {
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "role", "create", "success")
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventRoleCreated, notify.RolePayload(created))
	return created, nil
}

func (s *RoleService) Update(ctx context.Context, id uint, name, description string) (*domain.Role, error) {
	role, err := s.roleRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		role.Name = name
	}
	role.Description = strings.TrimSpace(description)
	if err := s.roleRepo.Update(role); err != nil {
		observability.RecordAdminRBACMutation(ctx, "role", "update", "error")
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "role", "update", "success")
	s.invalidateHolders(ctx, role.ID)
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventRoleUpdated, notify.RolePayload(role))
	return role, nil
}

func (s *RoleService) Delete(ctx context.Context, id uint) error {
	role, err := s.roleRepo.FindByID(id)
	if err != nil {
		return err
	}
	// Snapshot holders before the pivot rows disappear.
	holders, err := s.roleRepo.UserIDsWithRole(id)
	if err != nil {
		return err
	}
	if err := s.roleRepo.Delete(id); err != nil {
		observability.RecordAdminRBACMutation(ctx, "role", "delete", "error")
		return err
	}
	observability.RecordAdminRBACMutation(ctx, "role", "delete", "success")
	if s.cache != nil {
		for _, userID := range holders {
			_ = s.cache.InvalidateUser(ctx, userID)
		}
	}
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventRoleDeleted, notify.DeletedPayload("role", role.ID, role.Name))
	return nil
}

func (s *RoleService) GetByID(id uint) (*domain.Role, error) { return s.roleRepo.FindByID(id) }
func (s *RoleService) List() ([]domain.Role, error)          { return s.roleRepo.List() }

// AttachPermissions adds permissions to the role, keeping existing ones.
func (s *RoleService) AttachPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*domain.Role, error) {
	return s.mutatePivot(ctx, roleID, permissionIDs, "attach", func(tx *gorm.DB, role *domain.Role, perms []domain.Permission) error {
		return tx.Model(role).Association("Permissions").Append(&perms)
	})
}

// DetachPermissions removes the named permissions from the role.
func (s *RoleService) DetachPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*domain.Role, error) {
	return s.mutatePivot(ctx, roleID, permissionIDs, "detach", func(tx *gorm.DB, role *domain.Role, perms []domain.Permission) error {
		return tx.Model(role).Association("Permissions").Delete(&perms)
	})
}

// SyncPermissions replaces the role's permission set wholesale. Calling it
// twice with the same ids is a no-op for the stored set and republishes an
// identical payload.
func (s *RoleService) SyncPermissions(ctx context.Context, roleID uint, permissionIDs []uint) (*domain.Role, error) {
	return s.mutatePivot(ctx, roleID, permissionIDs, "sync", func(tx *gorm.DB, role *domain.Role, perms []domain.Permission) error {
		return tx.Model(role).Association("Permissions").Replace(&perms)
	})
}

func (s *RoleService) mutatePivot(
	ctx context.Context,
	roleID uint,
	permissionIDs []uint,
	op string,
	apply func(tx *gorm.DB, role *domain.Role, perms []domain.Permission) error,
) (*domain.Role, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role domain.Role
		err := tx.First(&role, roleID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrRoleNotFound
		}
		if err != nil {
			return err
		}
		var perms []domain.Permission
		if len(permissionIDs) > 0 {
			if err := tx.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
				return err
			}
			if len(perms) != len(dedupe(permissionIDs)) {
				return repository.ErrPermissionNotFound
			}
		}
		return apply(tx, &role, perms)
	})
	if err != nil {
		observability.RecordAdminRBACMutation(ctx, "role_permission", op, "error")
		return nil, err
	}

	role, err := s.roleRepo.FindByID(roleID)
	if err != nil {
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "role_permission", op, "success")
	s.invalidateHolders(ctx, roleID)
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventRolePermissionsUpdated, notify.RolePayload(role))
	return role, nil
}

func (s *RoleService) invalidateHolders(ctx context.Context, roleID uint) {
	if s.cache == nil {
		return
	}
	holders, err := s.roleRepo.UserIDsWithRole(roleID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("snapshot invalidation sweep failed", "role_id", roleID, "error", err)
		}
		_ = s.cache.InvalidateAll(ctx)
		return
	}
	for _, userID := range holders {
		_ = s.cache.InvalidateUser(ctx, userID)
	}
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUnknownStatus    = errors.New("unknown user status")
)

// UserService manages user records and their authorization inputs. Mutations
// that change resolver inputs (roles, group, direct grants, status) publish a
// full-snapshot user payload on both the admin topic and the user's own
// topic, and drop the user's cached resolver snapshot.
type UserService struct {
	userRepo repository.UserRepository
	permRepo repository.PermissionRepository
	notifier notify.Publisher
	cache    SnapshotInvalidator
	logger   *slog.Logger
}

func NewUserService(
	userRepo repository.UserRepository,
	permRepo repository.PermissionRepository,
	notifier notify.Publisher,
	cache SnapshotInvalidator,
	logger *slog.Logger,
) *UserService {
	return &UserService{userRepo: userRepo, permRepo: permRepo, notifier: notifier, cache: cache, logger: logger}
}

func (s *UserService) Create(ctx context.Context, username, name string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	user := &domain.User{
		Username: username,
		Name:     strings.TrimSpace(name),
		Status:   domain.UserStatusActive,
	}
	if err := s.userRepo.Create(user); err != nil {
		observability.RecordAdminRBACMutation(ctx, "user", "create", "error")
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "user", "create", "success")
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventUserCreated, notify.UserPayload(user))
	return user, nil
}

func (s *UserService) GetByID(id uint) (*domain.User, error) { return s.userRepo.FindByID(id) }
func (s *UserService) GetByUsername(username string) (*domain.User, error) {
	return s.userRepo.FindByUsername(username)
}
func (s *UserService) List() ([]domain.User, error) { return s.userRepo.List() }

func (s *UserService) RecordLogin(ctx context.Context, userID uint) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	return s.userRepo.Update(user)
}

func (s *UserService) SetStatus(ctx context.Context, userID uint, status string) (*domain.User, error) {
	if status != domain.UserStatusActive && status != domain.UserStatusDisabled {
		return nil, ErrUnknownStatus
	}
	if err := s.userRepo.UpdateStatus(userID, status); err != nil {
		observability.RecordAdminRBACMutation(ctx, "user", "status", "error")
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "user", "status", "success")
	return s.publishUserChanged(ctx, userID, notify.EventUserStatusChanged)
}

// SetRoles replaces the user's role set wholesale.
func (s *UserService) SetRoles(ctx context.Context, userID uint, roleIDs []uint) (*domain.User, error) {
	if err := s.userRepo.SetRoles(userID, roleIDs); err != nil {
		observability.RecordAdminRBACMutation(ctx, "user_role", "sync", "error")
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "user_role", "sync", "success")
	return s.publishUserChanged(ctx, userID, notify.EventUserUpdated)
}

// SetGroup moves the user to the given group, or out of any group when nil.
func (s *UserService) SetGroup(ctx context.Context, userID uint, groupID *uint) (*domain.User, error) {
	if err := s.userRepo.SetGroup(userID, groupID); err != nil {
		observability.RecordAdminRBACMutation(ctx, "user_group", "set", "error")
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "user_group", "set", "success")
	return s.publishUserChanged(ctx, userID, notify.EventUserUpdated)
}

// SetDirectGrants replaces the user's per-user permission rows. Permission
// names are resolved against the catalog; an unknown name fails the whole
// call without a partial write.
func (s *UserService) SetDirectGrants(ctx context.Context, userID uint, grants []DirectGrant) (*domain.User, error) {
	rows := make([]domain.UserPermission, 0, len(grants))
	for _, g := range grants {
		perm, err := s.permRepo.FindByName(g.Permission, "web")
		if err != nil {
			return nil, err
		}
		rows = append(rows, domain.UserPermission{
			UserID:       userID,
			PermissionID: perm.ID,
			Negative:     g.Negative,
		})
	}
	if err := s.userRepo.SetDirectGrants(userID, rows); err != nil {
		observability.RecordAdminRBACMutation(ctx, "user_grant", "sync", "error")
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "user_grant", "sync", "success")
	return s.publishUserChanged(ctx, userID, notify.EventUserGrantsUpdated)
}

// DirectGrant names a permission granted or denied directly to a user.
type DirectGrant struct {
	Permission string `json:"permission"`
	Negative   bool   `json:"negative"`
}

func (s *UserService) publishUserChanged(ctx context.Context, userID uint, event string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateUser(ctx, userID)
	}
	payload := notify.UserPayload(user)
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, event, payload)
	publishEvent(ctx, s.notifier, s.logger, notify.UserTopic(userID), event, payload)
	return user, nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
)

var ErrPermissionNameRequired = errors.New("permission name is required")

// PermissionService manages the permission catalog. Renaming or deleting a
// permission changes what every role and direct grant referencing it means,
// so both operations drop all cached snapshots rather than sweeping holders.
type PermissionService struct {
	repo     repository.PermissionRepository
	notifier notify.Publisher
	cache    SnapshotInvalidator
	logger   *slog.Logger
}

func NewPermissionService(
	repo repository.PermissionRepository,
	notifier notify.Publisher,
	cache SnapshotInvalidator,
	logger *slog.Logger,
) *PermissionService {
	return &PermissionService{repo: repo, notifier: notifier, cache: cache, logger: logger}
}

func (s *PermissionService) Create(ctx context.Context, name string) (*domain.Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPermissionNameRequired
	}
	perm := &domain.Permission{Name: name, GuardName: "web"}
	if err := s.repo.Create(perm); err != nil {
		observability.RecordAdminRBACMutation(ctx, "permission", "create", "error")
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "permission", "create", "success")
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventPermissionCreated, notify.PermissionPayload(perm))
	return perm, nil
}

func (s *PermissionService) Update(ctx context.Context, id uint, name string) (*domain.Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPermissionNameRequired
	}
	perm, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	perm.Name = name
	if err := s.repo.Update(perm); err != nil {
		observability.RecordAdminRBACMutation(ctx, "permission", "update", "error")
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "permission", "update", "success")
	s.invalidateAll(ctx)
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventPermissionUpdated, notify.PermissionPayload(perm))
	return perm, nil
}

func (s *PermissionService) Delete(ctx context.Context, id uint) error {
	perm, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		observability.RecordAdminRBACMutation(ctx, "permission", "delete", "error")
		return err
	}
	observability.RecordAdminRBACMutation(ctx, "permission", "delete", "success")
	s.invalidateAll(ctx)
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventPermissionDeleted, notify.DeletedPayload("permission", perm.ID, perm.Name))
	return nil
}

func (s *PermissionService) GetByID(id uint) (*domain.Permission, error) { return s.repo.FindByID(id) }
func (s *PermissionService) List() ([]domain.Permission, error)          { return s.repo.List() }

func (s *PermissionService) invalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "snapshot invalidation failed", "error", err)
	}
}

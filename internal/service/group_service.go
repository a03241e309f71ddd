package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
)

// GroupService manages the group catalog. Group renames matter to the
// resolver because privileged-group membership is decided by name, so every
// update and delete publishes on the admin topic and drops cached snapshots
// for the group's members.
type GroupService struct {
	groupRepo repository.GroupRepository
	notifier  notify.Publisher
	cache     SnapshotInvalidator
	logger    *slog.Logger
}

func NewGroupService(
	groupRepo repository.GroupRepository,
	notifier notify.Publisher,
	cache SnapshotInvalidator,
	logger *slog.Logger,
) *GroupService {
	return &GroupService{groupRepo: groupRepo, notifier: notifier, cache: cache, logger: logger}
}

func (s *GroupService) Create(ctx context.Context, name, description string) (*domain.Group, error) {
	group := &domain.Group{Name: strings.TrimSpace(name), Description: strings.TrimSpace(description)}
	if err := s.groupRepo.Create(group); err != nil {
		observability.RecordAdminRBACMutation(ctx, "group", "create", "error")
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "group", "create", "success")
	return group, nil
}

func (s *GroupService) Update(ctx context.Context, id uint, name, description string) (*domain.Group, error) {
	group, err := s.groupRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		group.Name = name
	}
	group.Description = strings.TrimSpace(description)
	if err := s.groupRepo.Update(group); err != nil {
		observability.RecordAdminRBACMutation(ctx, "group", "update", "error")
		return nil, err
	}
	observability.RecordAdminRBACMutation(ctx, "group", "update", "success")
	s.invalidateMembers(ctx, id)
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventGroupUpdated, notify.GroupPayload(group))
	return group, nil
}

func (s *GroupService) Delete(ctx context.Context, id uint) error {
	group, err := s.groupRepo.FindByID(id)
	if err != nil {
		return err
	}
	// Members must be invalidated with the ids captured before the delete
	// nulls their group_id.
	members, err := s.groupRepo.MemberIDs(id)
	if err != nil {
		return err
	}
	if err := s.groupRepo.Delete(id); err != nil {
		observability.RecordAdminRBACMutation(ctx, "group", "delete", "error")
		return err
	}
	observability.RecordAdminRBACMutation(ctx, "group", "delete", "success")
	if s.cache != nil {
		for _, userID := range members {
			_ = s.cache.InvalidateUser(ctx, userID)
		}
	}
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventGroupDeleted, notify.DeletedPayload("group", group.ID, group.Name))
	return nil
}

func (s *GroupService) GetByID(id uint) (*domain.Group, error) { return s.groupRepo.FindByID(id) }
func (s *GroupService) List() ([]domain.Group, error)          { return s.groupRepo.List() }

func (s *GroupService) invalidateMembers(ctx context.Context, groupID uint) {
	if s.cache == nil {
		return
	}
	members, err := s.groupRepo.MemberIDs(groupID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("snapshot invalidation sweep failed", "group_id", groupID, "error", err)
		}
		_ = s.cache.InvalidateAll(ctx)
		return
	}
	for _, userID := range members {
		_ = s.cache.InvalidateUser(ctx, userID)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
)

var ErrCategoryNameRequired = errors.New("category name is required")

// CategoryService manages the category catalog and per-user assignments.
// Assignments carry the "at most one primary" invariant; unlike emails a
// user may legitimately have no primary category.
type CategoryService struct {
	db       *gorm.DB
	repo     repository.CategoryRepository
	notifier notify.Publisher
	logger   *slog.Logger
}

func NewCategoryService(db *gorm.DB, repo repository.CategoryRepository, notifier notify.Publisher, logger *slog.Logger) *CategoryService {
	return &CategoryService{db: db, repo: repo, notifier: notifier, logger: logger}
}

func (s *CategoryService) Create(ctx context.Context, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCategoryNameRequired
	}
	category := &domain.Category{Name: name, Description: strings.TrimSpace(description)}
	if err := s.repo.Create(category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, name, description string) (*domain.Category, error) {
	category, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		category.Name = name
	}
	category.Description = strings.TrimSpace(description)
	if err := s.repo.Update(category); err != nil {
		return nil, err
	}
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventCategoryUpdated, notify.CategoryPayload(category))
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	category, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventCategoryDeleted, notify.DeletedPayload("category", category.ID, category.Name))
	return nil
}

func (s *CategoryService) List() ([]domain.Category, error) { return s.repo.List() }

func (s *CategoryService) AssignmentsForUser(userID uint) ([]domain.CategoryAssignment, error) {
	return s.repo.AssignmentsForUser(userID)
}

// Assign links a category to a user. Primary is honored as requested; a
// first assignment without the flag stays non-primary, which is a valid
// zero-primary state for this scope.
func (s *CategoryService) Assign(ctx context.Context, userID, categoryID uint, primary bool, assignedBy uint) (*domain.CategoryAssignment, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "categories", "assign", outcome, time.Since(start))
	}()

	if _, err := s.repo.FindByID(categoryID); err != nil {
		outcome = "not_found"
		return nil, err
	}

	assignment := &domain.CategoryAssignment{
		UserID:     userID,
		CategoryID: categoryID,
		IsPrimary:  primary,
		AssignedAt: time.Now().UTC(),
		AssignedBy: assignedBy,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&domain.CategoryAssignment{}).
			Where("user_id = ? AND category_id = ?", userID, categoryID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: category already assigned", ErrInvariant)
		}
		if err := tx.Create(assignment).Error; err != nil {
			return err
		}
		if assignment.IsPrimary {
			return demoteSiblings(tx, &domain.CategoryAssignment{}, userID, assignment.ID)
		}
		return nil
	})
	if err != nil {
		outcome = errOutcome(err)
		return nil, err
	}
	return assignment, nil
}

func (s *CategoryService) SetPrimary(ctx context.Context, userID, assignmentID uint) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "categories", "set_primary", outcome, time.Since(start))
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		res := tx.Model(&domain.CategoryAssignment{}).
			Where("id = ? AND user_id = ?", assignmentID, userID).
			Update("is_primary", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrCategoryNotFound
		}
		return demoteSiblings(tx, &domain.CategoryAssignment{}, userID, assignmentID)
	})
	if err != nil {
		outcome = errOutcome(err)
	}
	return err
}

// Unassign removes a category assignment. Dropping the primary promotes the
// earliest remaining assignment; an empty scope is fine.
func (s *CategoryService) Unassign(ctx context.Context, userID, assignmentID uint) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "categories", "unassign", outcome, time.Since(start))
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		var assignment domain.CategoryAssignment
		err := tx.Where("id = ? AND user_id = ?", assignmentID, userID).First(&assignment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrCategoryNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&assignment).Error; err != nil {
			return err
		}
		if assignment.IsPrimary {
			return promoteOldest(tx, &domain.CategoryAssignment{}, userID)
		}
		return nil
	})
	if err != nil {
		outcome = errOutcome(err)
	}
	return err
}

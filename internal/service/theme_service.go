package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/notify"
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
)

var ErrThemeNameRequired = errors.New("theme name is required")

// ThemeService manages the theme catalog. The default flag is a global
// singleton: system-wide at most one theme has is_default=true.
type ThemeService struct {
	db       *gorm.DB
	repo     repository.ThemeRepository
	notifier notify.Publisher
	logger   *slog.Logger
}

func NewThemeService(db *gorm.DB, repo repository.ThemeRepository, notifier notify.Publisher, logger *slog.Logger) *ThemeService {
	return &ThemeService{db: db, repo: repo, notifier: notifier, logger: logger}
}

func (s *ThemeService) Create(ctx context.Context, name, slug string, isDefault bool) (*domain.Theme, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "themes", "create", outcome, time.Since(start))
	}()

	name = strings.TrimSpace(name)
	if name == "" {
		outcome = "bad_request"
		return nil, ErrThemeNameRequired
	}
	if slug = strings.TrimSpace(slug); slug == "" {
		slug = strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	}

	theme := &domain.Theme{Name: name, Slug: slug, IsDefault: isDefault}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Theme{}).Count(&count).Error; err != nil {
			return err
		}
		// The first theme in the catalog becomes the default.
		theme.IsDefault = isDefault || count == 0
		if err := tx.Create(theme).Error; err != nil {
			return err
		}
		if theme.IsDefault {
			return unsetOtherDefaults(tx, theme.ID)
		}
		return nil
	})
	if err != nil {
		outcome = "error"
		return nil, err
	}
	if theme.IsDefault {
		publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventThemeDefaultChanged, notify.ThemePayload(theme))
	}
	return theme, nil
}

// SetDefault flips the global default to the given theme and unsets every
// other row in the same transaction.
func (s *ThemeService) SetDefault(ctx context.Context, id uint) (*domain.Theme, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "themes", "set_default", outcome, time.Since(start))
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var theme domain.Theme
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&theme, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrThemeNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&theme).Update("is_default", true).Error; err != nil {
			return err
		}
		return unsetOtherDefaults(tx, id)
	})
	if err != nil {
		outcome = errOutcome(err)
		return nil, err
	}
	theme, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, s.notifier, s.logger, notify.TopicAdmin, notify.EventThemeDefaultChanged, notify.ThemePayload(theme))
	return theme, nil
}

// Delete removes a theme; deleting the default promotes the earliest
// remaining theme so a non-empty catalog keeps a default.
func (s *ThemeService) Delete(ctx context.Context, id uint) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "themes", "delete", outcome, time.Since(start))
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var theme domain.Theme
		err := tx.First(&theme, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrThemeNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&theme).Error; err != nil {
			return err
		}
		if !theme.IsDefault {
			return nil
		}
		var next struct{ ID uint }
		err = tx.Model(&domain.Theme{}).Order("created_at, id").Select("id").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&domain.Theme{}).Where("id = ?", next.ID).Update("is_default", true).Error
	})
	if err != nil {
		outcome = errOutcome(err)
	}
	return err
}

func (s *ThemeService) List() ([]domain.Theme, error)          { return s.repo.List() }
func (s *ThemeService) Default() (*domain.Theme, error)        { return s.repo.FindDefault() }
func (s *ThemeService) GetByID(id uint) (*domain.Theme, error) { return s.repo.FindByID(id) }

func unsetOtherDefaults(tx *gorm.DB, keepID uint) error {
	return tx.Model(&domain.Theme{}).
		Where("id <> ? AND is_default = ?", keepID, true).
		Update("is_default", false).Error
}

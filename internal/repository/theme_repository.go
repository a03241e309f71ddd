package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
)

type ThemeRepository interface {
	FindByID(id uint) (*domain.Theme, error)
	FindDefault() (*domain.Theme, error)
	List() ([]domain.Theme, error)
	Create(theme *domain.Theme) error
	Update(theme *domain.Theme) error
	Delete(id uint) error
}

type GormThemeRepository struct{ db *gorm.DB }

func NewThemeRepository(db *gorm.DB) ThemeRepository { return &GormThemeRepository{db: db} }

func (r *GormThemeRepository) FindByID(id uint) (*domain.Theme, error) {
	var theme domain.Theme
	err := r.db.First(&theme, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &theme, nil
}

func (r *GormThemeRepository) FindDefault() (*domain.Theme, error) {
	var theme domain.Theme
	err := r.db.Where("is_default = ?", true).First(&theme).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &theme, nil
}

func (r *GormThemeRepository) List() ([]domain.Theme, error) {
	var themes []domain.Theme
	err := r.db.Order("name").Find(&themes).Error
	return themes, err
}

func (r *GormThemeRepository) Create(theme *domain.Theme) error { return r.db.Create(theme).Error }
func (r *GormThemeRepository) Update(theme *domain.Theme) error { return r.db.Save(theme).Error }

func (r *GormThemeRepository) Delete(id uint) error {
	res := r.db.Delete(&domain.Theme{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrThemeNotFound
	}
	return nil
}

package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
)

type CategoryRepository interface {
	FindByID(id uint) (*domain.Category, error)
	List() ([]domain.Category, error)
	Create(category *domain.Category) error
	Update(category *domain.Category) error
	Delete(id uint) error
	AssignmentsForUser(userID uint) ([]domain.CategoryAssignment, error)
}

type GormCategoryRepository struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) FindByID(id uint) (*domain.Category, error) {
	var category domain.Category
	err := r.db.First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *GormCategoryRepository) List() ([]domain.Category, error) {
	var categories []domain.Category
	err := r.db.Order("name").Find(&categories).Error
	return categories, err
}

func (r *GormCategoryRepository) Create(category *domain.Category) error {
	return r.db.Create(category).Error
}

func (r *GormCategoryRepository) Update(category *domain.Category) error {
	return r.db.Save(category).Error
}

func (r *GormCategoryRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&domain.CategoryAssignment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCategoryNotFound
		}
		return nil
	})
}

func (r *GormCategoryRepository) AssignmentsForUser(userID uint) ([]domain.CategoryAssignment, error) {
	var assignments []domain.CategoryAssignment
	err := r.db.Preload("Category").Where("user_id = ?", userID).
		Order("created_at, id").Find(&assignments).Error
	return assignments, err
}

package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
)

type PermissionRepository interface {
	FindByID(id uint) (*domain.Permission, error)
	FindByIDs(ids []uint) ([]domain.Permission, error)
	FindByName(name, guard string) (*domain.Permission, error)
	List() ([]domain.Permission, error)
	Create(perm *domain.Permission) error
	Update(perm *domain.Permission) error
	Delete(id uint) error
}

type GormPermissionRepository struct{ db *gorm.DB }

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &GormPermissionRepository{db: db}
}

func (r *GormPermissionRepository) FindByID(id uint) (*domain.Permission, error) {
	var perm domain.Permission
	err := r.db.First(&perm, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPermissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *GormPermissionRepository) FindByIDs(ids []uint) ([]domain.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var perms []domain.Permission
	if err := r.db.Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *GormPermissionRepository) FindByName(name, guard string) (*domain.Permission, error) {
	var perm domain.Permission
	err := r.db.Where("name = ? AND guard_name = ?", name, guard).First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPermissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *GormPermissionRepository) List() ([]domain.Permission, error) {
	var perms []domain.Permission
	err := r.db.Order("name").Find(&perms).Error
	return perms, err
}

func (r *GormPermissionRepository) Create(perm *domain.Permission) error {
	return r.db.Create(perm).Error
}

func (r *GormPermissionRepository) Update(perm *domain.Permission) error {
	return r.db.Save(perm).Error
}

func (r *GormPermissionRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", id).Delete(&domain.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("permission_id = ?", id).Delete(&domain.UserPermission{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Permission{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPermissionNotFound
		}
		return nil
	})
}

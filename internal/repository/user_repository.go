package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
)

type UserRepository interface {
	FindByID(id uint) (*domain.User, error)
	FindByUsername(username string) (*domain.User, error)
	Create(user *domain.User) error
	Update(user *domain.User) error
	UpdateStatus(id uint, status string) error
	List() ([]domain.User, error)
	SetRoles(userID uint, roleIDs []uint) error
	SetGroup(userID uint, groupID *uint) error
	SetDirectGrants(userID uint, grants []domain.UserPermission) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Group").
		Preload("Roles.Permissions").
		Preload("DirectGrants.Permission").
		Preload("Emails").
		Preload("Phones")
}

func (r *GormUserRepository) FindByID(id uint) (*domain.User, error) {
	var u domain.User
	err := r.preload(r.db).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByUsername(username string) (*domain.User, error) {
	var u domain.User
	err := r.preload(r.db).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) Create(user *domain.User) error { return r.db.Create(user).Error }
func (r *GormUserRepository) Update(user *domain.User) error { return r.db.Save(user).Error }

func (r *GormUserRepository) UpdateStatus(id uint, status string) error {
	tx := r.db.Model(&domain.User{}).Where("id = ?", id).Update("status", status)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *GormUserRepository) List() ([]domain.User, error) {
	var users []domain.User
	err := r.db.Preload("Group").Preload("Roles").Find(&users).Error
	return users, err
}

func (r *GormUserRepository) SetRoles(userID uint, roleIDs []uint) error {
	var roles []domain.Role
	if len(roleIDs) > 0 {
		if err := r.db.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return err
		}
	}
	u := domain.User{ID: userID}
	return r.db.Model(&u).Association("Roles").Replace(roles)
}

func (r *GormUserRepository) SetGroup(userID uint, groupID *uint) error {
	tx := r.db.Model(&domain.User{}).Where("id = ?", userID).Update("group_id", groupID)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetDirectGrants replaces the user's direct permission pivots, keeping at
// most one row per (user, permission) pair.
func (r *GormUserRepository) SetDirectGrants(userID uint, grants []domain.UserPermission) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&domain.UserPermission{}).Error; err != nil {
			return err
		}
		seen := make(map[uint]struct{}, len(grants))
		for _, g := range grants {
			if _, dup := seen[g.PermissionID]; dup {
				continue
			}
			seen[g.PermissionID] = struct{}{}
			row := domain.UserPermission{UserID: userID, PermissionID: g.PermissionID, Negative: g.Negative}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

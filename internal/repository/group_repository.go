package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
)

type GroupRepository interface {
	FindByID(id uint) (*domain.Group, error)
	FindByName(name string) (*domain.Group, error)
	List() ([]domain.Group, error)
	Create(group *domain.Group) error
	Update(group *domain.Group) error
	Delete(id uint) error
	MemberIDs(groupID uint) ([]uint, error)
}

type GormGroupRepository struct{ db *gorm.DB }

func NewGroupRepository(db *gorm.DB) GroupRepository { return &GormGroupRepository{db: db} }

func (r *GormGroupRepository) FindByID(id uint) (*domain.Group, error) {
	var group domain.Group
	err := r.db.First(&group, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *GormGroupRepository) FindByName(name string) (*domain.Group, error) {
	var group domain.Group
	err := r.db.Where("name = ?", name).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *GormGroupRepository) List() ([]domain.Group, error) {
	var groups []domain.Group
	err := r.db.Order("name").Find(&groups).Error
	return groups, err
}

func (r *GormGroupRepository) Create(group *domain.Group) error { return r.db.Create(group).Error }
func (r *GormGroupRepository) Update(group *domain.Group) error { return r.db.Save(group).Error }

// Delete detaches members before removing the group so users are left
// group-less rather than pointing at a missing row.
func (r *GormGroupRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.User{}).Where("group_id = ?", id).Update("group_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Group{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrGroupNotFound
		}
		return nil
	})
}

func (r *GormGroupRepository) MemberIDs(groupID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&domain.User{}).Where("group_id = ?", groupID).Pluck("id", &ids).Error
	return ids, err
}

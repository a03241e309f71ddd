package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
)

type CredentialRepository interface {
	FindByUserID(userID uint) (*domain.Credential, error)
	Upsert(cred *domain.Credential) error
}

type GormCredentialRepository struct{ db *gorm.DB }

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &GormCredentialRepository{db: db}
}

func (r *GormCredentialRepository) FindByUserID(userID uint) (*domain.Credential, error) {
	var cred domain.Credential
	err := r.db.Where("user_id = ?", userID).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *GormCredentialRepository) Upsert(cred *domain.Credential) error {
	var existing domain.Credential
	err := r.db.Where("user_id = ?", cred.UserID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(cred).Error
	}
	if err != nil {
		return err
	}
	existing.PasswordHash = cred.PasswordHash
	return r.db.Save(&existing).Error
}

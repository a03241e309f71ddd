package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/orgstack/identity-admin/internal/domain"
)

type ContactRepository interface {
	EmailsForUser(userID uint) ([]domain.Email, error)
	FindEmail(id uint) (*domain.Email, error)
	PhonesForUser(userID uint) ([]domain.Phone, error)
	FindPhone(id uint) (*domain.Phone, error)
}

type GormContactRepository struct{ db *gorm.DB }

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &GormContactRepository{db: db}
}

func (r *GormContactRepository) EmailsForUser(userID uint) ([]domain.Email, error) {
	var emails []domain.Email
	err := r.db.Where("user_id = ?", userID).Order("created_at, id").Find(&emails).Error
	return emails, err
}

func (r *GormContactRepository) FindEmail(id uint) (*domain.Email, error) {
	var email domain.Email
	err := r.db.First(&email, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEmailNotFound
	}
	if err != nil {
		return nil, err
	}
	return &email, nil
}

func (r *GormContactRepository) PhonesForUser(userID uint) ([]domain.Phone, error) {
	var phones []domain.Phone
	err := r.db.Where("user_id = ?", userID).Order("created_at, id").Find(&phones).Error
	return phones, err
}

func (r *GormContactRepository) FindPhone(id uint) (*domain.Phone, error) {
	var phone domain.Phone
	err := r.db.First(&phone, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPhoneNotFound
	}
	if err != nil {
		return nil, err
	}
	return &phone, nil
}

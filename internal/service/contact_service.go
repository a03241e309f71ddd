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
	"github.com/orgstack/identity-admin/internal/observability"
	"github.com/orgstack/identity-admin/internal/repository"
)

var (
	ErrEmailAddressRequired = errors.New("email address is required")
	ErrPhoneNumberRequired  = errors.New("phone number is required")
)

// ContactService owns a user's email and phone collections and their
// "exactly one primary" invariant. Every mutation runs in one transaction
// that locks the owning user row, so concurrent mutations for the same user
// serialize while different users proceed independently. The is_primary
// flips are a side effect of the mutation itself, never left to callers.
type ContactService struct {
	db     *gorm.DB
	repo   repository.ContactRepository
	logger *slog.Logger
}

func NewContactService(db *gorm.DB, repo repository.ContactRepository, logger *slog.Logger) *ContactService {
	return &ContactService{db: db, repo: repo, logger: logger}
}

// lockUser serializes singleton-collection writers per principal. The
// postgres dialect takes a row lock; sqlite drops the clause and relies on
// its single-writer transactions.
func lockUser(tx *gorm.DB, userID uint) error {
	var user domain.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrUserNotFound
	}
	return err
}

func (s *ContactService) AddEmail(ctx context.Context, userID uint, address string, primary bool) (*domain.Email, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "emails", "add", outcome, time.Since(start))
	}()

	address = strings.TrimSpace(strings.ToLower(address))
	if address == "" {
		outcome = "bad_request"
		return nil, ErrEmailAddressRequired
	}

	email := &domain.Email{UserID: userID, Address: address}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&domain.Email{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		// The first email is always primary regardless of the request.
		email.IsPrimary = primary || count == 0
		if err := tx.Create(email).Error; err != nil {
			return err
		}
		if email.IsPrimary {
			return demoteSiblings(tx, &domain.Email{}, userID, email.ID)
		}
		return nil
	})
	if err != nil {
		outcome = "error"
		return nil, err
	}
	return email, nil
}

func (s *ContactService) SetPrimaryEmail(ctx context.Context, userID, emailID uint) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "emails", "set_primary", outcome, time.Since(start))
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		res := tx.Model(&domain.Email{}).
			Where("id = ? AND user_id = ?", emailID, userID).
			Update("is_primary", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrEmailNotFound
		}
		return demoteSiblings(tx, &domain.Email{}, userID, emailID)
	})
	if err != nil {
		outcome = errOutcome(err)
	}
	return err
}

func (s *ContactService) RemoveEmail(ctx context.Context, userID, emailID uint) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "emails", "remove", outcome, time.Since(start))
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		var email domain.Email
		err := tx.Where("id = ? AND user_id = ?", emailID, userID).First(&email).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrEmailNotFound
		}
		if err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&domain.Email{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		// Rejected before any write: an identity always keeps one email.
		if count <= 1 {
			return ErrLastEmail
		}
		if err := tx.Delete(&email).Error; err != nil {
			return err
		}
		if email.IsPrimary {
			return promoteOldest(tx, &domain.Email{}, userID)
		}
		return nil
	})
	if err != nil {
		outcome = errOutcome(err)
	}
	return err
}

func (s *ContactService) AddPhone(ctx context.Context, userID uint, number string, primary bool) (*domain.Phone, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "phones", "add", outcome, time.Since(start))
	}()

	number = strings.TrimSpace(number)
	if number == "" {
		outcome = "bad_request"
		return nil, ErrPhoneNumberRequired
	}

	phone := &domain.Phone{UserID: userID, Number: number}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&domain.Phone{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		phone.IsPrimary = primary || count == 0
		if err := tx.Create(phone).Error; err != nil {
			return err
		}
		if phone.IsPrimary {
			return demoteSiblings(tx, &domain.Phone{}, userID, phone.ID)
		}
		return nil
	})
	if err != nil {
		outcome = "error"
		return nil, err
	}
	return phone, nil
}

func (s *ContactService) SetPrimaryPhone(ctx context.Context, userID, phoneID uint) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "phones", "set_primary", outcome, time.Since(start))
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		res := tx.Model(&domain.Phone{}).
			Where("id = ? AND user_id = ?", phoneID, userID).
			Update("is_primary", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrPhoneNotFound
		}
		return demoteSiblings(tx, &domain.Phone{}, userID, phoneID)
	})
	if err != nil {
		outcome = errOutcome(err)
	}
	return err
}

// RemovePhone deletes a phone; unlike emails the collection may end up
// empty.
func (s *ContactService) RemovePhone(ctx context.Context, userID, phoneID uint) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordInvariantOperation(ctx, "phones", "remove", outcome, time.Since(start))
	}()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID); err != nil {
			return err
		}
		var phone domain.Phone
		err := tx.Where("id = ? AND user_id = ?", phoneID, userID).First(&phone).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrPhoneNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&phone).Error; err != nil {
			return err
		}
		if phone.IsPrimary {
			return promoteOldest(tx, &domain.Phone{}, userID)
		}
		return nil
	})
	if err != nil {
		outcome = errOutcome(err)
	}
	return err
}

func (s *ContactService) EmailsForUser(userID uint) ([]domain.Email, error) {
	return s.repo.EmailsForUser(userID)
}

func (s *ContactService) PhonesForUser(userID uint) ([]domain.Phone, error) {
	return s.repo.PhonesForUser(userID)
}

func errOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInvariant):
		return "invariant_violation"
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrEmailNotFound),
		errors.Is(err, repository.ErrPhoneNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrThemeNotFound):
		return "not_found"
	default:
		return "error"
	}
}

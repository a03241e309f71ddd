package service

import (
	"errors"

	"gorm.io/gorm"
)

// The helpers below are the primary-singleton enforcement shared by the
// email, phone and category-assignment collections. They run inside the
// caller's transaction, after the triggering insert/update, so no other
// transaction can observe a two-primary state and the collection settles on
// at most one primary row before commit.

// demoteSiblings clears is_primary on every row of the scope except keepID.
func demoteSiblings(tx *gorm.DB, model any, userID, keepID uint) error {
	return tx.Model(model).
		Where("user_id = ? AND id <> ? AND is_primary = ?", userID, keepID, true).
		Update("is_primary", false).Error
}

// promoteOldest makes the earliest-created remaining row primary, tie-broken
// by id. An empty scope is a valid terminal state and is left alone.
func promoteOldest(tx *gorm.DB, model any, userID uint) error {
	var row struct{ ID uint }
	err := tx.Model(model).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Select("id").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return tx.Model(model).Where("id = ?", row.ID).Update("is_primary", true).Error
}

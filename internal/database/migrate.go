package database

import (
	"github.com/orgstack/identity-admin/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Group{},
		&domain.User{},
		&domain.Role{},
		&domain.Permission{},
		&domain.UserRole{},
		&domain.RolePermission{},
		&domain.UserPermission{},
		&domain.Email{},
		&domain.Phone{},
		&domain.Category{},
		&domain.CategoryAssignment{},
		&domain.Theme{},
		&domain.Credential{},
	)
}

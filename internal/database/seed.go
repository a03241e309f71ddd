package database

import (
	"fmt"
	"strings"

	"github.com/orgstack/identity-admin/internal/domain"
	"github.com/orgstack/identity-admin/internal/security"

	"gorm.io/gorm"
)

var defaultPermissions = []string{
	"users.view",
	"users.create",
	"users.update",
	"users.delete",
	"roles.view",
	"roles.manage",
	"permissions.view",
	"permissions.manage",
	"groups.view",
	"groups.manage",
	"categories.view",
	"categories.manage",
	"themes.view",
	"themes.manage",
}

var defaultGroups = []domain.Group{
	{Name: "Administrators", Description: "Full administrative access"},
	{Name: "Webmaster", Description: "Site operations"},
}

type SeedReport struct {
	CreatedPermissions int  `json:"created_permissions"`
	CreatedRoles       int  `json:"created_roles"`
	CreatedGroups      int  `json:"created_groups"`
	CreatedThemes      int  `json:"created_themes"`
	BootstrapAdmin     bool `json:"bootstrap_admin"`
}

// Seed installs the permission catalog, baseline roles and groups, the
// default theme, and optionally a bootstrap super-admin account. It is
// idempotent; rerunning against a seeded database is a no-op.
func Seed(db *gorm.DB, superRole, adminUsername, adminPassword string) (*SeedReport, error) {
	report := &SeedReport{}

	for _, name := range defaultPermissions {
		p := domain.Permission{Name: name, GuardName: "web"}
		res := db.Where("name = ? AND guard_name = ?", p.Name, p.GuardName).FirstOrCreate(&p)
		if res.Error != nil {
			return nil, fmt.Errorf("seed permission %s: %w", name, res.Error)
		}
		if res.RowsAffected > 0 {
			report.CreatedPermissions++
		}
	}

	superRole = strings.TrimSpace(superRole)
	if superRole == "" {
		superRole = "Super Admin"
	}
	roles := []domain.Role{
		{Name: superRole, GuardName: "web", Description: "Holds every capability implicitly"},
		{Name: "Admin", GuardName: "web", Description: "Administers users and catalogs"},
		{Name: "User", GuardName: "web", Description: "Baseline access"},
	}
	for i := range roles {
		res := db.Where("name = ? AND guard_name = ?", roles[i].Name, roles[i].GuardName).FirstOrCreate(&roles[i])
		if res.Error != nil {
			return nil, fmt.Errorf("seed role %s: %w", roles[i].Name, res.Error)
		}
		if res.RowsAffected > 0 {
			report.CreatedRoles++
		}
	}

	var adminPerms []domain.Permission
	if err := db.Where("guard_name = ?", "web").Find(&adminPerms).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&roles[1]).Association("Permissions").Replace(&adminPerms); err != nil {
		return nil, fmt.Errorf("bind admin permissions: %w", err)
	}
	var viewPerms []domain.Permission
	if err := db.Where("guard_name = ? AND name LIKE ?", "web", "%.view").Find(&viewPerms).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&roles[2]).Association("Permissions").Replace(&viewPerms); err != nil {
		return nil, fmt.Errorf("bind user permissions: %w", err)
	}

	for _, g := range defaultGroups {
		res := db.Where("name = ?", g.Name).FirstOrCreate(&g)
		if res.Error != nil {
			return nil, fmt.Errorf("seed group %s: %w", g.Name, res.Error)
		}
		if res.RowsAffected > 0 {
			report.CreatedGroups++
		}
	}

	theme := domain.Theme{Name: "Default", Slug: "default", IsDefault: true}
	var themeCount int64
	if err := db.Model(&domain.Theme{}).Count(&themeCount).Error; err != nil {
		return nil, err
	}
	if themeCount == 0 {
		if err := db.Create(&theme).Error; err != nil {
			return nil, fmt.Errorf("seed theme: %w", err)
		}
		report.CreatedThemes++
	}

	if adminUsername != "" && adminPassword != "" {
		created, err := seedBootstrapAdmin(db, &roles[0], adminUsername, adminPassword)
		if err != nil {
			return nil, err
		}
		report.BootstrapAdmin = created
	}
	return report, nil
}

func seedBootstrapAdmin(db *gorm.DB, superRole *domain.Role, username, password string) (bool, error) {
	user := domain.User{Username: username, Name: "Bootstrap Administrator", Status: domain.UserStatusActive}
	res := db.Where("username = ?", username).FirstOrCreate(&user)
	if res.Error != nil {
		return false, fmt.Errorf("seed bootstrap admin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := db.Model(&user).Association("Roles").Append(superRole); err != nil {
		return false, err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return false, err
	}
	if err := db.Create(&domain.Credential{UserID: user.ID, PasswordHash: hash}).Error; err != nil {
		return false, err
	}
	return true, nil
}

package domain

import "time"

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex:idx_roles_name_guard;size:255;not null" json:"name"`
	GuardName   string    `gorm:"uniqueIndex:idx_roles_name_guard;size:64;not null;default:web" json:"guard_name"`
	Description string    `gorm:"size:500" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
}

// Permission names are dotted "module.action" capabilities, unique per guard.
type Permission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex:idx_permissions_name_guard;size:255;not null" json:"name"`
	GuardName string    `gorm:"uniqueIndex:idx_permissions_name_guard;size:64;not null;default:web" json:"guard_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserRole struct {
	UserID uint `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	RoleID uint `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
}

// RolePermission carries the schema's negative column, but role-level deny
// is not a feature: no write path sets it and the resolver never reads it.
// Deny semantics live on UserPermission only.
type RolePermission struct {
	RoleID       uint `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
	PermissionID uint `gorm:"primaryKey;autoIncrement:false" json:"permission_id"`
	Negative     bool `gorm:"not null;default:false" json:"negative"`
}

// UserPermission is a direct grant; Negative=true is an explicit revocation
// that overrides the privileged-group default allow.
type UserPermission struct {
	UserID       uint       `gorm:"primaryKey;autoIncrement:false;index:idx_user_permissions_lookup" json:"user_id"`
	PermissionID uint       `gorm:"primaryKey;autoIncrement:false;index:idx_user_permissions_lookup" json:"permission_id"`
	Negative     bool       `gorm:"not null;default:false" json:"negative"`
	Permission   Permission `json:"permission,omitempty"`
}

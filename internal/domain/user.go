package domain

import "time"

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;size:255;not null" json:"username"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Status      string    `gorm:"size:32;not null;default:active;index:idx_users_status" json:"status"`
	GroupID     *uint     `gorm:"index" json:"group_id,omitempty"`
	Group       *Group    `json:"group,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Roles        []Role           `gorm:"many2many:user_roles" json:"roles,omitempty"`
	Emails       []Email          `json:"emails,omitempty"`
	Phones       []Phone          `json:"phones,omitempty"`
	DirectGrants []UserPermission `json:"direct_grants,omitempty"`
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// GroupName returns the user's group name or "" when the user has no group.
func (u *User) GroupName() string {
	if u.Group == nil {
		return ""
	}
	return u.Group.Name
}

package domain

import "time"

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:255;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryAssignment links a user to a category with assignment metadata.
// At most one assignment per user carries IsPrimary=true.
type CategoryAssignment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_category_assignments_user" json:"user_id"`
	CategoryID uint      `gorm:"not null;index" json:"category_id"`
	Category   Category  `json:"category,omitempty"`
	IsPrimary  bool      `gorm:"not null;default:false;index:idx_category_assignments_user" json:"is_primary"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
	AssignedBy uint      `json:"assigned_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

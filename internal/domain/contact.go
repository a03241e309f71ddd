package domain

import "time"

type Email struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_emails_user" json:"user_id"`
	Address   string    `gorm:"size:255;not null" json:"address"`
	IsPrimary bool      `gorm:"not null;default:false;index:idx_emails_user" json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Phone struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_phones_user" json:"user_id"`
	Number    string    `gorm:"size:64;not null" json:"number"`
	IsPrimary bool      `gorm:"not null;default:false;index:idx_phones_user" json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package models

import "time"

// Profile holds the public-facing identity of a user. Created together with
// the User at sign-up, visible to friends.
type Profile struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex;not null"`
	Username  string `gorm:"size:64"`
	Email     string `gorm:"size:128;index"`
	AvatarURL string `gorm:"size:512"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}

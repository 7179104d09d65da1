package models

import "time"

// Friendship statuses.
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipRejected = "rejected"
)

// Friendship is a directional edge: UserID sent the request, FriendID
// received it. At most one edge may exist per unordered pair; inserts check
// both directions before creating one.
type Friendship struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index:idx_friend_pair;not null"`
	FriendID  uint   `gorm:"index:idx_friend_pair;not null"`
	Status    string `gorm:"size:16;index;not null"` // pending / accepted / rejected
	CreatedAt time.Time
	UpdatedAt time.Time

	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Friend User `gorm:"foreignKey:FriendID;constraint:OnDelete:CASCADE"`
}

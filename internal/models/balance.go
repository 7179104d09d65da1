package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money source pools. Every transaction moves money in exactly one of them.
const (
	SourcePhysical = "physical"
	SourcePix      = "pix"
)

// Balance keeps the running total of both money pools for one user.
// Exactly one row per user, created at sign-up with both pools at zero.
// The totals are maintained inside the same database transaction that
// appends to the transaction log, so they always equal the sum of the log.
type Balance struct {
	ID             uint            `gorm:"primaryKey"`
	UserID         uint            `gorm:"uniqueIndex;not null"`
	PhysicalAmount decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	PixAmount      decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	UpdatedAt      time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}

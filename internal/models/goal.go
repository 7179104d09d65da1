package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal represents a named savings target. CurrentAmount grows only through
// income transactions linked to the goal.
type Goal struct {
	ID            uint            `gorm:"primaryKey"`
	UserID        uint            `gorm:"index;not null"`
	Name          string          `gorm:"size:128;not null"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	ProductLink   string          `gorm:"size:512"`
	ImageURL      string          `gorm:"size:512"`
	IsCompleted   bool            `gorm:"index;not null"`
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}

// ProgressPercent returns the completion percentage clamped to [0, 100].
// A non-positive target would divide by zero, so it reports 0.
func (g *Goal) ProgressPercent() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	pct, _ := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Float64()
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

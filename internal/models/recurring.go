package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recurring transaction frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// RecurringTransaction is a template that produces a normal ledger
// transaction each time its schedule elapses. Processing happens on demand,
// there is no background scheduler.
type RecurringTransaction struct {
	ID              uint            `gorm:"primaryKey"`
	UserID          uint            `gorm:"index;not null"`
	Type            string          `gorm:"size:16;not null"`
	Source          string          `gorm:"size:16;not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Description     string          `gorm:"size:255"`
	Frequency       string          `gorm:"size:16;not null"` // daily / weekly / monthly
	DayOfMonth      *int            // 1-31, monthly only
	DayOfWeek       *int            // 0=Sunday .. 6=Saturday, weekly only
	IsActive        bool            `gorm:"index;not null"`
	LastProcessedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}

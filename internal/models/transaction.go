package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Transaction is one immutable money movement. The transaction log is the
// source of truth; Balance and Goal totals are derived from it. There is no
// update or delete path for transactions.
type Transaction struct {
	ID          uint            `gorm:"primaryKey"`
	UserID      uint            `gorm:"index;not null"`
	Type        string          `gorm:"size:16;index;not null"` // income / expense
	Source      string          `gorm:"size:16;index;not null"` // physical / pix
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Description string          `gorm:"size:255"`
	GoalID      *uint           `gorm:"index"` // only set on income
	CreatedAt   time.Time       `gorm:"index"`

	User User  `gorm:"constraint:OnDelete:CASCADE"`
	Goal *Goal `gorm:"constraint:OnDelete:SET NULL"`
}

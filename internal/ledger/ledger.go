// Package ledger keeps the per-user balance and goal totals consistent with
// the append-only transaction log. Every write runs inside a single database
// transaction: the log row, the balance increment and the goal increment
// either all commit or none do, so two clients recording at the same time
// can never lose an update.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"cofrinho/internal/models"
	"cofrinho/internal/util"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrGoalNotFound is returned when a linked goal does not exist or
	// belongs to another user.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrBalanceNotFound is returned when the user has no balance row.
	ErrBalanceNotFound = errors.New("balance not found")
)

// Service owns all mutations of balances, goals and the transaction log.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// IncomeInput describes an income movement. Only income may be linked to a
// goal; ExpenseInput has no goal field, so the meaningless combination of an
// expense with a goal cannot be expressed.
type IncomeInput struct {
	Source      string
	Amount      decimal.Decimal
	Description string
	GoalID      *uint
}

// ExpenseInput describes an expense movement.
type ExpenseInput struct {
	Source      string
	Amount      decimal.Decimal
	Description string
}

// Result is the state after a successful record, re-read from the database
// so callers never re-derive totals themselves.
type Result struct {
	Transaction   models.Transaction
	Balance       models.Balance
	Goal          *models.Goal
	GoalCompleted bool // true when this income pushed the goal over its target
}

// RecordIncome appends an income transaction and updates the balance and,
// when linked, the goal progress.
func (s *Service) RecordIncome(userID uint, in IncomeInput) (*Result, error) {
	return s.record(userID, models.TypeIncome, in.Source, in.Amount, in.Description, in.GoalID)
}

// RecordExpense appends an expense transaction and updates the balance.
// Expenses are not blocked by insufficient funds; a pool may go negative.
func (s *Service) RecordExpense(userID uint, in ExpenseInput) (*Result, error) {
	return s.record(userID, models.TypeExpense, in.Source, in.Amount, in.Description, nil)
}

func (s *Service) record(userID uint, txType, source string, amount decimal.Decimal, description string, goalID *uint) (*Result, error) {
	if err := util.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if err := util.ValidateSource(source); err != nil {
		return nil, err
	}

	res := &Result{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var goal *models.Goal
		if goalID != nil {
			var g models.Goal
			if err := tx.Where("id = ? AND user_id = ?", *goalID, userID).First(&g).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrGoalNotFound
				}
				return fmt.Errorf("load goal: %w", err)
			}
			goal = &g
		}

		trx := models.Transaction{
			UserID:      userID,
			Type:        txType,
			Source:      source,
			Amount:      amount,
			Description: description,
			GoalID:      goalID,
		}
		if err := tx.Create(&trx).Error; err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
		res.Transaction = trx

		column := "physical_amount"
		if source == models.SourcePix {
			column = "pix_amount"
		}
		delta := amount
		if txType == models.TypeExpense {
			delta = amount.Neg()
		}
		// increment in the database, never from client-held state
		upd := tx.Model(&models.Balance{}).
			Where("user_id = ?", userID).
			UpdateColumns(map[string]interface{}{
				column:       gorm.Expr(column+" + ?", delta),
				"updated_at": time.Now(),
			})
		if upd.Error != nil {
			return fmt.Errorf("update balance: %w", upd.Error)
		}
		if upd.RowsAffected == 0 {
			return ErrBalanceNotFound
		}

		if goal != nil {
			newAmount := goal.CurrentAmount.Add(amount)
			completed := newAmount.GreaterThanOrEqual(goal.TargetAmount)
			updates := map[string]interface{}{
				"current_amount": newAmount,
				"is_completed":   completed,
			}
			if completed && !goal.IsCompleted {
				now := time.Now()
				updates["completed_at"] = &now
				res.GoalCompleted = true
			}
			if err := tx.Model(&models.Goal{}).Where("id = ?", goal.ID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("update goal: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// resynchronize the caller's view from the committed state
	if err := s.DB.Where("user_id = ?", userID).First(&res.Balance).Error; err != nil {
		return nil, fmt.Errorf("reload balance: %w", err)
	}
	if goalID != nil {
		var g models.Goal
		if err := s.DB.First(&g, *goalID).Error; err != nil {
			return nil, fmt.Errorf("reload goal: %w", err)
		}
		res.Goal = &g
	}
	return res, nil
}

// PoolTotals are balance totals derived purely from the transaction log.
type PoolTotals struct {
	Physical decimal.Decimal
	Pix      decimal.Decimal
}

// DerivedBalance recomputes both pool totals by folding the transaction log.
// The stored balance row must always match this.
func (s *Service) DerivedBalance(userID uint) (*PoolTotals, error) {
	var trxs []models.Transaction
	if err := s.DB.Where("user_id = ?", userID).Find(&trxs).Error; err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	totals := &PoolTotals{
		Physical: decimal.Zero,
		Pix:      decimal.Zero,
	}
	for i := range trxs {
		t := &trxs[i]
		delta := t.Amount
		if t.Type == models.TypeExpense {
			delta = delta.Neg()
		}
		if t.Source == models.SourcePix {
			totals.Pix = totals.Pix.Add(delta)
		} else {
			totals.Physical = totals.Physical.Add(delta)
		}
	}
	return totals, nil
}

// CheckBalance compares the stored balance row against the derived totals.
func (s *Service) CheckBalance(userID uint) (stored *models.Balance, derived *PoolTotals, consistent bool, err error) {
	var b models.Balance
	if err = s.DB.Where("user_id = ?", userID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrBalanceNotFound
		}
		return nil, nil, false, err
	}
	derived, err = s.DerivedBalance(userID)
	if err != nil {
		return nil, nil, false, err
	}
	consistent = b.PhysicalAmount.Equal(derived.Physical) && b.PixAmount.Equal(derived.Pix)
	return &b, derived, consistent, nil
}

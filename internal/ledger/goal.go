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

// GoalInput carries the descriptive fields of a goal.
type GoalInput struct {
	Name         string
	TargetAmount decimal.Decimal
	ProductLink  string
	ImageURL     string
}

// CreateGoal creates a goal with zero progress.
func (s *Service) CreateGoal(userID uint, in GoalInput) (*models.Goal, error) {
	if in.Name == "" {
		return nil, errors.New("goal name is empty")
	}
	if err := util.ValidateAmount(in.TargetAmount); err != nil {
		return nil, fmt.Errorf("target amount: %w", err)
	}

	goal := models.Goal{
		UserID:        userID,
		Name:          in.Name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: decimal.Zero,
		ProductLink:   in.ProductLink,
		ImageURL:      in.ImageURL,
	}
	if err := s.DB.Create(&goal).Error; err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return &goal, nil
}

// EditGoal overwrites the descriptive fields of a goal. CurrentAmount is
// never touched, but completion is re-evaluated against the new target so
// lowering the target below the accumulated progress completes the goal
// immediately instead of leaving the flag stale until the next deposit.
func (s *Service) EditGoal(userID, goalID uint, in GoalInput) (*models.Goal, error) {
	if in.Name == "" {
		return nil, errors.New("goal name is empty")
	}
	if err := util.ValidateAmount(in.TargetAmount); err != nil {
		return nil, fmt.Errorf("target amount: %w", err)
	}

	var goal models.Goal
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGoalNotFound
			}
			return fmt.Errorf("load goal: %w", err)
		}

		completed := goal.CurrentAmount.GreaterThanOrEqual(in.TargetAmount)
		updates := map[string]interface{}{
			"name":          in.Name,
			"target_amount": in.TargetAmount,
			"product_link":  in.ProductLink,
			"image_url":     in.ImageURL,
			"is_completed":  completed,
		}
		switch {
		case completed && !goal.IsCompleted:
			now := time.Now()
			updates["completed_at"] = &now
		case !completed && goal.IsCompleted:
			updates["completed_at"] = gorm.Expr("NULL")
		}

		if err := tx.Model(&models.Goal{}).Where("id = ?", goal.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// reload into a fresh struct; reusing the populated one would keep a
	// stale completed_at when the column was set back to NULL
	var fresh models.Goal
	if err := s.DB.First(&fresh, goalID).Error; err != nil {
		return nil, fmt.Errorf("reload goal: %w", err)
	}
	return &fresh, nil
}

// DeleteGoal removes a goal. Historical transactions that reference it are
// kept; the foreign key nulls their goal_id.
func (s *Service) DeleteGoal(userID, goalID uint) error {
	res := s.DB.Where("id = ? AND user_id = ?", goalID, userID).Delete(&models.Goal{})
	if res.Error != nil {
		return fmt.Errorf("delete goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGoalNotFound
	}
	return nil
}

// GoalDeposits returns the income transactions linked to a goal, newest
// first.
func (s *Service) GoalDeposits(userID, goalID uint) ([]models.Transaction, error) {
	var goal models.Goal
	if err := s.DB.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("load goal: %w", err)
	}

	var trxs []models.Transaction
	if err := s.DB.
		Where("goal_id = ? AND type = ?", goalID, models.TypeIncome).
		Order("created_at DESC, id DESC").
		Find(&trxs).Error; err != nil {
		return nil, fmt.Errorf("load deposits: %w", err)
	}
	return trxs, nil
}

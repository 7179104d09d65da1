package util

import (
	"fmt"
	"net/mail"
	"strings"

	"cofrinho/internal/models"

	"github.com/shopspring/decimal"
)

// Amounts above this are rejected as typos.
var maxAmount = decimal.NewFromInt(10_000_000)

// ValidateAmount checks a monetary amount: positive and below the cap.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", amount)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("amount too large, got %s", amount)
	}
	return nil
}

// ValidateSource checks the money source pool.
func ValidateSource(source string) error {
	if source != models.SourcePhysical && source != models.SourcePix {
		return fmt.Errorf("invalid source %q", source)
	}
	return nil
}

// ValidateTransactionType checks the transaction type.
func ValidateTransactionType(t string) error {
	if t != models.TypeIncome && t != models.TypeExpense {
		return fmt.Errorf("invalid transaction type %q", t)
	}
	return nil
}

// ValidateEmail normalizes and checks an email address.
func ValidateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("email is empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("invalid email: %w", err)
	}
	return email, nil
}

// ValidateFrequency checks a recurring transaction schedule. DayOfMonth is
// required for monthly, DayOfWeek for weekly.
func ValidateFrequency(frequency string, dayOfMonth, dayOfWeek *int) error {
	switch frequency {
	case models.FrequencyDaily:
		return nil
	case models.FrequencyWeekly:
		if dayOfWeek == nil || *dayOfWeek < 0 || *dayOfWeek > 6 {
			return fmt.Errorf("weekly frequency needs day_of_week in 0-6")
		}
		return nil
	case models.FrequencyMonthly:
		if dayOfMonth == nil || *dayOfMonth < 1 || *dayOfMonth > 31 {
			return fmt.Errorf("monthly frequency needs day_of_month in 1-31")
		}
		return nil
	default:
		return fmt.Errorf("invalid frequency %q", frequency)
	}
}

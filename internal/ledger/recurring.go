package ledger

import (
	"fmt"
	"time"

	"cofrinho/internal/models"
	"cofrinho/internal/util"
)

// ProcessDue records one normal ledger transaction for every active
// recurring definition whose schedule has elapsed since its last run, and
// stamps the definition. Running it twice in the same period is a no-op.
func (s *Service) ProcessDue(userID uint, now time.Time) ([]Result, error) {
	var defs []models.RecurringTransaction
	if err := s.DB.
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("load recurring: %w", err)
	}

	var results []Result
	for i := range defs {
		def := &defs[i]
		if !isDue(def, now) {
			continue
		}

		// def.Type comes from a stored row, not a request binding
		if err := util.ValidateTransactionType(def.Type); err != nil {
			return results, fmt.Errorf("recurring %d: %w", def.ID, err)
		}

		var (
			res *Result
			err error
		)
		if def.Type == models.TypeIncome {
			res, err = s.RecordIncome(userID, IncomeInput{
				Source:      def.Source,
				Amount:      def.Amount,
				Description: def.Description,
			})
		} else {
			res, err = s.RecordExpense(userID, ExpenseInput{
				Source:      def.Source,
				Amount:      def.Amount,
				Description: def.Description,
			})
		}
		if err != nil {
			return results, fmt.Errorf("process recurring %d: %w", def.ID, err)
		}

		if err := s.DB.Model(def).
			UpdateColumn("last_processed_at", now).Error; err != nil {
			return results, fmt.Errorf("stamp recurring %d: %w", def.ID, err)
		}
		results = append(results, *res)
	}
	return results, nil
}

// isDue reports whether the most recent scheduled occurrence of def at time
// now is later than its last processing.
func isDue(def *models.RecurringTransaction, now time.Time) bool {
	due := lastOccurrence(def, now)
	if due.IsZero() {
		return false
	}
	return def.LastProcessedAt == nil || def.LastProcessedAt.Before(due)
}

// lastOccurrence returns the start of the most recent scheduled slot at or
// before now, or the zero time when the schedule has not come up yet.
func lastOccurrence(def *models.RecurringTransaction, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch def.Frequency {
	case models.FrequencyDaily:
		return today

	case models.FrequencyWeekly:
		if def.DayOfWeek == nil {
			return time.Time{}
		}
		offset := (int(today.Weekday()) - *def.DayOfWeek + 7) % 7
		return today.AddDate(0, 0, -offset)

	case models.FrequencyMonthly:
		if def.DayOfMonth == nil {
			return time.Time{}
		}
		occ := occurrenceInMonth(today.Year(), today.Month(), *def.DayOfMonth, now.Location())
		if occ.After(today) {
			// step back one calendar month by arithmetic; AddDate on a
			// late date normalizes past short months (Mar 30 - 1 month
			// lands in March again) and would yield a future occurrence
			occ = occurrenceInMonth(today.Year(), today.Month()-1, *def.DayOfMonth, now.Location())
		}
		return occ
	}
	return time.Time{}
}

// occurrenceInMonth clamps day to the length of the month (e.g. the 31st in
// February becomes the 28th/29th).
func occurrenceInMonth(year int, month time.Month, day int, loc *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

package ledger

import (
	"path/filepath"
	"testing"

	"cofrinho/internal/config"
	"cofrinho/internal/database"
	"cofrinho/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Path:    filepath.Join(t.TempDir(), "ledger_test.db"),
		LogMode: false,
	}

	db, err := database.Init(cfg)
	if err != nil {
		t.Fatalf("init test database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) uint {
	t.Helper()

	user := models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	balance := models.Balance{
		UserID:         user.ID,
		PhysicalAmount: decimal.Zero,
		PixAmount:      decimal.Zero,
	}
	require.NoError(t, db.Create(&balance).Error)
	return user.ID
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRecordIncomeUpdatesBalance(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	userID := createTestUser(t, db, "a@example.com")

	res, err := svc.RecordIncome(userID, IncomeInput{
		Source: models.SourcePix,
		Amount: dec("50.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.TypeIncome, res.Transaction.Type)
	assert.True(t, res.Balance.PixAmount.Equal(dec("50.00")), "pix = %s", res.Balance.PixAmount)
	assert.True(t, res.Balance.PhysicalAmount.IsZero())
}

func TestExpenseMayGoNegative(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	userID := createTestUser(t, db, "a@example.com")

	// scenario from the product: income 50 via pix, expense 20 via physical
	_, err := svc.RecordIncome(userID, IncomeInput{Source: models.SourcePix, Amount: dec("50.00")})
	require.NoError(t, err)

	res, err := svc.RecordExpense(userID, ExpenseInput{Source: models.SourcePhysical, Amount: dec("20.00")})
	require.NoError(t, err)

	// expenses are not blocked by insufficient funds
	assert.True(t, res.Balance.PhysicalAmount.Equal(dec("-20.00")), "physical = %s", res.Balance.PhysicalAmount)
	assert.True(t, res.Balance.PixAmount.Equal(dec("50.00")), "pix = %s", res.Balance.PixAmount)
}

func TestBalanceMatchesTransactionLog(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	userID := createTestUser(t, db, "a@example.com")

	steps := []struct {
		income bool
		source string
		amount string
	}{
		{true, models.SourcePix, "100.00"},
		{true, models.SourcePhysical, "30.50"},
		{false, models.SourcePix, "12.25"},
		{false, models.SourcePhysical, "40.00"},
		{true, models.SourcePix, "0.75"},
	}
	for _, s := range steps {
		var err error
		if s.income {
			_, err = svc.RecordIncome(userID, IncomeInput{Source: s.source, Amount: dec(s.amount)})
		} else {
			_, err = svc.RecordExpense(userID, ExpenseInput{Source: s.source, Amount: dec(s.amount)})
		}
		require.NoError(t, err)
	}

	stored, derived, consistent, err := svc.CheckBalance(userID)
	require.NoError(t, err)
	assert.True(t, consistent)
	assert.True(t, stored.PixAmount.Equal(dec("88.50")), "pix = %s", stored.PixAmount)
	assert.True(t, stored.PhysicalAmount.Equal(dec("-9.50")), "physical = %s", stored.PhysicalAmount)
	assert.True(t, derived.Pix.Equal(stored.PixAmount))
	assert.True(t, derived.Physical.Equal(stored.PhysicalAmount))
}

func TestReadsDoNotMutate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	userID := createTestUser(t, db, "a@example.com")

	_, err := svc.RecordIncome(userID, IncomeInput{Source: models.SourcePix, Amount: dec("10.00")})
	require.NoError(t, err)

	first, _, _, err := svc.CheckBalance(userID)
	require.NoError(t, err)
	second, _, _, err := svc.CheckBalance(userID)
	require.NoError(t, err)

	assert.True(t, first.PixAmount.Equal(second.PixAmount))
	assert.True(t, first.PhysicalAmount.Equal(second.PhysicalAmount))
}

func TestGoalProgressAndCompletion(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	userID := createTestUser(t, db, "a@example.com")

	goal, err := svc.CreateGoal(userID, GoalInput{Name: "Bike", TargetAmount: dec("100.00")})
	require.NoError(t, err)
	assert.False(t, goal.IsCompleted)
	assert.Nil(t, goal.CompletedAt)

	res, err := svc.RecordIncome(userID, IncomeInput{
		Source: models.SourcePix,
		Amount: dec("90.00"),
		GoalID: &goal.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Goal)
	assert.True(t, res.Goal.CurrentAmount.Equal(dec("90.00")))
	assert.False(t, res.Goal.IsCompleted)
	assert.False(t, res.GoalCompleted)

	// a deposit of exactly the remaining gap completes the goal
	res, err = svc.RecordIncome(userID, IncomeInput{
		Source: models.SourcePix,
		Amount: dec("10.00"),
		GoalID: &goal.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Goal)
	assert.True(t, res.Goal.CurrentAmount.Equal(dec("100.00")))
	assert.True(t, res.Goal.IsCompleted)
	assert.NotNil(t, res.Goal.CompletedAt)
	assert.True(t, res.GoalCompleted)
}

func TestGoalOfAnotherUserIsRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")

	goal, err := svc.CreateGoal(alice, GoalInput{Name: "Trip", TargetAmount: dec("500.00")})
	require.NoError(t, err)

	_, err = svc.RecordIncome(bob, IncomeInput{
		Source: models.SourcePix,
		Amount: dec("10.00"),
		GoalID: &goal.ID,
	})
	assert.ErrorIs(t, err, ErrGoalNotFound)

	// nothing was written
	derived, err := svc.DerivedBalance(bob)
	require.NoError(t, err)
	assert.True(t, derived.Pix.IsZero())
}

func TestInvalidInputsAreRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	userID := createTestUser(t, db, "a@example.com")

	_, err := svc.RecordIncome(userID, IncomeInput{Source: models.SourcePix, Amount: dec("0")})
	assert.Error(t, err)

	_, err = svc.RecordExpense(userID, ExpenseInput{Source: models.SourcePix, Amount: dec("-5")})
	assert.Error(t, err)

	_, err = svc.RecordIncome(userID, IncomeInput{Source: "check", Amount: dec("5")})
	assert.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Zero(t, count, "rejected inputs must not reach the log")
}

// Two services with independently cached views record against the same
// balance. Increments happen in the database, so no update is lost no matter
// how stale each client's view is.
func TestConcurrentRecordsLoseNothing(t *testing.T) {
	db := setupTestDB(t)
	userID := createTestUser(t, db, "a@example.com")

	svcA := NewService(db)
	svcB := NewService(db)

	// both read the zero balance before either writes
	_, _, _, err := svcA.CheckBalance(userID)
	require.NoError(t, err)
	_, _, _, err = svcB.CheckBalance(userID)
	require.NoError(t, err)

	_, err = svcA.RecordIncome(userID, IncomeInput{Source: models.SourcePix, Amount: dec("10.00")})
	require.NoError(t, err)
	_, err = svcB.RecordIncome(userID, IncomeInput{Source: models.SourcePix, Amount: dec("10.00")})
	require.NoError(t, err)

	stored, _, consistent, err := svcA.CheckBalance(userID)
	require.NoError(t, err)
	assert.True(t, consistent)
	assert.True(t, stored.PixAmount.Equal(dec("20.00")), "pix = %s", stored.PixAmount)
}

func TestEditGoalReevaluatesCompletion(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	userID := createTestUser(t, db, "a@example.com")

	goal, err := svc.CreateGoal(userID, GoalInput{Name: "Console", TargetAmount: dec("300.00")})
	require.NoError(t, err)

	_, err = svc.RecordIncome(userID, IncomeInput{
		Source: models.SourcePix,
		Amount: dec("200.00"),
		GoalID: &goal.ID,
	})
	require.NoError(t, err)

	// lowering the target below the progress completes immediately
	edited, err := svc.EditGoal(userID, goal.ID, GoalInput{Name: "Console", TargetAmount: dec("150.00")})
	require.NoError(t, err)
	assert.True(t, edited.IsCompleted)
	assert.NotNil(t, edited.CompletedAt)
	assert.True(t, edited.CurrentAmount.Equal(dec("200.00")), "edit must not touch progress")

	// raising it back above the progress reopens the goal
	edited, err = svc.EditGoal(userID, goal.ID, GoalInput{Name: "Console", TargetAmount: dec("400.00")})
	require.NoError(t, err)
	assert.False(t, edited.IsCompleted)
	assert.Nil(t, edited.CompletedAt)
}

func TestDeleteGoalKeepsTransactions(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	userID := createTestUser(t, db, "a@example.com")

	goal, err := svc.CreateGoal(userID, GoalInput{Name: "Phone", TargetAmount: dec("100.00")})
	require.NoError(t, err)

	_, err = svc.RecordIncome(userID, IncomeInput{
		Source: models.SourcePix,
		Amount: dec("40.00"),
		GoalID: &goal.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteGoal(userID, goal.ID))

	assert.ErrorIs(t, svc.DeleteGoal(userID, goal.ID), ErrGoalNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.EqualValues(t, 1, count, "history outlives the goal")

	// the foreign key nulls the reference instead of dangling
	var trx models.Transaction
	require.NoError(t, db.Where("user_id = ?", userID).First(&trx).Error)
	assert.Nil(t, trx.GoalID)

	// the balance is untouched by goal deletion
	stored, _, consistent, err := svc.CheckBalance(userID)
	require.NoError(t, err)
	assert.True(t, consistent)
	assert.True(t, stored.PixAmount.Equal(dec("40.00")))
}

func TestGoalDepositsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	userID := createTestUser(t, db, "a@example.com")

	goal, err := svc.CreateGoal(userID, GoalInput{Name: "Guitar", TargetAmount: dec("900.00")})
	require.NoError(t, err)

	for _, amount := range []string{"10.00", "20.00", "30.00"} {
		_, err = svc.RecordIncome(userID, IncomeInput{
			Source: models.SourcePix,
			Amount: dec(amount),
			GoalID: &goal.ID,
		})
		require.NoError(t, err)
	}
	// an unlinked expense must not show up in the deposit history
	_, err = svc.RecordExpense(userID, ExpenseInput{Source: models.SourcePix, Amount: dec("5.00")})
	require.NoError(t, err)

	deposits, err := svc.GoalDeposits(userID, goal.ID)
	require.NoError(t, err)
	require.Len(t, deposits, 3)
	assert.True(t, deposits[0].Amount.Equal(dec("30.00")))
	assert.True(t, deposits[2].Amount.Equal(dec("10.00")))
}

func TestProgressPercentClamped(t *testing.T) {
	g := models.Goal{TargetAmount: dec("100.00"), CurrentAmount: dec("250.00")}
	assert.Equal(t, 100.0, g.ProgressPercent())

	g = models.Goal{TargetAmount: dec("0"), CurrentAmount: dec("10.00")}
	assert.Equal(t, 0.0, g.ProgressPercent())

	g = models.Goal{TargetAmount: dec("200.00"), CurrentAmount: dec("50.00")}
	assert.InDelta(t, 25.0, g.ProgressPercent(), 0.0001)
}

package database

import (
	"fmt"

	"cofrinho/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Balance{},
		&models.Goal{},
		&models.Transaction{},
		&models.RecurringTransaction{},
		&models.Friendship{},
		&models.Session{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

package database

import (
	"fmt"
	"time"

	"github.com/premiads/backend/internal/config"
	"github.com/premiads/backend/internal/models"
	"github.com/premiads/backend/internal/queue"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection with configuration
func InitDB(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dbConfig.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// AutoMigrate runs GORM auto-migration for all models. Development convenience;
// production schema changes go through the versioned migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Accounts
		&models.Profile{},

		// Missions and moderation
		&models.Mission{},
		&models.MissionSubmission{},

		// Reward ledger
		&models.MissionReward{},
		&models.RifasTransaction{},
		&models.Notification{},

		// Referrals
		&models.ReferralCode{},
		&models.Referral{},
		&models.ReferralMilestoneReward{},

		// Background jobs audit
		&queue.Job{},
	)
}

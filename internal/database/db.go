package database

import (
	"fmt"
	"time"

	"github.com/Baaaki/daily-report/internal/config"
	"github.com/Baaaki/daily-report/internal/models"
	"github.com/Baaaki/daily-report/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

func Connect(cfg *config.Config) (*gorm.DB, error) {
	level := gormlogger.Warn
	if !cfg.IsProduction() {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         logger.NewGormLogger(logger.Log, level, slowQueryThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	logger.Log.Info("Database connected successfully")
	return db, nil
}

// Migrate creates the employees table and its partial unique index on code.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Employee{}); err != nil {
		logger.Log.Error("Database migration failed", zap.Error(err))
		return fmt.Errorf("migrate database: %w", err)
	}

	logger.Log.Info("Database migration completed")
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"school_tracker/internal/models"
)

// InitDB opens the postgres connection and migrates the session table.
func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Session{}); err != nil {
		return nil, fmt.Errorf("auto-migration failed: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Name,
	}).Info("database ready")
	return db, nil
}

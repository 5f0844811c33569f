package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ruralpay/wallet/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitSQLite opens the local SQLite file, creating its directory if needed
func InitSQLite(c config.StorageConfig, log *logrus.Entry) (*gorm.DB, error) {
	if c.SQLitePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	level := logger.Silent
	if c.LogMode {
		level = logger.Info
	}

	dsn := c.SQLitePath + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite serialises writers
	sqlDB.SetMaxOpenConns(1)

	log.WithField("path", c.SQLitePath).Info("SQLite database opened")
	return db, nil
}

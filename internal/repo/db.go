// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-court-backend/internal/domain"
)

// Options tunes OpenSQLite. The zero value is a quiet, untraced handle.
type Options struct {
	// Tracing installs the OpenTelemetry GORM plugin so every statement
	// becomes a child span of the caller's context.
	Tracing bool
	// LogLevel for GORM's own logger; zero means Silent.
	LogLevel logger.LogLevel
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string, opts Options) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	lvl := opts.LogLevel
	if lvl == 0 {
		lvl = logger.Silent
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(lvl),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for every persisted entity.
// Cases come first since log entries and evidence reference them.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Court{},
		&domain.Case{},
		&domain.Participant{},
		&domain.LogEntry{},
		&domain.Evidence{},
		&domain.AssociatedCase{},
		&domain.User{},
	)
}

// Package storage persists categorization decisions for audit.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/manonja/quickExpense-sub001/internal/common"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// AuditStore records categorization decisions in SQLite.
type AuditStore struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

// NewAuditStore opens (or creates) the audit database at dbPath.
// Use ":memory:" for a throwaway database.
func NewAuditStore(dbPath string, logger *slog.Logger) (*AuditStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := ":memory:"
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &AuditStore{
		db:     db,
		dbPath: dbPath,
		logger: common.OrDefault(logger),
	}, nil
}

// Close closes the database connection.
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// Path returns the database location.
func (s *AuditStore) Path() string {
	return s.dbPath
}

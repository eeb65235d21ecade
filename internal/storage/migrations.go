package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Decision audit log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS decisions (
					id TEXT PRIMARY KEY,
					batch_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					description TEXT NOT NULL,
					vendor TEXT,
					amount TEXT NOT NULL,
					quantity INTEGER NOT NULL DEFAULT 1,
					rule_id TEXT,
					category TEXT NOT NULL,
					qb_account TEXT NOT NULL,
					tax_treatment TEXT NOT NULL,
					deductibility_percentage INTEGER NOT NULL,
					confidence REAL NOT NULL,
					is_fallback INTEGER NOT NULL DEFAULT 0,
					explanation TEXT,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_decisions_batch ON decisions(batch_id, position)`,
				`CREATE INDEX idx_decisions_category ON decisions(category)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     2,
		Description: "Record rule set version per decision",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`ALTER TABLE decisions ADD COLUMN rules_version TEXT NOT NULL DEFAULT ''`,
				`CREATE INDEX idx_decisions_created ON decisions(created_at)`,
			})
		},
	},
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *AuditStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		s.logger.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reads the applied schema version.
func (s *AuditStore) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Package testutil provides shared fixtures for quickexpense tests.
package testutil

import (
	"context"
	"testing"

	"github.com/manonja/quickExpense-sub001/internal/storage"
)

// SetupAuditStore creates a migrated in-memory audit store that is closed
// when the test ends.
func SetupAuditStore(t *testing.T) *storage.AuditStore {
	t.Helper()

	store, err := storage.NewAuditStore(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// Package dbtest provides an in-memory database for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"

	"github.com/steemit/hnspool/internal/db"
)

// OpenMemory opens a migrated, private in-memory SQLite database
func OpenMemory(t testing.TB) *db.DB {
	t.Helper()

	d, err := db.Open(sqlite.Open(":memory:"), "ERROR")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	// An in-memory database lives only as long as its single connection
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

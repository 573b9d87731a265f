package database

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// testDatabaseURL returns TEST_DATABASE_URL or skips the test.
func testDatabaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	return url
}

// TestDB returns a private, unmigrated pool closed at the end of the test.
func TestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := Connect(context.Background(), testDatabaseURL(t))
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// ClearCollections deletes the rows of the named collections, or every
// row when no collection is named.
func ClearCollections(t *testing.T, db PGXDB, collections ...string) {
	t.Helper()

	ctx := context.Background()
	if len(collections) == 0 {
		if _, err := db.Exec(ctx, "DELETE FROM records"); err != nil {
			t.Fatalf("failed to clear records: %v", err)
		}
		return
	}
	if _, err := db.Exec(ctx, "DELETE FROM records WHERE collection = ANY($1)", collections); err != nil {
		t.Fatalf("failed to clear collections %v: %v", collections, err)
	}
}

// README: Test helper; opens the Postgres pool named by FAREBOX_TEST_DSN and applies migrations.
package testdb

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"farebox/internal/infra"
)

// Open skips the test when FAREBOX_TEST_DSN is unset. Listed tables are
// truncated before the test runs.
func Open(t *testing.T, truncate ...string) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("FAREBOX_TEST_DSN")
	if dsn == "" {
		t.Skip("FAREBOX_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	root, err := repoRoot()
	if err != nil {
		t.Fatalf("find repo root: %v", err)
	}
	if err := infra.ApplyMigration(ctx, db, filepath.Join(root, "migrations", "0001_init.sql")); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if len(truncate) > 0 {
		if _, err := db.Exec(ctx, "TRUNCATE TABLE "+strings.Join(truncate, ", ")); err != nil {
			t.Fatalf("truncate tables: %v", err)
		}
	}
	return db
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestApplySQLiteIsIdempotent(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	first, err := ApplySQLite(ctx, db)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if len(first) == 0 || first[0] != "001" {
		t.Fatalf("first applied = %v, want [001 ...]", first)
	}

	second, err := ApplySQLite(ctx, db)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second applied = %v, want none", second)
	}

	var open int
	if err := db.QueryRowContext(ctx, `SELECT voting_open FROM election_settings WHERE id = 1`).Scan(&open); err != nil {
		t.Fatalf("settings row missing: %v", err)
	}
	if open != 0 {
		t.Fatalf("voting_open = %d, want 0", open)
	}
}

func TestSQLFilesAreSortedPerDialect(t *testing.T) {
	t.Parallel()

	for _, dir := range []string{postgresDir, sqliteDir} {
		names, err := sqlFiles(dir)
		if err != nil {
			t.Fatalf("sqlFiles(%s): %v", dir, err)
		}
		if len(names) == 0 {
			t.Fatalf("no migrations embedded for %s", dir)
		}
		for i := 1; i < len(names); i++ {
			if names[i-1] >= names[i] {
				t.Fatalf("%s migrations out of order: %v", dir, names)
			}
		}
	}
	if got := versionOf("002_add_index.sql"); got != "002" {
		t.Fatalf("versionOf = %q, want 002", got)
	}
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/yigit/univote/internal/pkg/logger"

	_ "modernc.org/sqlite"
)

// SQLiteDB wraps the database/sql handle used by the sqlite repositories.
type SQLiteDB struct {
	DB *sql.DB
}

// SQLiteTxFn is a function that executes within a sqlite transaction
type SQLiteTxFn func(ctx context.Context, tx *sql.Tx) error

// NewSQLiteDB opens the database file at path with foreign keys enforced and
// a busy timeout. The pool is capped at one connection: SQLite allows a single
// writer, and serializing in the pool avoids SQLITE_BUSY under concurrent casts.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dsn := sqliteDSN(path)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to establish sqlite connection: %w", err)
	}

	return &SQLiteDB{DB: sqlDB}, nil
}

func sqliteDSN(path string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + pragmas
}

// Close closes the underlying handle
func (db *SQLiteDB) Close() {
	if db.DB != nil {
		_ = db.DB.Close()
	}
}

// WithTransaction runs fn inside a transaction, committing on success and
// rolling back on error or panic.
func (db *SQLiteDB) WithTransaction(ctx context.Context, fn SQLiteTxFn) error {
	return WithSQLTransaction(ctx, db.DB, fn)
}

// WithSQLTransaction is WithTransaction for callers holding only the handle.
func WithSQLTransaction(ctx context.Context, sqlDB *sql.DB, fn SQLiteTxFn) error {
	_, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Package sqlite implements the repositories on SQLite for single-node
// deployments and tests. Timestamps are stored as unix milliseconds.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/univote/internal/app/migrations"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/db"
)

// Store bundles the sqlite repositories over one handle.
type Store struct {
	sqlDB *db.SQLiteDB
	*repositories.Repositories
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := db.NewSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := migrations.ApplySQLite(ctx, sqlDB.DB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply sqlite migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, Repositories: NewRepositories(sqlDB.DB)}, nil
}

// Close closes the underlying handle.
func (s *Store) Close() {
	s.sqlDB.Close()
}

// DB exposes the raw handle for diagnostics and tests.
func (s *Store) DB() *sql.DB {
	return s.sqlDB.DB
}

// NewRepositories builds the sqlite repositories over an open handle.
func NewRepositories(sqlDB *sql.DB) *repositories.Repositories {
	sb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
	return &repositories.Repositories{
		Ballots:    &BallotRepository{db: sqlDB, sb: sb},
		Candidates: &CandidateRepository{db: sqlDB, sb: sb},
		Voters:     &VoterRepository{db: sqlDB, sb: sb},
		Admins:     &AdminRepository{db: sqlDB, sb: sb},
		Settings:   &SettingsRepository{db: sqlDB},
	}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromNullMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := fromMillis(ms.Int64)
	return &t
}

func nowMillis() int64 {
	return toMillis(time.Now())
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

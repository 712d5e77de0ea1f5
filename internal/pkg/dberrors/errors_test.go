package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsDuplicateConstraintErrorPostgres(t *testing.T) {
	t.Parallel()

	c := Constraint{Name: "ballots_voter_session_key", Columns: "ballots.voter_id, ballots.session_id"}
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ballots_voter_session_key"}

	if !IsDuplicateConstraintError(fmt.Errorf("insert ballot: %w", pgErr), c) {
		t.Fatal("expected wrapped pg unique violation to match")
	}
	other := &pgconn.PgError{Code: "23505", ConstraintName: "voters_email_key"}
	if IsDuplicateConstraintError(other, c) {
		t.Fatal("different constraint must not match")
	}
	if !IsUniqueViolation(other) {
		t.Fatal("any 23505 is a unique violation")
	}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "ballots_voter_id_fkey"}
	if IsUniqueViolation(fk) {
		t.Fatal("foreign key violation is not a unique violation")
	}
}

func TestIsDuplicateConstraintErrorPlainError(t *testing.T) {
	t.Parallel()

	err := errors.New("UNIQUE constraint failed: ballots.voter_id, ballots.session_id")
	if IsDuplicateConstraintError(err, Constraint{Columns: "ballots.voter_id, ballots.session_id"}) {
		t.Fatal("plain errors carry no driver code and must not match")
	}
	if IsUniqueViolation(nil) {
		t.Fatal("nil is not a violation")
	}
}

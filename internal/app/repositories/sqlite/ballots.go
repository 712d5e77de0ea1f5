package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/db"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/dberrors"
)

// BallotRepository is the sqlite ballot store. The handle is capped at one
// connection, so each transaction below already runs with exclusive access.
type BallotRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

// Cast implements repositories.BallotRepository.
func (r *BallotRepository) Cast(ctx context.Context, ballot *models.Ballot) error {
	if ballot.ID == uuid.Nil {
		ballot.ID = uuid.New()
	}
	castAt := nowMillis()

	err := db.WithSQLTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ballots (id, voter_id, session_id, cast_at, ip_address, user_agent, is_valid) VALUES (?, ?, ?, ?, ?, ?, 1)`,
			ballot.ID.String(), ballot.VoterID, ballot.SessionID, castAt, ballot.IPAddress, ballot.UserAgent,
		)
		if err != nil {
			if dberrors.IsDuplicateConstraintError(err, repositories.BallotVoterSessionKey) {
				return apperrors.ErrDuplicateBallot
			}
			if dberrors.IsForeignKeyViolation(err) {
				return apperrors.NewResourceNotFoundError("voter not found")
			}
			return fmt.Errorf("error inserting ballot: %w", err)
		}

		for _, s := range repositories.SortedSelections(ballot.Selections) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ballot_selections (ballot_id, office, candidate_id) VALUES (?, ?, ?)`,
				ballot.ID.String(), string(s.Office), s.CandidateID,
			); err != nil {
				return fmt.Errorf("error inserting ballot selection: %w", err)
			}

			res, err := tx.ExecContext(ctx, `
				UPDATE candidates SET vote_count = vote_count + 1, updated_at = ?
				WHERE id = ? AND office = ? AND status = 'approved' AND is_active = 1`,
				castAt, s.CandidateID, string(s.Office),
			)
			if err != nil {
				return fmt.Errorf("error incrementing candidate counter: %w", err)
			}
			if n, _ := res.RowsAffected(); n != 1 {
				return apperrors.NewIneligibleCandidateError(s.CandidateID,
					fmt.Sprintf("candidate %d is not eligible for %s", s.CandidateID, s.Office))
			}
		}

		res, err := tx.ExecContext(ctx, `UPDATE voters SET has_voted = 1, updated_at = ? WHERE id = ? AND is_active = 1`, castAt, ballot.VoterID)
		if err != nil {
			return fmt.Errorf("error marking voter: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return apperrors.ErrAccountDisabled
		}
		return nil
	})
	if err != nil {
		return err
	}

	ballot.CastAt = fromMillis(castAt)
	ballot.IsValid = true
	return nil
}

// HasVoted implements repositories.BallotRepository.
func (r *BallotRepository) HasVoted(ctx context.Context, voterID int64, sessionID string) (bool, *time.Time, error) {
	var castAt int64
	err := r.db.QueryRowContext(ctx, `SELECT cast_at FROM ballots WHERE voter_id = ? AND session_id = ?`, voterID, sessionID).Scan(&castAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("error checking ballot: %w", err)
	}
	t := fromMillis(castAt)
	return true, &t, nil
}

const ballotColumns = "id, voter_id, session_id, cast_at, ip_address, user_agent, is_valid, invalid_reason"

func scanBallot(row scanner) (*models.Ballot, error) {
	b := &models.Ballot{}
	var castAt int64
	var reason sql.NullString
	if err := row.Scan(&b.ID, &b.VoterID, &b.SessionID, &castAt, &b.IPAddress, &b.UserAgent, &b.IsValid, &reason); err != nil {
		return nil, err
	}
	b.CastAt = fromMillis(castAt)
	if reason.Valid {
		b.InvalidReason = &reason.String
	}
	return b, nil
}

// Get implements repositories.BallotRepository.
func (r *BallotRepository) Get(ctx context.Context, id uuid.UUID) (*models.Ballot, error) {
	b, err := scanBallot(r.db.QueryRowContext(ctx, `SELECT `+ballotColumns+` FROM ballots WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("error getting ballot: %w", err)
	}
	if err := r.attachSelections(ctx, []*models.Ballot{b}); err != nil {
		return nil, err
	}
	return b, nil
}

func ballotFilterWhere(filter models.BallotFilter) squirrel.And {
	where := squirrel.And{}
	if filter.SessionID != "" {
		where = append(where, squirrel.Eq{"session_id": filter.SessionID})
	}
	if filter.VoterID != 0 {
		where = append(where, squirrel.Eq{"voter_id": filter.VoterID})
	}
	if filter.From != nil {
		where = append(where, squirrel.GtOrEq{"cast_at": toMillis(*filter.From)})
	}
	if filter.To != nil {
		where = append(where, squirrel.LtOrEq{"cast_at": toMillis(*filter.To)})
	}
	return where
}

// List implements repositories.BallotRepository.
func (r *BallotRepository) List(ctx context.Context, filter models.BallotFilter) ([]*models.Ballot, int64, error) {
	where := ballotFilterWhere(filter)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("ballots").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count ballots query: %w", err)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting ballots: %w", err)
	}

	offset, limit := repositories.PageBounds(filter.Offset, filter.Limit)
	query, args, err := r.sb.Select(ballotColumns).
		From("ballots").
		Where(where).
		OrderBy("cast_at DESC", "id ASC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list ballots query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying ballots: %w", err)
	}
	ballots := []*models.Ballot{}
	for rows.Next() {
		b, err := scanBallot(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("error scanning ballot row: %w", err)
		}
		ballots = append(ballots, b)
	}
	// close before the follow-up query: the pool holds a single connection
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating ballot rows: %w", err)
	}

	if err := r.attachSelections(ctx, ballots); err != nil {
		return nil, 0, err
	}
	return ballots, total, nil
}

func (r *BallotRepository) attachSelections(ctx context.Context, ballots []*models.Ballot) error {
	if len(ballots) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Ballot, len(ballots))
	ids := make([]string, 0, len(ballots))
	for _, b := range ballots {
		b.Selections = models.Selections{}
		byID[b.ID] = b
		ids = append(ids, b.ID.String())
	}

	query, args, err := r.sb.Select("ballot_id", "office", "candidate_id").
		From("ballot_selections").
		Where(squirrel.Eq{"ballot_id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build selections query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error querying selections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ballotID    uuid.UUID
			office      string
			candidateID int64
		)
		if err := rows.Scan(&ballotID, &office, &candidateID); err != nil {
			return fmt.Errorf("error scanning selection row: %w", err)
		}
		if b, ok := byID[ballotID]; ok {
			b.Selections[models.Office(office)] = candidateID
		}
	}
	return rows.Err()
}

// Invalidate implements repositories.BallotRepository.
func (r *BallotRepository) Invalidate(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	changed := false
	err := db.WithSQLTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		var valid bool
		if err := tx.QueryRowContext(ctx, `SELECT is_valid FROM ballots WHERE id = ?`, id.String()).Scan(&valid); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repositories.ErrNotFound
			}
			return fmt.Errorf("error reading ballot: %w", err)
		}
		if !valid {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `UPDATE ballots SET is_valid = 0, invalid_reason = ? WHERE id = ?`, reason, id.String()); err != nil {
			return fmt.Errorf("error invalidating ballot: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE candidates SET vote_count = vote_count - 1, updated_at = ?
			WHERE vote_count > 0 AND EXISTS (
				SELECT 1 FROM ballot_selections s
				WHERE s.ballot_id = ? AND s.candidate_id = candidates.id AND s.office = candidates.office
			)`, nowMillis(), id.String(),
		); err != nil {
			return fmt.Errorf("error decrementing candidate counters: %w", err)
		}

		changed = true
		return nil
	})
	return changed, err
}

// Reset implements repositories.BallotRepository.
func (r *BallotRepository) Reset(ctx context.Context) (int64, error) {
	var removed int64
	err := db.WithSQLTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ballot_selections`); err != nil {
			return fmt.Errorf("error deleting selections: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM ballots`)
		if err != nil {
			return fmt.Errorf("error deleting ballots: %w", err)
		}
		removed, _ = res.RowsAffected()

		now := nowMillis()
		if _, err := tx.ExecContext(ctx, `UPDATE candidates SET vote_count = 0, updated_at = ? WHERE vote_count <> 0`, now); err != nil {
			return fmt.Errorf("error zeroing counters: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE voters SET has_voted = 0, updated_at = ? WHERE has_voted = 1`, now); err != nil {
			return fmt.Errorf("error clearing voter flags: %w", err)
		}
		return nil
	})
	return removed, err
}

// Recount implements repositories.BallotRepository.
func (r *BallotRepository) Recount(ctx context.Context) (int64, error) {
	var changed int64
	err := db.WithSQLTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, repositories.RecountSQL)
		if err != nil {
			return fmt.Errorf("error recounting: %w", err)
		}
		changed, _ = res.RowsAffected()
		return nil
	})
	return changed, err
}

func (r *BallotRepository) stream(ctx context.Context, q squirrel.SelectBuilder, scan func(*sql.Rows) error) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build scan query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error querying ballots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func withSession(q squirrel.SelectBuilder, col, sessionID string) squirrel.SelectBuilder {
	if sessionID == "" {
		return q
	}
	return q.Where(squirrel.Eq{col: sessionID})
}

// ScanSelections implements repositories.BallotRepository.
func (r *BallotRepository) ScanSelections(ctx context.Context, sessionID string, fn func(models.Selection) error) error {
	q := r.sb.Select("s.ballot_id", "s.office", "s.candidate_id").
		From("ballot_selections s").
		Join("ballots b ON b.id = s.ballot_id").
		Where(squirrel.Eq{"b.is_valid": true})
	q = withSession(q, "b.session_id", sessionID)

	return r.stream(ctx, q, func(rows *sql.Rows) error {
		var (
			sel    models.Selection
			office string
		)
		if err := rows.Scan(&sel.BallotID, &office, &sel.CandidateID); err != nil {
			return fmt.Errorf("error scanning selection: %w", err)
		}
		sel.Office = models.Office(office)
		return fn(sel)
	})
}

// ScanCastTimes implements repositories.BallotRepository.
func (r *BallotRepository) ScanCastTimes(ctx context.Context, sessionID string, fn func(time.Time) error) error {
	q := withSession(r.sb.Select("cast_at").From("ballots").Where(squirrel.Eq{"is_valid": true}), "session_id", sessionID)

	return r.stream(ctx, q, func(rows *sql.Rows) error {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return fmt.Errorf("error scanning cast time: %w", err)
		}
		return fn(fromMillis(ms))
	})
}

func (r *BallotRepository) count(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting: %w", err)
	}
	return n, nil
}

// CountBallots implements repositories.BallotRepository.
func (r *BallotRepository) CountBallots(ctx context.Context, sessionID string) (int64, error) {
	return r.count(ctx, withSession(r.sb.Select("COUNT(*)").From("ballots").Where(squirrel.Eq{"is_valid": true}), "session_id", sessionID))
}

// CountVotersWithBallot implements repositories.BallotRepository.
func (r *BallotRepository) CountVotersWithBallot(ctx context.Context, sessionID string) (int64, error) {
	q := r.sb.Select("COUNT(DISTINCT b.voter_id)").
		From("ballots b").
		Join("voters v ON v.id = b.voter_id").
		Where(squirrel.Eq{"b.is_valid": true, "v.is_active": true})
	return r.count(ctx, withSession(q, "b.session_id", sessionID))
}

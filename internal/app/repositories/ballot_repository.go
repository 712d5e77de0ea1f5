package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/db"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/dberrors"
	"github.com/yigit/univote/internal/pkg/logger"
)

// PgBallotRepository is the postgres ballot store
type PgBallotRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewBallotRepository creates a new PgBallotRepository
func NewBallotRepository(db *pgxpool.Pool) *PgBallotRepository {
	return &PgBallotRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Cast implements BallotRepository.
func (r *PgBallotRepository) Cast(ctx context.Context, ballot *models.Ballot) error {
	if ballot.ID == uuid.Nil {
		ballot.ID = uuid.New()
	}

	return db.WithPgxTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("ballots").
			Columns("id", "voter_id", "session_id", "ip_address", "user_agent", "is_valid").
			Values(ballot.ID, ballot.VoterID, ballot.SessionID, ballot.IPAddress, ballot.UserAgent, true).
			Suffix("RETURNING cast_at").
			ToSql()
		if err != nil {
			logger.Error().Err(err).Msg("Error building insert ballot SQL")
			return fmt.Errorf("failed to build insert ballot query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&ballot.CastAt); err != nil {
			if dberrors.IsDuplicateConstraintError(err, BallotVoterSessionKey) {
				return apperrors.ErrDuplicateBallot
			}
			if dberrors.IsForeignKeyViolation(err) {
				return apperrors.NewResourceNotFoundError("voter not found")
			}
			logger.Error().Err(err).Int64("voterID", ballot.VoterID).Msg("Error inserting ballot")
			return fmt.Errorf("error inserting ballot: %w", err)
		}

		// Counter rows are locked in ascending candidate id order so concurrent
		// ballots sharing candidates cannot deadlock.
		for _, s := range SortedSelections(ballot.Selections) {
			if _, err := tx.Exec(ctx,
				`INSERT INTO ballot_selections (ballot_id, office, candidate_id) VALUES ($1, $2, $3)`,
				ballot.ID, string(s.Office), s.CandidateID,
			); err != nil {
				return fmt.Errorf("error inserting ballot selection: %w", err)
			}

			tag, err := tx.Exec(ctx, `
				UPDATE candidates SET vote_count = vote_count + 1, updated_at = NOW()
				WHERE id = $1 AND office = $2 AND status = 'approved' AND is_active`,
				s.CandidateID, string(s.Office),
			)
			if err != nil {
				return fmt.Errorf("error incrementing candidate counter: %w", err)
			}
			if tag.RowsAffected() != 1 {
				return apperrors.NewIneligibleCandidateError(s.CandidateID,
					fmt.Sprintf("candidate %d is not eligible for %s", s.CandidateID, s.Office))
			}
		}

		tag, err := tx.Exec(ctx, `UPDATE voters SET has_voted = TRUE, updated_at = NOW() WHERE id = $1 AND is_active`, ballot.VoterID)
		if err != nil {
			return fmt.Errorf("error marking voter: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return apperrors.ErrAccountDisabled
		}

		ballot.IsValid = true
		return nil
	})
}

// HasVoted implements BallotRepository.
func (r *PgBallotRepository) HasVoted(ctx context.Context, voterID int64, sessionID string) (bool, *time.Time, error) {
	sql, args, err := r.sb.Select("cast_at").
		From("ballots").
		Where(squirrel.Eq{"voter_id": voterID, "session_id": sessionID}).
		ToSql()
	if err != nil {
		return false, nil, fmt.Errorf("failed to build has voted query: %w", err)
	}

	var castAt time.Time
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&castAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("error checking ballot: %w", err)
	}
	return true, &castAt, nil
}

const ballotColumns = "id, voter_id, session_id, cast_at, ip_address, user_agent, is_valid, invalid_reason"

func scanBallot(row pgx.Row) (*models.Ballot, error) {
	b := &models.Ballot{}
	err := row.Scan(&b.ID, &b.VoterID, &b.SessionID, &b.CastAt, &b.IPAddress, &b.UserAgent, &b.IsValid, &b.InvalidReason)
	return b, err
}

// Get implements BallotRepository.
func (r *PgBallotRepository) Get(ctx context.Context, id uuid.UUID) (*models.Ballot, error) {
	sql, args, err := r.sb.Select(ballotColumns).From("ballots").Where(squirrel.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get ballot query: %w", err)
	}

	b, err := scanBallot(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
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
		where = append(where, squirrel.GtOrEq{"cast_at": *filter.From})
	}
	if filter.To != nil {
		where = append(where, squirrel.LtOrEq{"cast_at": *filter.To})
	}
	return where
}

// List implements BallotRepository.
func (r *PgBallotRepository) List(ctx context.Context, filter models.BallotFilter) ([]*models.Ballot, int64, error) {
	where := ballotFilterWhere(filter)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("ballots").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count ballots query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting ballots: %w", err)
	}

	offset, limit := PageBounds(filter.Offset, filter.Limit)
	sql, args, err := r.sb.Select(ballotColumns).
		From("ballots").
		Where(where).
		OrderBy("cast_at DESC", "id ASC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list ballots query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list ballots query")
		return nil, 0, fmt.Errorf("error querying ballots: %w", err)
	}
	defer rows.Close()

	ballots := []*models.Ballot{}
	for rows.Next() {
		b, err := scanBallot(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning ballot row: %w", err)
		}
		ballots = append(ballots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating ballot rows: %w", err)
	}

	if err := r.attachSelections(ctx, ballots); err != nil {
		return nil, 0, err
	}
	return ballots, total, nil
}

func (r *PgBallotRepository) attachSelections(ctx context.Context, ballots []*models.Ballot) error {
	if len(ballots) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Ballot, len(ballots))
	// string ids: squirrel would expand a uuid.UUID array into an IN list
	ids := make([]string, 0, len(ballots))
	for _, b := range ballots {
		b.Selections = models.Selections{}
		byID[b.ID] = b
		ids = append(ids, b.ID.String())
	}

	sql, args, err := r.sb.Select("ballot_id", "office", "candidate_id").
		From("ballot_selections").
		Where(squirrel.Eq{"ballot_id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build selections query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
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

// Invalidate implements BallotRepository.
func (r *PgBallotRepository) Invalidate(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	changed := false
	err := db.WithPgxTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var valid bool
		if err := tx.QueryRow(ctx, `SELECT is_valid FROM ballots WHERE id = $1 FOR UPDATE`, id).Scan(&valid); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("error locking ballot: %w", err)
		}
		if !valid {
			return nil
		}

		if _, err := tx.Exec(ctx, `UPDATE ballots SET is_valid = FALSE, invalid_reason = $2 WHERE id = $1`, id, reason); err != nil {
			return fmt.Errorf("error invalidating ballot: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE candidates c SET vote_count = c.vote_count - 1, updated_at = NOW()
			FROM ballot_selections s
			WHERE s.ballot_id = $1 AND s.candidate_id = c.id AND s.office = c.office AND c.vote_count > 0`,
			id,
		); err != nil {
			return fmt.Errorf("error decrementing candidate counters: %w", err)
		}

		changed = true
		return nil
	})
	return changed, err
}

// Reset implements BallotRepository. The exclusive table lock blocks
// concurrent casts for the duration of the transaction.
func (r *PgBallotRepository) Reset(ctx context.Context) (int64, error) {
	var removed int64
	err := db.WithPgxTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE ballots IN ACCESS EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("error locking ballots: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM ballot_selections`); err != nil {
			return fmt.Errorf("error deleting selections: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM ballots`)
		if err != nil {
			return fmt.Errorf("error deleting ballots: %w", err)
		}
		removed = tag.RowsAffected()

		if _, err := tx.Exec(ctx, `UPDATE candidates SET vote_count = 0, updated_at = NOW() WHERE vote_count <> 0`); err != nil {
			return fmt.Errorf("error zeroing counters: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE voters SET has_voted = FALSE, updated_at = NOW() WHERE has_voted`); err != nil {
			return fmt.Errorf("error clearing voter flags: %w", err)
		}
		return nil
	})
	return removed, err
}

// Recount implements BallotRepository.
func (r *PgBallotRepository) Recount(ctx context.Context) (int64, error) {
	var changed int64
	err := db.WithPgxTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		// SHARE mode lets readers through but blocks casts until the rebuild commits.
		if _, err := tx.Exec(ctx, `LOCK TABLE ballots IN SHARE MODE`); err != nil {
			return fmt.Errorf("error locking ballots: %w", err)
		}
		tag, err := tx.Exec(ctx, RecountSQL)
		if err != nil {
			return fmt.Errorf("error recounting: %w", err)
		}
		changed = tag.RowsAffected()
		return nil
	})
	return changed, err
}

// RecountSQL rebuilds every counter from valid ballots; portable between
// postgres and sqlite.
const RecountSQL = `
UPDATE candidates SET vote_count = (
    SELECT COUNT(*) FROM ballot_selections s
    JOIN ballots b ON b.id = s.ballot_id
    WHERE s.candidate_id = candidates.id AND s.office = candidates.office AND b.is_valid
)
WHERE vote_count <> (
    SELECT COUNT(*) FROM ballot_selections s
    JOIN ballots b ON b.id = s.ballot_id
    WHERE s.candidate_id = candidates.id AND s.office = candidates.office AND b.is_valid
)`

func sessionWhere(col, sessionID string) squirrel.Sqlizer {
	if sessionID == "" {
		return squirrel.Expr("1 = 1")
	}
	return squirrel.Eq{col: sessionID}
}

// ScanSelections implements BallotRepository.
func (r *PgBallotRepository) ScanSelections(ctx context.Context, sessionID string, fn func(models.Selection) error) error {
	sql, args, err := r.sb.Select("s.ballot_id", "s.office", "s.candidate_id").
		From("ballot_selections s").
		Join("ballots b ON b.id = s.ballot_id").
		Where(squirrel.Eq{"b.is_valid": true}).
		Where(sessionWhere("b.session_id", sessionID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build scan selections query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error querying selections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sel    models.Selection
			office string
		)
		if err := rows.Scan(&sel.BallotID, &office, &sel.CandidateID); err != nil {
			return fmt.Errorf("error scanning selection: %w", err)
		}
		sel.Office = models.Office(office)
		if err := fn(sel); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ScanCastTimes implements BallotRepository.
func (r *PgBallotRepository) ScanCastTimes(ctx context.Context, sessionID string, fn func(time.Time) error) error {
	sql, args, err := r.sb.Select("cast_at").
		From("ballots").
		Where(squirrel.Eq{"is_valid": true}).
		Where(sessionWhere("session_id", sessionID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build scan cast times query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error querying cast times: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return fmt.Errorf("error scanning cast time: %w", err)
		}
		if err := fn(ts); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountBallots implements BallotRepository.
func (r *PgBallotRepository) CountBallots(ctx context.Context, sessionID string) (int64, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("ballots").
		Where(squirrel.Eq{"is_valid": true}).
		Where(sessionWhere("session_id", sessionID)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count ballots query: %w", err)
	}
	var n int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting ballots: %w", err)
	}
	return n, nil
}

// CountVotersWithBallot implements BallotRepository.
func (r *PgBallotRepository) CountVotersWithBallot(ctx context.Context, sessionID string) (int64, error) {
	sql, args, err := r.sb.Select("COUNT(DISTINCT b.voter_id)").
		From("ballots b").
		Join("voters v ON v.id = b.voter_id").
		Where(squirrel.Eq{"b.is_valid": true, "v.is_active": true}).
		Where(sessionWhere("b.session_id", sessionID)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count voters query: %w", err)
	}
	var n int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting voters with ballot: %w", err)
	}
	return n, nil
}

// SortedSelections flattens selections ordered by candidate id, then office.
func SortedSelections(s models.Selections) []models.Selection {
	out := make([]models.Selection, 0, len(s))
	for office, id := range s {
		out = append(out, models.Selection{Office: office, CandidateID: id})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CandidateID != out[j].CandidateID {
			return out[i].CandidateID < out[j].CandidateID
		}
		return out[i].Office.Index() < out[j].Office.Index()
	})
	return out
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/dberrors"
	"github.com/yigit/univote/internal/pkg/logger"
)

// PgVoterRepository handles voter database operations
type PgVoterRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewVoterRepository creates a new PgVoterRepository
func NewVoterRepository(db *pgxpool.Pool) *PgVoterRepository {
	return &PgVoterRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// VoterColumns is the select list matching scanVoter.
var VoterColumns = []string{
	"id", "matricule", "first_name", "last_name", "email", "phone", "faculty", "promotion",
	"password_hash", "has_voted", "is_active", "created_at", "updated_at",
}

// votedCondition is true for a voter row holding a valid ballot, in sessionID
// when set. The has_voted column is only a cache written by Cast; reads go
// through the ballots themselves.
func votedCondition(sessionID string) (string, []interface{}) {
	if sessionID == "" {
		return "EXISTS (SELECT 1 FROM ballots b WHERE b.voter_id = voters.id AND b.is_valid)", nil
	}
	return "EXISTS (SELECT 1 FROM ballots b WHERE b.voter_id = voters.id AND b.is_valid AND b.session_id = ?)",
		[]interface{}{sessionID}
}

// VotedExpr matches voters with a valid ballot, in sessionID when set.
func VotedExpr(sessionID string, voted bool) squirrel.Sqlizer {
	cond, args := votedCondition(sessionID)
	if !voted {
		cond = "NOT " + cond
	}
	return squirrel.Expr(cond, args...)
}

// VoterSelect selects VoterColumns with has_voted derived for sessionID.
func VoterSelect(sb squirrel.StatementBuilderType, sessionID string) squirrel.SelectBuilder {
	return sb.Select(VoterColumns[:9]...).
		Column(squirrel.Alias(VotedExpr(sessionID, true), "has_voted")).
		Columns(VoterColumns[10:]...).
		From("voters")
}

// VotedQuery counts (0 or 1) whether voter id holds a valid ballot in sessionID.
func VotedQuery(sb squirrel.StatementBuilderType, id int64, sessionID string) squirrel.SelectBuilder {
	return sb.Select("COUNT(*)").From("voters").Where(squirrel.Eq{"id": id}).Where(VotedExpr(sessionID, true))
}

func scanVoter(row pgx.Row) (*models.Voter, error) {
	v := &models.Voter{}
	err := row.Scan(&v.ID, &v.Matricule, &v.FirstName, &v.LastName, &v.Email, &v.Phone, &v.Faculty,
		&v.Promotion, &v.PasswordHash, &v.HasVoted, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// VoterConflict maps a unique violation on voters to an app error.
func VoterConflict(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, VoterMatriculeKey):
		return apperrors.ErrMatriculeExists
	case dberrors.IsDuplicateConstraintError(err, VoterEmailKey):
		return apperrors.ErrEmailExists
	}
	return nil
}

// Create registers a voter
func (r *PgVoterRepository) Create(ctx context.Context, v *models.Voter) (int64, error) {
	sql, args, err := r.sb.Insert("voters").
		Columns("matricule", "first_name", "last_name", "email", "phone", "faculty", "promotion", "password_hash").
		Values(v.Matricule, v.FirstName, v.LastName, v.Email, v.Phone, v.Faculty, v.Promotion, v.PasswordHash).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create voter SQL")
		return 0, fmt.Errorf("failed to build create voter query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if conflict := VoterConflict(err); conflict != nil {
			return 0, conflict
		}
		logger.Error().Err(err).Msg("Error executing create voter query")
		return 0, fmt.Errorf("error creating voter: %w", err)
	}
	v.IsActive = true
	return v.ID, nil
}

func (r *PgVoterRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Voter, error) {
	sql, args, err := VoterSelect(r.sb, "").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get voter query: %w", err)
	}
	v, err := scanVoter(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting voter: %w", err)
	}
	return v, nil
}

// GetByID retrieves a voter by ID
func (r *PgVoterRepository) GetByID(ctx context.Context, id int64) (*models.Voter, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByMatricule retrieves a voter by matricule
func (r *PgVoterRepository) GetByMatricule(ctx context.Context, matricule string) (*models.Voter, error) {
	return r.getOne(ctx, squirrel.Eq{"matricule": matricule})
}

// VoterProfileSet returns the column updates for a profile change, or nil
// when nothing changes.
func VoterProfileSet(upd models.VoterProfileUpdate) map[string]interface{} {
	set := map[string]interface{}{}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Faculty != nil {
		set["faculty"] = *upd.Faculty
	}
	if upd.Promotion != nil {
		set["promotion"] = *upd.Promotion
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// UpdateProfile applies the non-nil fields of upd
func (r *PgVoterRepository) UpdateProfile(ctx context.Context, id int64, upd models.VoterProfileUpdate) error {
	set := VoterProfileSet(upd)
	if set == nil {
		_, err := r.GetByID(ctx, id)
		return err
	}

	sql, args, err := r.sb.Update("voters").
		SetMap(set).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update voter query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if conflict := VoterConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("error updating voter: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// VoterFilterWhere builds the WHERE clause shared by both backends.
func VoterFilterWhere(filter models.VoterFilter) squirrel.And {
	where := squirrel.And{}
	if filter.Search != "" {
		where = append(where, SearchClause(SearchPattern(filter.Search), "first_name", "last_name", "matricule", "email"))
	}
	if filter.HasVoted != nil {
		where = append(where, VotedExpr(filter.SessionID, *filter.HasVoted))
	}
	if filter.Faculty != "" {
		where = append(where, squirrel.Eq{"faculty": filter.Faculty})
	}
	return where
}

// List returns a page of voters and the total match count
func (r *PgVoterRepository) List(ctx context.Context, filter models.VoterFilter) ([]*models.Voter, int64, error) {
	where := VoterFilterWhere(filter)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("voters").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count voters query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting voters: %w", err)
	}

	offset, limit := PageBounds(filter.Offset, filter.Limit)
	sql, args, err := VoterSelect(r.sb, filter.SessionID).
		Where(where).
		OrderBy("last_name ASC", "first_name ASC", "id ASC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list voters query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list voters query")
		return nil, 0, fmt.Errorf("error querying voters: %w", err)
	}
	defer rows.Close()

	voters := []*models.Voter{}
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning voter row: %w", err)
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating voter rows: %w", err)
	}
	return voters, total, nil
}

// CountActive counts voters allowed to vote
func (r *PgVoterRepository) CountActive(ctx context.Context) (int64, error) {
	sql, args, err := r.sb.Select("COUNT(*)").From("voters").Where(squirrel.Eq{"is_active": true}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count active voters query: %w", err)
	}
	var n int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting active voters: %w", err)
	}
	return n, nil
}

// FacultyStatsQuery is the grouped turnout query shared by both backends.
// A voter counts as voted with a valid ballot in sessionID, or in any session
// when it is empty.
func FacultyStatsQuery(sb squirrel.StatementBuilderType, sessionID string) squirrel.SelectBuilder {
	cond, args := votedCondition(sessionID)
	return sb.Select("faculty", "COUNT(*)").
		Column(squirrel.Expr("SUM(CASE WHEN "+cond+" THEN 1 ELSE 0 END)", args...)).
		From("voters").
		Where(squirrel.Eq{"is_active": true}).
		GroupBy("faculty").
		OrderBy("faculty ASC")
}

// Voted reports whether the voter holds a valid ballot in sessionID
func (r *PgVoterRepository) Voted(ctx context.Context, id int64, sessionID string) (bool, error) {
	sql, args, err := VotedQuery(r.sb, id, sessionID).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build voted query: %w", err)
	}
	var n int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("error checking voter ballot: %w", err)
	}
	return n > 0, nil
}

// StatsByFaculty returns turnout per faculty among active voters
func (r *PgVoterRepository) StatsByFaculty(ctx context.Context, sessionID string) ([]models.FacultyParticipation, error) {
	sql, args, err := FacultyStatsQuery(r.sb, sessionID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build faculty stats query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying faculty stats: %w", err)
	}
	defer rows.Close()

	stats := []models.FacultyParticipation{}
	for rows.Next() {
		var fp models.FacultyParticipation
		if err := rows.Scan(&fp.Faculty, &fp.Total, &fp.Voted); err != nil {
			return nil, fmt.Errorf("error scanning faculty stats: %w", err)
		}
		stats = append(stats, fp)
	}
	return stats, rows.Err()
}

// SetActive toggles whether the voter may log in and vote
func (r *PgVoterRepository) SetActive(ctx context.Context, id int64, active bool) error {
	sql, args, err := r.sb.Update("voters").
		Set("is_active", active).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set voter active query: %w", err)
	}
	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating voter: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

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

// PgCandidateRepository handles candidate database operations
type PgCandidateRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewCandidateRepository creates a new PgCandidateRepository
func NewCandidateRepository(db *pgxpool.Pool) *PgCandidateRepository {
	return &PgCandidateRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CandidateColumns is the select list matching scanCandidate.
var CandidateColumns = []string{
	"id", "matricule", "first_name", "last_name", "email", "phone", "faculty", "promotion",
	"office", "biography", "program", "photo_url", "status", "rejection_reason", "is_active",
	"vote_count", "candidate_number", "password_hash", "reviewed_at", "created_at", "updated_at",
}

func scanCandidate(row pgx.Row) (*models.Candidate, error) {
	c := &models.Candidate{}
	var office, status string
	err := row.Scan(
		&c.ID, &c.Matricule, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Faculty, &c.Promotion,
		&office, &c.Biography, &c.Program, &c.PhotoURL, &status, &c.RejectionReason, &c.IsActive,
		&c.VoteCount, &c.CandidateNumber, &c.PasswordHash, &c.ReviewedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	c.Office = models.Office(office)
	c.Status = models.CandidateStatus(status)
	return c, err
}

// CandidateConflict maps a unique violation on candidates to an app error.
func CandidateConflict(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, CandidateNumberKey):
		return ErrCandidateNumberTaken
	case dberrors.IsDuplicateConstraintError(err, CandidateMatriculeKey):
		return apperrors.ErrMatriculeExists
	case dberrors.IsDuplicateConstraintError(err, CandidateEmailKey):
		return apperrors.ErrEmailExists
	}
	return nil
}

// Create inserts a candidate application
func (r *PgCandidateRepository) Create(ctx context.Context, c *models.Candidate) (int64, error) {
	sql, args, err := r.sb.Insert("candidates").
		Columns("matricule", "first_name", "last_name", "email", "phone", "faculty", "promotion",
			"office", "biography", "program", "status", "is_active", "candidate_number", "password_hash").
		Values(c.Matricule, c.FirstName, c.LastName, c.Email, c.Phone, c.Faculty, c.Promotion,
			string(c.Office), c.Biography, c.Program, string(models.CandidatePending), true, c.CandidateNumber, c.PasswordHash).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create candidate SQL")
		return 0, fmt.Errorf("failed to build create candidate query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if conflict := CandidateConflict(err); conflict != nil {
			return 0, conflict
		}
		logger.Error().Err(err).Msg("Error executing create candidate query")
		return 0, fmt.Errorf("error creating candidate: %w", err)
	}
	c.Status = models.CandidatePending
	c.IsActive = true
	return c.ID, nil
}

func (r *PgCandidateRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Candidate, error) {
	sql, args, err := r.sb.Select(CandidateColumns...).From("candidates").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get candidate query: %w", err)
	}

	c, err := scanCandidate(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting candidate: %w", err)
	}
	return c, nil
}

// GetByID retrieves a candidate by ID
func (r *PgCandidateRepository) GetByID(ctx context.Context, id int64) (*models.Candidate, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByMatricule retrieves a candidate by matricule
func (r *PgCandidateRepository) GetByMatricule(ctx context.Context, matricule string) (*models.Candidate, error) {
	return r.getOne(ctx, squirrel.Eq{"matricule": matricule})
}

// GetByNumber retrieves a candidate by its generated candidate number
func (r *PgCandidateRepository) GetByNumber(ctx context.Context, number string) (*models.Candidate, error) {
	return r.getOne(ctx, squirrel.Eq{"candidate_number": number})
}

func (r *PgCandidateRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Candidate, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build candidate query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing candidate query")
		return nil, fmt.Errorf("error querying candidates: %w", err)
	}
	defer rows.Close()

	candidates := []*models.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate rows: %w", err)
	}
	return candidates, nil
}

// GetByIDs loads the candidates with the given ids, keyed by id. Missing ids
// are simply absent from the map.
func (r *PgCandidateRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Candidate, error) {
	out := make(map[int64]*models.Candidate, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := r.query(ctx, r.sb.Select(CandidateColumns...).From("candidates").Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

// CandidateFilterWhere builds the WHERE clause shared by both backends.
func CandidateFilterWhere(filter models.CandidateFilter) squirrel.And {
	where := squirrel.And{}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.Office != nil {
		where = append(where, squirrel.Eq{"office": string(*filter.Office)})
	}
	if filter.Search != "" {
		where = append(where, SearchClause(SearchPattern(filter.Search),
			"first_name", "last_name", "matricule", "candidate_number"))
	}
	return where
}

// List returns a page of candidates matching filter and the total match count
func (r *PgCandidateRepository) List(ctx context.Context, filter models.CandidateFilter) ([]*models.Candidate, int64, error) {
	where := CandidateFilterWhere(filter)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("candidates").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count candidates query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting candidates: %w", err)
	}

	offset, limit := PageBounds(filter.Offset, filter.Limit)
	list, err := r.query(ctx, r.sb.Select(CandidateColumns...).
		From("candidates").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Offset(offset).
		Limit(limit))
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListApprovedByOffice returns the eligible candidates of one office
func (r *PgCandidateRepository) ListApprovedByOffice(ctx context.Context, office models.Office) ([]*models.Candidate, error) {
	return r.query(ctx, r.sb.Select(CandidateColumns...).
		From("candidates").
		Where(squirrel.Eq{"office": string(office), "status": string(models.CandidateApproved), "is_active": true}).
		OrderBy("last_name ASC", "first_name ASC", "id ASC"))
}

// UpdateStatus records a review decision
func (r *PgCandidateRepository) UpdateStatus(ctx context.Context, id int64, status models.CandidateStatus, reason *string) error {
	sql, args, err := r.sb.Update("candidates").
		Set("status", string(status)).
		Set("rejection_reason", reason).
		Set("reviewed_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update candidate status query: %w", err)
	}
	return r.execOne(ctx, sql, args...)
}

// SetActive toggles the active flag
func (r *PgCandidateRepository) SetActive(ctx context.Context, id int64, active bool) error {
	sql, args, err := r.sb.Update("candidates").
		Set("is_active", active).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set candidate active query: %w", err)
	}
	return r.execOne(ctx, sql, args...)
}

// UpdatePhoto stores the public URL of the candidate photo
func (r *PgCandidateRepository) UpdatePhoto(ctx context.Context, id int64, url string) error {
	sql, args, err := r.sb.Update("candidates").
		Set("photo_url", url).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update candidate photo query: %w", err)
	}
	return r.execOne(ctx, sql, args...)
}

// Delete removes a candidate. Ballot selections referencing it are kept and
// presented with a placeholder identity.
func (r *PgCandidateRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("candidates").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete candidate query: %w", err)
	}
	return r.execOne(ctx, sql, args...)
}

func (r *PgCandidateRepository) execOne(ctx context.Context, sql string, args ...interface{}) error {
	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing candidate update")
		return fmt.Errorf("error updating candidate: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats counts candidates by status and by office
func (r *PgCandidateRepository) Stats(ctx context.Context) (*models.CandidateStats, error) {
	sql, args, err := r.sb.Select("status", "office", "COUNT(*)").
		From("candidates").
		GroupBy("status", "office").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build candidate stats query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying candidate stats: %w", err)
	}
	defer rows.Close()

	stats := NewCandidateStats()
	for rows.Next() {
		var status, office string
		var n int64
		if err := rows.Scan(&status, &office, &n); err != nil {
			return nil, fmt.Errorf("error scanning candidate stats: %w", err)
		}
		stats.Add(models.CandidateStatus(status), models.Office(office), n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate stats: %w", err)
	}
	return stats.CandidateStats, nil
}

// CandidateStatsBuilder accumulates grouped status/office counts.
type CandidateStatsBuilder struct {
	*models.CandidateStats
}

// NewCandidateStats returns stats with every status and office present at zero.
func NewCandidateStats() CandidateStatsBuilder {
	s := &models.CandidateStats{
		ByStatus: map[models.CandidateStatus]int64{
			models.CandidatePending:  0,
			models.CandidateApproved: 0,
			models.CandidateRejected: 0,
		},
		ByOffice: make(map[models.Office]int64, len(models.AllOffices)),
	}
	for _, o := range models.AllOffices {
		s.ByOffice[o] = 0
	}
	return CandidateStatsBuilder{s}
}

// Add folds one grouped row in.
func (b CandidateStatsBuilder) Add(status models.CandidateStatus, office models.Office, n int64) {
	b.Total += n
	b.ByStatus[status] += n
	b.ByOffice[office] += n
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
	"github.com/yigit/univote/internal/pkg/logger"
)

// CandidateRepository is the sqlite candidate store.
type CandidateRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

func scanCandidate(row scanner) (*models.Candidate, error) {
	c := &models.Candidate{}
	var (
		office, status       string
		reviewedAt           sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&c.ID, &c.Matricule, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Faculty, &c.Promotion,
		&office, &c.Biography, &c.Program, &c.PhotoURL, &status, &c.RejectionReason, &c.IsActive,
		&c.VoteCount, &c.CandidateNumber, &c.PasswordHash, &reviewedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Office = models.Office(office)
	c.Status = models.CandidateStatus(status)
	c.ReviewedAt = fromNullMillis(reviewedAt)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

// Create implements repositories.CandidateRepository.
func (r *CandidateRepository) Create(ctx context.Context, c *models.Candidate) (int64, error) {
	now := nowMillis()
	query, args, err := r.sb.Insert("candidates").
		Columns("matricule", "first_name", "last_name", "email", "phone", "faculty", "promotion",
			"office", "biography", "program", "status", "is_active", "candidate_number", "password_hash",
			"created_at", "updated_at").
		Values(c.Matricule, c.FirstName, c.LastName, c.Email, c.Phone, c.Faculty, c.Promotion,
			string(c.Office), c.Biography, c.Program, string(models.CandidatePending), true, c.CandidateNumber, c.PasswordHash,
			now, now).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create candidate query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if conflict := repositories.CandidateConflict(err); conflict != nil {
			return 0, conflict
		}
		logger.Error().Err(err).Msg("Error executing create candidate query")
		return 0, fmt.Errorf("error creating candidate: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading candidate id: %w", err)
	}

	c.ID = id
	c.Status = models.CandidatePending
	c.IsActive = true
	c.CreatedAt = fromMillis(now)
	c.UpdatedAt = c.CreatedAt
	return id, nil
}

func (r *CandidateRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Candidate, error) {
	query, args, err := r.sb.Select(repositories.CandidateColumns...).From("candidates").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get candidate query: %w", err)
	}
	c, err := scanCandidate(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("error getting candidate: %w", err)
	}
	return c, nil
}

// GetByID implements repositories.CandidateRepository.
func (r *CandidateRepository) GetByID(ctx context.Context, id int64) (*models.Candidate, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByMatricule implements repositories.CandidateRepository.
func (r *CandidateRepository) GetByMatricule(ctx context.Context, matricule string) (*models.Candidate, error) {
	return r.getOne(ctx, squirrel.Eq{"matricule": matricule})
}

// GetByNumber implements repositories.CandidateRepository.
func (r *CandidateRepository) GetByNumber(ctx context.Context, number string) (*models.Candidate, error) {
	return r.getOne(ctx, squirrel.Eq{"candidate_number": number})
}

func (r *CandidateRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*models.Candidate, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build candidate query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
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

// GetByIDs implements repositories.CandidateRepository.
func (r *CandidateRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Candidate, error) {
	out := make(map[int64]*models.Candidate, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := r.query(ctx, r.sb.Select(repositories.CandidateColumns...).From("candidates").Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

// List implements repositories.CandidateRepository.
func (r *CandidateRepository) List(ctx context.Context, filter models.CandidateFilter) ([]*models.Candidate, int64, error) {
	where := repositories.CandidateFilterWhere(filter)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("candidates").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count candidates query: %w", err)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting candidates: %w", err)
	}

	offset, limit := repositories.PageBounds(filter.Offset, filter.Limit)
	list, err := r.query(ctx, r.sb.Select(repositories.CandidateColumns...).
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

// ListApprovedByOffice implements repositories.CandidateRepository.
func (r *CandidateRepository) ListApprovedByOffice(ctx context.Context, office models.Office) ([]*models.Candidate, error) {
	return r.query(ctx, r.sb.Select(repositories.CandidateColumns...).
		From("candidates").
		Where(squirrel.Eq{"office": string(office), "status": string(models.CandidateApproved), "is_active": true}).
		OrderBy("last_name ASC", "first_name ASC", "id ASC"))
}

func (r *CandidateRepository) update(ctx context.Context, id int64, set map[string]interface{}) error {
	now := nowMillis()
	set["updated_at"] = now
	query, args, err := r.sb.Update("candidates").SetMap(set).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update candidate query: %w", err)
	}
	return r.execOne(ctx, query, args...)
}

// UpdateStatus implements repositories.CandidateRepository.
func (r *CandidateRepository) UpdateStatus(ctx context.Context, id int64, status models.CandidateStatus, reason *string) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":           string(status),
		"rejection_reason": reason,
		"reviewed_at":      nowMillis(),
	})
}

// SetActive implements repositories.CandidateRepository.
func (r *CandidateRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.update(ctx, id, map[string]interface{}{"is_active": active})
}

// UpdatePhoto implements repositories.CandidateRepository.
func (r *CandidateRepository) UpdatePhoto(ctx context.Context, id int64, url string) error {
	return r.update(ctx, id, map[string]interface{}{"photo_url": url})
}

// Delete implements repositories.CandidateRepository.
func (r *CandidateRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM candidates WHERE id = ?`, id)
}

func (r *CandidateRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error updating candidate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Stats implements repositories.CandidateRepository.
func (r *CandidateRepository) Stats(ctx context.Context) (*models.CandidateStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, office, COUNT(*) FROM candidates GROUP BY status, office`)
	if err != nil {
		return nil, fmt.Errorf("error querying candidate stats: %w", err)
	}
	defer rows.Close()

	stats := repositories.NewCandidateStats()
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

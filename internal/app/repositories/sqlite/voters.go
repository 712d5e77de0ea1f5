package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
)

// VoterRepository is the sqlite voter store.
type VoterRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

func scanVoter(row scanner) (*models.Voter, error) {
	v := &models.Voter{}
	var createdAt, updatedAt int64
	err := row.Scan(&v.ID, &v.Matricule, &v.FirstName, &v.LastName, &v.Email, &v.Phone, &v.Faculty,
		&v.Promotion, &v.PasswordHash, &v.HasVoted, &v.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	v.CreatedAt = fromMillis(createdAt)
	v.UpdatedAt = fromMillis(updatedAt)
	return v, nil
}

// Create implements repositories.VoterRepository.
func (r *VoterRepository) Create(ctx context.Context, v *models.Voter) (int64, error) {
	now := nowMillis()
	query, args, err := r.sb.Insert("voters").
		Columns("matricule", "first_name", "last_name", "email", "phone", "faculty", "promotion", "password_hash", "created_at", "updated_at").
		Values(v.Matricule, v.FirstName, v.LastName, v.Email, v.Phone, v.Faculty, v.Promotion, v.PasswordHash, now, now).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create voter query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if conflict := repositories.VoterConflict(err); conflict != nil {
			return 0, conflict
		}
		return 0, fmt.Errorf("error creating voter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading voter id: %w", err)
	}

	v.ID = id
	v.IsActive = true
	v.CreatedAt = fromMillis(now)
	v.UpdatedAt = v.CreatedAt
	return id, nil
}

func (r *VoterRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Voter, error) {
	query, args, err := repositories.VoterSelect(r.sb, "").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get voter query: %w", err)
	}
	v, err := scanVoter(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("error getting voter: %w", err)
	}
	return v, nil
}

// GetByID implements repositories.VoterRepository.
func (r *VoterRepository) GetByID(ctx context.Context, id int64) (*models.Voter, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByMatricule implements repositories.VoterRepository.
func (r *VoterRepository) GetByMatricule(ctx context.Context, matricule string) (*models.Voter, error) {
	return r.getOne(ctx, squirrel.Eq{"matricule": matricule})
}

// UpdateProfile implements repositories.VoterRepository.
func (r *VoterRepository) UpdateProfile(ctx context.Context, id int64, upd models.VoterProfileUpdate) error {
	set := repositories.VoterProfileSet(upd)
	if set == nil {
		_, err := r.GetByID(ctx, id)
		return err
	}
	set["updated_at"] = nowMillis()

	query, args, err := r.sb.Update("voters").SetMap(set).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update voter query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if conflict := repositories.VoterConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("error updating voter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// List implements repositories.VoterRepository.
func (r *VoterRepository) List(ctx context.Context, filter models.VoterFilter) ([]*models.Voter, int64, error) {
	where := repositories.VoterFilterWhere(filter)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("voters").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count voters query: %w", err)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting voters: %w", err)
	}

	offset, limit := repositories.PageBounds(filter.Offset, filter.Limit)
	query, args, err := repositories.VoterSelect(r.sb, filter.SessionID).
		Where(where).
		OrderBy("last_name ASC", "first_name ASC", "id ASC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list voters query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
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

// CountActive implements repositories.VoterRepository.
func (r *VoterRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM voters WHERE is_active = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting active voters: %w", err)
	}
	return n, nil
}

// Voted implements repositories.VoterRepository.
func (r *VoterRepository) Voted(ctx context.Context, id int64, sessionID string) (bool, error) {
	query, args, err := repositories.VotedQuery(r.sb, id, sessionID).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build voted query: %w", err)
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("error checking voter ballot: %w", err)
	}
	return n > 0, nil
}

// StatsByFaculty implements repositories.VoterRepository.
func (r *VoterRepository) StatsByFaculty(ctx context.Context, sessionID string) ([]models.FacultyParticipation, error) {
	query, args, err := repositories.FacultyStatsQuery(r.sb, sessionID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build faculty stats query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
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

// SetActive implements repositories.VoterRepository.
func (r *VoterRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE voters SET is_active = ?, updated_at = ? WHERE id = ?`, active, nowMillis(), id)
	if err != nil {
		return fmt.Errorf("error updating voter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
)

// AdminRepository is the sqlite admin store.
type AdminRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

// Create implements repositories.AdminRepository.
func (r *AdminRepository) Create(ctx context.Context, a *models.Admin) (int64, error) {
	now := nowMillis()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (username, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.Username, a.Email, a.PasswordHash, string(a.Role), now)
	if err != nil {
		if conflict := repositories.AdminConflict(err); conflict != nil {
			return 0, conflict
		}
		return 0, fmt.Errorf("error creating admin: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading admin id: %w", err)
	}
	a.ID = id
	a.IsActive = true
	a.CreatedAt = fromMillis(now)
	return id, nil
}

func (r *AdminRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Admin, error) {
	query, args, err := r.sb.Select(repositories.AdminColumns...).From("admins").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get admin query: %w", err)
	}

	a := &models.Admin{}
	var (
		role      string
		lastLogin sql.NullInt64
		createdAt int64
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &a.IsActive, &lastLogin, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("error getting admin: %w", err)
	}
	a.Role = models.RoleType(role)
	a.LastLoginAt = fromNullMillis(lastLogin)
	a.CreatedAt = fromMillis(createdAt)
	return a, nil
}

// GetByID implements repositories.AdminRepository.
func (r *AdminRepository) GetByID(ctx context.Context, id int64) (*models.Admin, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByUsername implements repositories.AdminRepository.
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username})
}

// TouchLogin implements repositories.AdminRepository.
func (r *AdminRepository) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE admins SET last_login_at = ? WHERE id = ?`, toMillis(at), id); err != nil {
		return fmt.Errorf("error updating admin login: %w", err)
	}
	return nil
}

// Count implements repositories.AdminRepository.
func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting admins: %w", err)
	}
	return n, nil
}

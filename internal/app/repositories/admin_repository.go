package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/pkg/apperrors"
	"github.com/yigit/univote/internal/pkg/dberrors"
)

// PgAdminRepository handles administrator accounts
type PgAdminRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAdminRepository creates a new PgAdminRepository
func NewAdminRepository(db *pgxpool.Pool) *PgAdminRepository {
	return &PgAdminRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// AdminColumns is the select list matching scanAdmin.
var AdminColumns = []string{"id", "username", "email", "password_hash", "role", "is_active", "last_login_at", "created_at"}

// AdminConflict maps a unique violation on admins to an app error.
func AdminConflict(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, AdminUsernameKey):
		return apperrors.ErrUsernameExists
	case dberrors.IsDuplicateConstraintError(err, AdminEmailKey):
		return apperrors.ErrEmailExists
	}
	return nil
}

// Create inserts an administrator
func (r *PgAdminRepository) Create(ctx context.Context, a *models.Admin) (int64, error) {
	sql, args, err := r.sb.Insert("admins").
		Columns("username", "email", "password_hash", "role").
		Values(a.Username, a.Email, a.PasswordHash, string(a.Role)).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create admin query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.CreatedAt); err != nil {
		if conflict := AdminConflict(err); conflict != nil {
			return 0, conflict
		}
		return 0, fmt.Errorf("error creating admin: %w", err)
	}
	a.IsActive = true
	return a.ID, nil
}

func (r *PgAdminRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Admin, error) {
	sql, args, err := r.sb.Select(AdminColumns...).From("admins").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get admin query: %w", err)
	}
	a := &models.Admin{}
	var role string
	err = r.db.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &role, &a.IsActive, &a.LastLoginAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting admin: %w", err)
	}
	a.Role = models.RoleType(role)
	return a, nil
}

// GetByID retrieves an admin by ID
func (r *PgAdminRepository) GetByID(ctx context.Context, id int64) (*models.Admin, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByUsername retrieves an admin by username
func (r *PgAdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username})
}

// TouchLogin records a successful login
func (r *PgAdminRepository) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE admins SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("error updating admin login: %w", err)
	}
	return nil
}

// Count returns the number of admin accounts
func (r *PgAdminRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting admins: %w", err)
	}
	return n, nil
}

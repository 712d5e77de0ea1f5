package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/univote/internal/app/models"
)

// PgSettingsRepository persists the single election settings row
type PgSettingsRepository struct {
	db *pgxpool.Pool
}

// NewSettingsRepository creates a new PgSettingsRepository
func NewSettingsRepository(db *pgxpool.Pool) *PgSettingsRepository {
	return &PgSettingsRepository{db: db}
}

const settingsReturning = "RETURNING voting_open, session_override, updated_at, updated_by"

func (r *PgSettingsRepository) scan(ctx context.Context, sql string, args ...interface{}) (*models.ElectionSettings, error) {
	s := &models.ElectionSettings{}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.VotingOpen, &s.SessionOverride, &s.UpdatedAt, &s.UpdatedBy); err != nil {
		return nil, fmt.Errorf("error reading election settings: %w", err)
	}
	return s, nil
}

// Get reads the settings row
func (r *PgSettingsRepository) Get(ctx context.Context) (*models.ElectionSettings, error) {
	return r.scan(ctx, `SELECT voting_open, session_override, updated_at, updated_by FROM election_settings WHERE id = 1`)
}

// SetVotingOpen flips the open/closed flag in a single statement
func (r *PgSettingsRepository) SetVotingOpen(ctx context.Context, open bool, by int64) (*models.ElectionSettings, error) {
	return r.scan(ctx, `UPDATE election_settings SET voting_open = $1, updated_at = NOW(), updated_by = $2 WHERE id = 1 `+settingsReturning, open, NullableID(by))
}

// SetSessionOverride stores the session id used instead of the calendar year.
// An empty string clears the override.
func (r *PgSettingsRepository) SetSessionOverride(ctx context.Context, sessionID string, by int64) (*models.ElectionSettings, error) {
	return r.scan(ctx, `UPDATE election_settings SET session_override = $1, updated_at = NOW(), updated_by = $2 WHERE id = 1 `+settingsReturning, sessionID, NullableID(by))
}

// NullableID maps the zero id (system actor) to NULL.
func NullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

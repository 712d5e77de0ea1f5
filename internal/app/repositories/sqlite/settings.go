package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yigit/univote/internal/app/models"
	"github.com/yigit/univote/internal/app/repositories"
)

// SettingsRepository persists the election settings row.
type SettingsRepository struct {
	db *sql.DB
}

// Get implements repositories.SettingsRepository.
func (r *SettingsRepository) Get(ctx context.Context) (*models.ElectionSettings, error) {
	s := &models.ElectionSettings{}
	var updatedAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT voting_open, session_override, updated_at, updated_by FROM election_settings WHERE id = 1`,
	).Scan(&s.VotingOpen, &s.SessionOverride, &updatedAt, &s.UpdatedBy)
	if err != nil {
		return nil, fmt.Errorf("error reading election settings: %w", err)
	}
	s.UpdatedAt = fromMillis(updatedAt)
	return s, nil
}

func (r *SettingsRepository) set(ctx context.Context, column string, value interface{}, by int64) (*models.ElectionSettings, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE election_settings SET `+column+` = ?, updated_at = ?, updated_by = ? WHERE id = 1`,
		value, nowMillis(), repositories.NullableID(by))
	if err != nil {
		return nil, fmt.Errorf("error updating election settings: %w", err)
	}
	return r.Get(ctx)
}

// SetVotingOpen implements repositories.SettingsRepository.
func (r *SettingsRepository) SetVotingOpen(ctx context.Context, open bool, by int64) (*models.ElectionSettings, error) {
	return r.set(ctx, "voting_open", open, by)
}

// SetSessionOverride implements repositories.SettingsRepository.
func (r *SettingsRepository) SetSessionOverride(ctx context.Context, sessionID string, by int64) (*models.ElectionSettings, error) {
	return r.set(ctx, "session_override", sessionID, by)
}

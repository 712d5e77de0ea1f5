// Package seed prepares a freshly migrated database for first use.
package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	appRepos "github.com/yigit/univote/internal/app/repositories"
	appServices "github.com/yigit/univote/internal/app/services"
	"github.com/yigit/univote/internal/config"
)

// CreateDefaultData creates the bootstrap super admin when no admin exists.
// On that first boot it also applies the configured voting state; afterwards
// the persisted flag is only changed by admins.
func CreateDefaultData(ctx context.Context, cfg *config.Config, repos *appRepos.Repositories, admins appServices.AdminService, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating default data (admin account, election settings)...")

	created, err := admins.EnsureDefault(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating default admin")
		return err
	}
	if !created {
		return nil
	}
	lgr.Info().Str("username", cfg.Admin.Username).Msg("Default admin created")

	settings, err := repos.Settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("error reading election settings: %w", err)
	}
	if settings.VotingOpen != cfg.Election.VotingOpen {
		if _, err := repos.Settings.SetVotingOpen(ctx, cfg.Election.VotingOpen, 0); err != nil {
			return fmt.Errorf("error applying initial voting state: %w", err)
		}
		lgr.Info().Bool("votingOpen", cfg.Election.VotingOpen).Msg("Initial voting state applied")
	}
	return nil
}

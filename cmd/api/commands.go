package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yigit/univote/internal/app/services"
	"github.com/yigit/univote/internal/bootstrap"
	"github.com/yigit/univote/internal/server"
)

// systemActor is the admin id recorded for CLI maintenance actions
const systemActor int64 = 0

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "univote",
		Short:         "UniVote election server",
		Long:          `Association election platform: candidate registry, ballot casting and live vote tabulation`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", bootstrap.DefaultConfigPath, "yaml configuration file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := server.NewServer(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	root.RunE = serve.RunE

	root.AddCommand(
		serve,
		newMigrateCommand(&configPath),
		newRecountCommand(&configPath),
		newResetCommand(&configPath),
		newVotingCommand(&configPath),
	)
	return root
}

// withServices opens the store, runs fn against the service layer and closes the store.
func withServices(ctx context.Context, configPath string, fn func(*services.Services, zerolog.Logger) error) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return err
	}
	store, err := bootstrap.OpenStore(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, _, err := bootstrap.BuildServices(cfg, store, nil, nil)
	if err != nil {
		return err
	}
	return fn(svc, lgr)
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(*configPath)
			if err != nil {
				return err
			}
			store, err := bootstrap.OpenStore(cmd.Context(), cfg, lgr)
			if err != nil {
				return err
			}
			store.Close()
			lgr.Info().Str("driver", store.Driver).Msg("Database is up to date")
			return nil
		},
	}
}

func newRecountCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recount",
		Short: "Rebuild every candidate vote counter from the valid ballots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), *configPath, func(svc *services.Services, lgr zerolog.Logger) error {
				changed, err := svc.Ballots.Recount(cmd.Context(), systemActor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recount complete, %d counter(s) corrected\n", changed)
				return nil
			})
		},
	}
}

func newResetCommand(configPath *string) *cobra.Command {
	var confirmation string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every ballot and zero all vote counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), *configPath, func(svc *services.Services, lgr zerolog.Logger) error {
				deleted, err := svc.Ballots.Reset(cmd.Context(), confirmation, systemActor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "election reset, %d ballot(s) deleted\n", deleted)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&confirmation, "confirm", "", "the configured reset confirmation phrase")
	_ = cmd.MarkFlagRequired("confirm")
	return cmd
}

func newVotingCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "voting open|close",
		Short:     "Open or close voting",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"open", "close"},
		RunE: func(cmd *cobra.Command, args []string) error {
			open := args[0] == "open"
			return withServices(cmd.Context(), *configPath, func(svc *services.Services, lgr zerolog.Logger) error {
				settings, err := svc.Election.SetVotingOpen(cmd.Context(), open, systemActor)
				if err != nil {
					return err
				}
				state := "closed"
				if settings.VotingOpen {
					state = "open"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "voting is now %s\n", state)
				return nil
			})
		},
	}
}

// Package cli defines the ivyscans command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ivyscans/api/internal/config"
	"github.com/ivyscans/api/internal/entrypoint"
	"github.com/ivyscans/api/internal/logging"
)

// Hooks lets tests replace what the commands run.
type Hooks struct {
	LoadConfig  func() *config.Config
	Serve       func(cfg *config.Config, version string) error
	PurgeTokens func(ctx context.Context, cfg config.Database) (int64, error)
}

func defaultHooks() Hooks {
	return Hooks{
		LoadConfig:  config.NewConfig,
		Serve:       entrypoint.Run,
		PurgeTokens: entrypoint.PurgeTokens,
	}
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the HTTP server.
func NewRootCommand(version, commit string, hooks Hooks) *cobra.Command {
	serve := func(cmd *cobra.Command, _ []string) error {
		cfg := hooks.LoadConfig()
		logging.Setup(cfg.Log)
		return hooks.Serve(cfg, version)
	}

	root := &cobra.Command{
		Use:           "ivyscans",
		Short:         "IvyScans comic platform API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve,
	}
	root.SetVersionTemplate(fmt.Sprintf("ivyscans {{.Version}} (%s)\n", commit))

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})

	root.AddCommand(&cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired refresh tokens and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := hooks.LoadConfig()
			logging.Setup(cfg.Log)
			deleted, err := hooks.PurgeTokens(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired refresh tokens\n", deleted)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ivyscans %s (%s)\n", version, commit)
		},
	})

	return root
}

// Execute runs the command line and exits the process on failure.
func Execute(version, commit string) {
	root := NewRootCommand(version, commit, defaultHooks())
	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

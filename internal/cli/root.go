// Package cli provides the command-line interface for the application.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradepulse/internal/config"
	"tradepulse/internal/store"
	"tradepulse/internal/upstream"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Upstream *upstream.Client
	Journal  store.Journal
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	upCfg := upstream.DefaultConfig(cfg.Upstream.BaseURL)
	if cfg.Upstream.Timeout > 0 {
		upCfg.Timeout = cfg.Upstream.Timeout
	}
	app.Upstream = upstream.NewClient(upCfg, logger)

	if cfg.Journal.Enabled {
		journal, err := store.NewSQLiteJournal(cfg.Journal.Path)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to open journal, history will be unavailable")
		} else {
			app.Journal = journal
			logger.Debug().Str("path", cfg.Journal.Path).Msg("Journal opened")
		}
	}

	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "Tradepulse - trading alert delivery gate",
		Long: `Tradepulse ingests a live stream of trading alerts and decides which
ones the user is actually shown. It deduplicates alerts, honors cooldown
windows and quiet hours, drops expired or server-suppressed alerts, and
widens the notification interval when the user keeps marking alerts
unhelpful.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newPrefsCmd(app))
	rootCmd.AddCommand(newFeedbackCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pulse %s\n", Version)
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tradepulse/internal/models"
)

func newPrefsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or update alert delivery preferences",
	}

	cmd.AddCommand(newPrefsShowCmd(app))
	cmd.AddCommand(newPrefsSetCmd(app))

	return cmd
}

func newPrefsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current armed and quiet-hours state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			snapshot, err := app.Upstream.FetchSnapshot(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("armed:       %v\n", snapshot.Armed)
			if len(snapshot.QuietHours) == 0 {
				fmt.Println("quiet hours: none")
			} else {
				fmt.Printf("quiet hours: %s\n", strings.Join(snapshot.QuietHours, ", "))
			}
			fmt.Printf("active alerts: %d\n", len(snapshot.Alerts))
			return nil
		},
	}
}

func newPrefsSetCmd(app *App) *cobra.Command {
	var armed, disarmed bool
	var quietHours []string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update armed state and/or quiet hours",
		Example: `  pulse prefs set --armed
  pulse prefs set --disarmed
  pulse prefs set --quiet 22:00-07:00 --quiet 12:30-13:30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if armed && disarmed {
				return fmt.Errorf("--armed and --disarmed are mutually exclusive")
			}

			var prefs models.Preferences
			if armed {
				v := true
				prefs.Armed = &v
			}
			if disarmed {
				v := false
				prefs.Armed = &v
			}
			if cmd.Flags().Changed("quiet") {
				prefs.QuietHours = quietHours
			}

			if prefs.Armed == nil && prefs.QuietHours == nil {
				return fmt.Errorf("nothing to update; pass --armed, --disarmed, or --quiet")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := app.Upstream.UpdatePreferences(ctx, prefs); err != nil {
				return err
			}
			fmt.Println("preferences updated")
			return nil
		},
	}

	cmd.Flags().BoolVar(&armed, "armed", false, "enable alert delivery globally")
	cmd.Flags().BoolVar(&disarmed, "disarmed", false, "disable alert delivery globally")
	cmd.Flags().StringArrayVar(&quietHours, "quiet", nil, "quiet-hours window HH:MM-HH:MM, repeatable; pass none to clear")

	return cmd
}

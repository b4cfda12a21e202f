package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tradepulse/internal/models"
	"tradepulse/internal/store"
)

func newFeedbackCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <alert-id> <helpful|not_helpful>",
		Short: "Record feedback for a delivered alert",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			alertID := args[0]
			rating := models.FeedbackRating(args[1])
			if !rating.Valid() {
				return fmt.Errorf("rating must be %q or %q", models.FeedbackHelpful, models.FeedbackNotHelpful)
			}

			if app.Journal == nil {
				return fmt.Errorf("journal disabled; enable it in config to record feedback")
			}

			rec := store.FeedbackRecord{
				AlertID:   alertID,
				Rating:    string(rating),
				CreatedAt: time.Now(),
			}
			if err := app.Journal.RecordFeedback(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Printf("feedback recorded for %s\n", alertID)
			return nil
		},
	}

	return cmd
}

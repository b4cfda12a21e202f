package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tradepulse/internal/store"
)

func newHistoryCmd(app *App) *cobra.Command {
	var symbol string
	var deliveredOnly, suppressedOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the journal of gate decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Journal == nil {
				return fmt.Errorf("journal disabled; enable it in config to query history")
			}
			if deliveredOnly && suppressedOnly {
				return fmt.Errorf("--delivered and --suppressed are mutually exclusive")
			}

			filter := store.DecisionFilter{Symbol: symbol, Limit: limit}
			if deliveredOnly {
				v := true
				filter.Delivered = &v
			}
			if suppressedOnly {
				v := false
				filter.Delivered = &v
			}

			records, err := app.Journal.GetDecisions(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no decisions recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tALERT\tSYMBOL\tTYPE\tSOURCE\tOUTCOME")
			for _, rec := range records {
				outcome := "delivered"
				if !rec.Delivered {
					outcome = "suppressed (" + rec.Reason + ")"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					rec.EvaluatedAt.Format("2006-01-02 15:04:05"),
					rec.AlertID, rec.Symbol, rec.Type, rec.Source, outcome)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().BoolVar(&deliveredOnly, "delivered", false, "only delivered alerts")
	cmd.Flags().BoolVar(&suppressedOnly, "suppressed", false, "only suppressed alerts")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")

	return cmd
}

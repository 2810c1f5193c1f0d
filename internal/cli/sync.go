package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrlokans/bookmarksync/internal/settingsstore"
	"github.com/mrlokans/bookmarksync/internal/syncer"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync every configured source once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Syncer.Run(cmd.Context())
			printReport(cmd.OutOrStdout(), report)
			if err != nil {
				return err
			}
			if report.Status() == settingsstore.SyncStatusFailed {
				return fmt.Errorf("sync failed: %s", report.Summary())
			}
			return nil
		},
	}
}

func printReport(w io.Writer, report syncer.Report) {
	for _, sr := range report.Sources {
		fmt.Fprintf(w, "%-11s %-8s fetched=%d created=%d updated=%d failed=%d highlights=%d",
			sr.Source, sr.Status, sr.Fetched, sr.Created, sr.Updated, sr.Failed, sr.HighlightsAdded)
		if sr.Error != "" {
			fmt.Fprintf(w, " error=%q", sr.Error)
		}
		fmt.Fprintln(w)
	}
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(w, "%s in %v\n", report.Status(), report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}
}

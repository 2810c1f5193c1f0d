package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every page as a markdown file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if dir == "" {
				dir = app.Config.Export.Dir
			}
			result, err := app.Exporter(dir).Export(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d pages (%d blocks) to %s\n",
				result.PagesProcessed, result.BlocksProcessed, dir)
			if result.PagesFailed > 0 {
				return fmt.Errorf("%d pages failed to export", result.PagesFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "output directory (defaults to EXPORT_DIR)")
	return cmd
}

// Package cli defines the bookmarksync command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/bookmarksync/internal/config"
	"github.com/mrlokans/bookmarksync/internal/entrypoint"
	"github.com/mrlokans/bookmarksync/internal/logger"
)

// BuildInfo is stamped at build time.
type BuildInfo struct {
	Version string
	Commit  string
}

// NewRootCommand builds the command tree. Running without a subcommand
// starts the server.
func NewRootCommand(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:           "bookmarksync",
		Short:         "Sync bookmarks and highlights into a Logseq-style graph",
		Version:       info.Version + " (" + info.Commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := serveCmd(info)
	root.RunE = serve.RunE

	root.AddCommand(serve)
	root.AddCommand(syncCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(settingsCmd())
	return root
}

// openApp loads configuration from the environment and opens the app.
func openApp() (*entrypoint.App, error) {
	cfg := config.NewConfig()
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	return entrypoint.NewApp(cfg, log)
}

func serveCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduler and task workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return entrypoint.Run(app, info.Version)
		},
	}
}

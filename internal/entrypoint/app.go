// Package entrypoint wires configuration, storage, sources and the sync
// machinery into a running application.
package entrypoint

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mrlokans/bookmarksync/internal/audit"
	"github.com/mrlokans/bookmarksync/internal/config"
	"github.com/mrlokans/bookmarksync/internal/crypto"
	"github.com/mrlokans/bookmarksync/internal/database"
	auditRepo "github.com/mrlokans/bookmarksync/internal/database/audit"
	"github.com/mrlokans/bookmarksync/internal/database/pages"
	settingsRepo "github.com/mrlokans/bookmarksync/internal/database/settings"
	"github.com/mrlokans/bookmarksync/internal/exporters"
	"github.com/mrlokans/bookmarksync/internal/graph"
	"github.com/mrlokans/bookmarksync/internal/journal"
	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/settingsstore"
	"github.com/mrlokans/bookmarksync/internal/sources"
	"github.com/mrlokans/bookmarksync/internal/sources/hackernews"
	"github.com/mrlokans/bookmarksync/internal/sources/pocket"
	"github.com/mrlokans/bookmarksync/internal/sources/readwise"
	"github.com/mrlokans/bookmarksync/internal/syncer"
)

const providerTimeout = 60 * time.Second

// App holds the long-lived components shared by every command.
type App struct {
	Config   *config.Config
	Log      logger.Logger
	DB       *database.Database
	Pages    *pages.Repository
	Settings *settingsstore.SettingsStore
	Audit    *audit.Service
	Engine   *graph.Engine
	Syncer   *syncer.Syncer
	Dates    *journal.Formatter
}

// NewApp opens the database and builds the sync pipeline.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	storeOpts := []settingsstore.Option{
		settingsstore.WithLogger(log.Named("settings")),
		settingsstore.WithSyncDefaults(cfg.Sync.Enabled, cfg.Sync.Schedule),
	}
	if cfg.Settings.Secret != "" {
		enc, err := crypto.NewEncryptorFromSecret(cfg.Settings.Secret)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize settings encryption: %w", err)
		}
		storeOpts = append(storeOpts, settingsstore.WithEncryptor(enc))
	} else {
		log.Warn("SETTINGS_SECRET is not set, provider credentials are stored unencrypted")
	}
	store := settingsstore.New(settingsRepo.NewRepository(db.DB), storeOpts...)

	pageRepo := pages.NewRepository(db.DB)
	auditService := audit.NewService(auditRepo.NewRepository(db.DB), log.Named("audit"))
	dates := journal.NewFormatter(cfg.Journal.DateFormat, cfg.Journal.Location())

	engine := graph.NewEngine(pageRepo, dates,
		graph.WithTitleLength(cfg.Graph.TitleMaxLength),
		graph.WithLogger(log.Named("graph")))

	factory := SourceFactory(store, NewClients(&http.Client{Timeout: providerTimeout}), dates, log)
	s := syncer.New(engine, factory,
		syncer.WithSourceTimeout(cfg.Sync.SourceTimeout),
		syncer.WithStatusRecorder(store),
		syncer.WithAuditLogger(auditService),
		syncer.WithLogger(log))

	return &App{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Pages:    pageRepo,
		Settings: store,
		Audit:    auditService,
		Engine:   engine,
		Syncer:   s,
		Dates:    dates,
	}, nil
}

// Exporter returns a markdown exporter writing into dir.
func (a *App) Exporter(dir string) *exporters.MarkdownExporter {
	return exporters.NewMarkdownExporter(dir, a.Pages,
		exporters.WithAuditLogger(a.Audit),
		exporters.WithLogger(a.Log))
}

func (a *App) Close() error {
	_ = a.Log.Sync()
	return a.DB.Close()
}

// Clients are the provider API clients shared across runs.
type Clients struct {
	HackerNews *hackernews.Client
	Pocket     *pocket.Client
	Readwise   *readwise.Client
}

func NewClients(hc *http.Client) Clients {
	return Clients{
		HackerNews: hackernews.NewClient(hackernews.WithHTTPClient(hc)),
		Pocket:     pocket.NewClient(pocket.WithHTTPClient(hc)),
		Readwise:   readwise.NewClient(readwise.WithHTTPClient(hc)),
	}
}

// SourceSettingsStore provides per-run settings and persists cursors.
type SourceSettingsStore interface {
	sources.CursorStore
	SourceSettings(ctx context.Context) sources.Settings
}

// SourceFactory builds every provider from the settings current at the
// start of a run, so credential edits apply to the next run.
func SourceFactory(store SourceSettingsStore, clients Clients, dates graph.DateLabeler, log logger.Logger) syncer.SourceFactory {
	return func(ctx context.Context) ([]sources.Source, error) {
		settings := store.SourceSettings(ctx)
		return []sources.Source{
			hackernews.New(clients.HackerNews, settings, store, dates, hackernews.WithLogger(log)),
			pocket.New(clients.Pocket, settings, store, pocket.WithLogger(log)),
			readwise.New(clients.Readwise, settings, store, readwise.WithLogger(log)),
		}, nil
	}
}

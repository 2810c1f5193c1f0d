package entrypoint

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookmarksync/internal/config"
	settingsRepo "github.com/mrlokans/bookmarksync/internal/database/settings"
	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/journal"
	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/sources"
	"github.com/mrlokans/bookmarksync/internal/sources/sourcestest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.Database{Path: filepath.Join(t.TempDir(), "app.db")},
		Sync:     config.Sync{Schedule: "0 */6 * * *", SourceTimeout: time.Minute},
		Journal:  config.Journal{DateFormat: config.DefaultJournalDateFormat, Timezone: "UTC"},
		Graph:    config.Graph{TitleMaxLength: config.DefaultTitleMaxLength},
		Settings: config.Settings{Secret: "test-secret"},
	}
}

type staticSettings struct {
	*sourcestest.CursorStore
	settings sources.Settings
}

func (s staticSettings) SourceSettings(ctx context.Context) sources.Settings { return s.settings }

func TestSourceFactory(t *testing.T) {
	store := staticSettings{
		CursorStore: sourcestest.NewCursorStore(),
		settings:    sources.Settings{Credentials: sources.Credentials{PocketConsumerKey: "ck", PocketAccessToken: "at"}},
	}
	factory := SourceFactory(store, NewClients(http.DefaultClient), journal.NewFormatter("", time.UTC), logger.Nop())

	srcs, err := factory(context.Background())
	require.NoError(t, err)
	require.Len(t, srcs, 3)

	enabled := map[string]bool{}
	for _, src := range srcs {
		enabled[src.Name()] = src.Enabled()
	}
	assert.Equal(t, map[string]bool{
		sources.NameHackerNews: false,
		sources.NamePocket:     true,
		sources.NameReadwise:   false,
	}, enabled)
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewApp(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	ctx := context.Background()
	require.NoError(t, app.Settings.SetCredential(ctx, entities.SettingKeyReadwiseToken, "secret-token"))
	assert.Equal(t, "secret-token", app.Settings.Credentials(ctx).ReadwiseToken)

	stored, err := settingsRepo.NewRepository(app.DB.DB).GetSetting(ctx, entities.SettingKeyReadwiseToken)
	require.NoError(t, err)
	assert.NotContains(t, stored.Value, "secret-token")

	res, err := app.Exporter(t.TempDir()).Export(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.PagesProcessed)
}

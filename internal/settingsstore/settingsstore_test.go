package settingsstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookmarksync/internal/crypto"
	"github.com/mrlokans/bookmarksync/internal/database"
	"github.com/mrlokans/bookmarksync/internal/database/settings"
	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/sources"
)

func setupTestDB(t *testing.T) *settings.Repository {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "settings.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return settings.NewRepository(db.DB)
}

func env(vars map[string]string) Option {
	return withGetenv(func(key string) string { return vars[key] })
}

func TestSettingsStore_Priority(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	t.Run("default when nothing is set", func(t *testing.T) {
		store := New(repo, env(nil))
		assert.Equal(t, DefaultSyncSchedule, store.SyncSchedule(ctx))
		assert.False(t, store.SyncEnabled(ctx))
		assert.Empty(t, store.Credentials(ctx).HNUsername)
	})

	t.Run("environment overrides default", func(t *testing.T) {
		store := New(repo, env(map[string]string{
			"HN_USERNAME":   "env-user",
			"SYNC_ENABLED":  "1",
			"SYNC_SCHEDULE": "0 * * * *",
		}))
		assert.Equal(t, "env-user", store.Credentials(ctx).HNUsername)
		assert.True(t, store.SyncEnabled(ctx))
		assert.Equal(t, "0 * * * *", store.SyncSchedule(ctx))
	})

	t.Run("database overrides environment", func(t *testing.T) {
		store := New(repo, env(map[string]string{"HN_USERNAME": "env-user"}))
		require.NoError(t, store.SetCredential(ctx, entities.SettingKeyHNUsername, "db-user"))
		assert.Equal(t, "db-user", store.Credentials(ctx).HNUsername)

		require.NoError(t, store.Clear(ctx, entities.SettingKeyHNUsername))
		assert.Equal(t, "env-user", store.Credentials(ctx).HNUsername)
	})
}

func TestSettingsStore_SyncDefaults(t *testing.T) {
	store := New(setupTestDB(t), env(nil), WithSyncDefaults(true, "*/30 * * * *"))
	ctx := context.Background()

	assert.Equal(t, SyncConfig{Enabled: true, Schedule: "*/30 * * * *"}, store.SyncConfig(ctx))

	require.NoError(t, store.SetSyncEnabled(ctx, false))
	assert.False(t, store.SyncEnabled(ctx))
}

func TestSettingsStore_SetSyncSchedule(t *testing.T) {
	store := New(setupTestDB(t), env(nil))
	ctx := context.Background()

	assert.Error(t, store.SetSyncSchedule(ctx, "not a schedule"))
	assert.Equal(t, DefaultSyncSchedule, store.SyncSchedule(ctx))

	require.NoError(t, store.SetSyncSchedule(ctx, "0 0 * * *"))
	assert.Equal(t, "0 0 * * *", store.SyncSchedule(ctx))
}

func TestSettingsStore_EncryptedCredentials(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	enc, err := crypto.NewEncryptorFromSecret("s3cret")
	require.NoError(t, err)
	store := New(repo, env(nil), WithEncryptor(enc))

	require.NoError(t, store.SetCredential(ctx, entities.SettingKeyReadwiseToken, "rw-token-123456"))
	assert.Equal(t, "rw-token-123456", store.Credentials(ctx).ReadwiseToken)

	raw, err := repo.GetSetting(ctx, entities.SettingKeyReadwiseToken)
	require.NoError(t, err)
	assert.NotContains(t, raw.Value, "rw-token")
	assert.Contains(t, raw.Value, encryptedPrefix)

	t.Run("unreadable without the secret", func(t *testing.T) {
		plain := New(repo, env(map[string]string{"READWISE_TOKEN": "from-env"}))
		assert.Equal(t, "from-env", plain.Credentials(ctx).ReadwiseToken)
	})

	t.Run("unreadable with another secret", func(t *testing.T) {
		other, err := crypto.NewEncryptorFromSecret("other")
		require.NoError(t, err)
		store := New(repo, env(nil), WithEncryptor(other))
		assert.Empty(t, store.Credentials(ctx).ReadwiseToken)
	})
}

func TestSettingsStore_PlaintextReadWithEncryptor(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, New(repo, env(nil)).SetCredential(ctx, entities.SettingKeyHNUsername, "pg"))

	enc, err := crypto.NewEncryptorFromSecret("later")
	require.NoError(t, err)
	assert.Equal(t, "pg", New(repo, env(nil), WithEncryptor(enc)).Credentials(ctx).HNUsername)
}

func TestSettingsStore_SetCredential_RejectsOtherKeys(t *testing.T) {
	store := New(setupTestDB(t), env(nil))
	err := store.SetCredential(context.Background(), entities.SettingKeySyncSchedule, "x")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestSettingsStore_Cursors(t *testing.T) {
	store := New(setupTestDB(t), env(nil))
	ctx := context.Background()

	assert.Equal(t, sources.Cursors{}, store.Cursors(ctx))

	require.NoError(t, store.SetCursor(ctx, sources.NameHackerNews, "123"))
	require.NoError(t, store.SetCursor(ctx, sources.NamePocket, "1700000000"))
	require.NoError(t, store.SetCursor(ctx, sources.NameReadwise, "1700000000000"))
	assert.ErrorIs(t, store.SetCursor(ctx, "delicious", "1"), ErrUnknownProvider)

	assert.Equal(t, sources.Settings{
		Cursors: sources.Cursors{
			HackerNews: "123",
			Pocket:     "1700000000",
			Readwise:   "1700000000000",
		},
	}, store.SourceSettings(ctx))
}

func TestSettingsStore_SyncStatus(t *testing.T) {
	store := New(setupTestDB(t), env(nil))
	ctx := context.Background()

	assert.Equal(t, SyncStatus{}, store.SyncStatus(ctx))

	before := time.Now().Add(-time.Second)
	require.NoError(t, store.SetSyncStatus(ctx, SyncStatusSuccess, "3 sources synced"))

	status := store.SyncStatus(ctx)
	assert.Equal(t, SyncStatusSuccess, status.Status)
	assert.Equal(t, "3 sources synced", status.Message)
	require.NotNil(t, status.LastSyncAt)
	assert.True(t, status.LastSyncAt.After(before))
}

func TestSettingsStore_Info(t *testing.T) {
	store := New(setupTestDB(t), env(map[string]string{"POCKET_CONSUMER_KEY": "1234-abcdefgh"}))
	ctx := context.Background()
	require.NoError(t, store.SetCredential(ctx, entities.SettingKeyReadwiseToken, "short"))

	byKey := make(map[string]SettingInfo)
	for _, info := range store.Info(ctx) {
		byKey[info.Key] = info
	}

	assert.Equal(t, SettingInfo{Key: entities.SettingKeyPocketConsumerKey, Value: "1234****efgh", Source: SourceEnvironment}, byKey[entities.SettingKeyPocketConsumerKey])
	assert.Equal(t, SettingInfo{Key: entities.SettingKeyReadwiseToken, Value: "****", Source: SourceDatabase}, byKey[entities.SettingKeyReadwiseToken])
	assert.Equal(t, SettingInfo{Key: entities.SettingKeyHNUsername, Source: SourceDefault}, byKey[entities.SettingKeyHNUsername])
	assert.Equal(t, DefaultSyncSchedule, byKey[entities.SettingKeySyncSchedule].Value)
}

func TestSettingsStore_ClearUnknown(t *testing.T) {
	store := New(setupTestDB(t), env(nil))
	assert.ErrorIs(t, store.Clear(context.Background(), "nope"), ErrUnknownKey)
}

func TestValidateCronSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"0 * * * *", true},
		{"*/15 * * * *", true},
		{"0 0 * * *", true},
		{"0 0 * * 0", true},
		{"0 */6 * * *", true},
		{"invalid", false},
		{"* * * *", false},
		{"60 * * * *", false},
		{"0 25 * * *", false},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateCronSchedule(tt.schedule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGetCronDescription(t *testing.T) {
	assert.Equal(t, "Every 6 hours", GetCronDescription(DefaultSyncSchedule))
	assert.Equal(t, "Daily at midnight", GetCronDescription("0 0 * * *"))
	assert.Equal(t, "Custom schedule: 5 4 * * *", GetCronDescription("5 4 * * *"))
}

func TestGetNextRunTime(t *testing.T) {
	next, err := GetNextRunTime("0 * * * *")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))

	_, err = GetNextRunTime("invalid")
	assert.Error(t, err)
}

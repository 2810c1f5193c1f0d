package settingsstore

import (
	"context"
	"fmt"

	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/sources"
)

var cursorKeys = map[string]string{
	sources.NameHackerNews: entities.SettingKeyHNLastSync,
	sources.NamePocket:     entities.SettingKeyPocketLastSync,
	sources.NameReadwise:   entities.SettingKeyReadwiseLastSync,
}

// Credentials returns the effective provider credentials.
func (s *SettingsStore) Credentials(ctx context.Context) sources.Credentials {
	get := func(key string) string {
		value, _ := s.lookup(ctx, key, "")
		return value
	}
	return sources.Credentials{
		HNUsername:        get(entities.SettingKeyHNUsername),
		PocketConsumerKey: get(entities.SettingKeyPocketConsumerKey),
		PocketAccessToken: get(entities.SettingKeyPocketAccessToken),
		ReadwiseToken:     get(entities.SettingKeyReadwiseToken),
	}
}

// SetCredential stores a credential, encrypted when a secret is configured.
func (s *SettingsStore) SetCredential(ctx context.Context, key, value string) error {
	if !isCredential(key) {
		return fmt.Errorf("%w: %s is not a credential", ErrUnknownKey, key)
	}
	encoded, err := s.encode(value)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", key, err)
	}
	return s.set(ctx, key, encoded)
}

// Cursors returns the stored incremental-sync cursors.
func (s *SettingsStore) Cursors(ctx context.Context) sources.Cursors {
	get := func(provider string) string {
		value, _ := s.stored(ctx, cursorKeys[provider])
		return value
	}
	return sources.Cursors{
		HackerNews: get(sources.NameHackerNews),
		Pocket:     get(sources.NamePocket),
		Readwise:   get(sources.NameReadwise),
	}
}

// SetCursor implements sources.CursorStore.
func (s *SettingsStore) SetCursor(ctx context.Context, provider, value string) error {
	key, ok := cursorKeys[provider]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return s.set(ctx, key, value)
}

// SourceSettings is the snapshot sources are constructed with.
func (s *SettingsStore) SourceSettings(ctx context.Context) sources.Settings {
	return sources.Settings{
		Credentials: s.Credentials(ctx),
		Cursors:     s.Cursors(ctx),
	}
}

var _ sources.CursorStore = (*SettingsStore)(nil)

// Package sources defines the contract between bookmark providers and the
// sync orchestrator, plus the pieces every provider client shares.
package sources

import (
	"context"

	"github.com/mrlokans/bookmarksync/internal/entities"
)

// Provider names. They double as audit sources and cursor keys.
const (
	NameHackerNews = "hackernews"
	NamePocket     = "pocket"
	NameReadwise   = "readwise"
)

// Source produces bookmarks from one external service.
//
// GetBookmarks returns everything new since the last recorded cursor.
// SetLastSync advances the cursor and must only be called after the
// bookmarks returned by the preceding GetBookmarks were merged.
type Source interface {
	Name() string
	Enabled() bool
	GetBookmarks(ctx context.Context) ([]entities.Bookmark, error)
	SetLastSync(ctx context.Context) error
}

// Credentials holds the per-provider secrets. A provider is enabled only
// when all of its fields are set.
type Credentials struct {
	HNUsername        string
	PocketConsumerKey string
	PocketAccessToken string
	ReadwiseToken     string
}

// Cursors holds the raw incremental-sync markers, one per provider. Their
// format is owned by the provider that writes them.
type Cursors struct {
	HackerNews string
	Pocket     string
	Readwise   string
}

// Settings is the snapshot a source is constructed with.
type Settings struct {
	Credentials Credentials
	Cursors     Cursors
}

// CursorStore persists a provider's cursor.
type CursorStore interface {
	SetCursor(ctx context.Context, provider, value string) error
}

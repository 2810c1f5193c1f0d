// Package pocket syncs the reading list of a Pocket account.
package pocket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/graph"
	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/sources"
)

// Source turns saved items into bookmarks. Its cursor is the unix time, in
// seconds, at which the last successful sync started fetching.
type Source struct {
	client      *Client
	consumerKey string
	accessToken string
	since       string
	cursors     sources.CursorStore
	now         func() time.Time
	fetchStart  time.Time
	log         logger.Logger
}

type Option func(*Source)

func WithLogger(l logger.Logger) Option {
	return func(s *Source) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

func New(client *Client, settings sources.Settings, cursors sources.CursorStore, opts ...Option) *Source {
	s := &Source{
		client:      client,
		consumerKey: settings.Credentials.PocketConsumerKey,
		accessToken: settings.Credentials.PocketAccessToken,
		since:       settings.Cursors.Pocket,
		cursors:     cursors,
		now:         time.Now,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string {
	return sources.NamePocket
}

func (s *Source) Enabled() bool {
	return s.consumerKey != "" && s.accessToken != ""
}

func (s *Source) GetBookmarks(ctx context.Context) ([]entities.Bookmark, error) {
	s.fetchStart = s.now()
	items, err := s.client.Retrieve(ctx, s.consumerKey, s.accessToken, s.sinceUnix())
	if err != nil {
		return nil, fmt.Errorf("retrieve items: %w", err)
	}

	bookmarks := make([]entities.Bookmark, 0, len(items))
	for _, item := range items {
		if item.ResolvedID == "" || item.ResolvedTitle == "" {
			continue
		}
		bookmarks = append(bookmarks, entities.Bookmark{
			Hash:    graph.Hash(item.ResolvedURL),
			URL:     item.ResolvedURL,
			Title:   item.ResolvedTitle,
			Tags:    []string{"article", "pocket"},
			Created: item.Added(),
		})
	}
	s.log.Info("retrieved items",
		logger.Int("items", len(items)),
		logger.Int("bookmarks", len(bookmarks)))
	return bookmarks, nil
}

func (s *Source) sinceUnix() int64 {
	if s.since == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(s.since, 64)
	if err != nil {
		s.log.Warn("ignoring unreadable cursor", logger.String("cursor", s.since))
		return 0
	}
	return int64(secs)
}

func (s *Source) SetLastSync(ctx context.Context) error {
	cursor := strconv.FormatInt(s.cursorTime().Unix(), 10)
	if err := s.cursors.SetCursor(ctx, s.Name(), cursor); err != nil {
		return err
	}
	s.since = cursor
	return nil
}

// cursorTime is when the last fetch started, so items saved while a sync is
// running are fetched again next time.
func (s *Source) cursorTime() time.Time {
	if s.fetchStart.IsZero() {
		return s.now()
	}
	return s.fetchStart
}

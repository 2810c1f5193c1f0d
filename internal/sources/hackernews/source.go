// Package hackernews syncs a user's Hacker News favorites.
package hackernews

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

// ItemURL is the discussion page of an item.
const ItemURL = "https://news.ycombinator.com/item?id="

// PropertyPosted holds the journal link of the day a story was posted.
const PropertyPosted = "posted"

// Source turns favorited stories into bookmarks. Its cursor is the id of
// the newest favorite seen by the last successful sync.
type Source struct {
	client   *Client
	username string
	since    string
	cursors  sources.CursorStore
	dates    graph.DateLabeler
	log      logger.Logger

	lastID string
}

type Option func(*Source)

func WithLogger(l logger.Logger) Option {
	return func(s *Source) { s.log = l }
}

func New(client *Client, settings sources.Settings, cursors sources.CursorStore, dates graph.DateLabeler, opts ...Option) *Source {
	s := &Source{
		client:   client,
		username: settings.Credentials.HNUsername,
		since:    settings.Cursors.HackerNews,
		cursors:  cursors,
		dates:    dates,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string {
	return sources.NameHackerNews
}

func (s *Source) Enabled() bool {
	return s.username != ""
}

func (s *Source) GetBookmarks(ctx context.Context) ([]entities.Bookmark, error) {
	favorites, err := s.client.AllFavorites(ctx, s.username, s.since)
	if err != nil {
		return nil, fmt.Errorf("fetch favorites: %w", err)
	}

	ids := make([]string, len(favorites))
	for i, f := range favorites {
		ids[i] = f.ID
	}
	items, err := s.client.Items(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}

	s.lastID = ""
	if len(ids) > 0 {
		s.lastID = ids[0]
	}

	bookmarks := make([]entities.Bookmark, 0, len(items))
	for i, item := range items {
		if item == nil {
			s.log.Debug("skipping deleted item", logger.String("id", ids[i]))
			continue
		}
		bookmarks = append(bookmarks, s.bookmark(item))
	}
	s.log.Info("fetched favorites",
		logger.Int("favorites", len(favorites)),
		logger.Int("bookmarks", len(bookmarks)))
	return bookmarks, nil
}

func (s *Source) bookmark(item *Item) entities.Bookmark {
	hnURL := ItemURL + strconv.FormatInt(item.ID, 10)
	link := item.URL
	if link == "" {
		link = hnURL
	}

	props := entities.Properties{}
	if item.By != "" {
		props.Set(graph.PropertyAuthor, "[["+item.By+" (hackernews)]]")
	}
	props.Set(graph.PropertyHNURL, hnURL)
	if item.Time > 0 {
		props.Set(PropertyPosted, s.dates.Label(time.Unix(item.Time, 0)))
	}

	return entities.Bookmark{
		Hash:       graph.Hash(link),
		URL:        link,
		Title:      item.Title,
		Tags:       []string{"article", "hackernews"},
		Properties: props,
	}
}

// SetLastSync records the newest favorite of the last fetch. A fetch that
// found nothing leaves the cursor alone.
func (s *Source) SetLastSync(ctx context.Context) error {
	if s.lastID == "" {
		return nil
	}
	if err := s.cursors.SetCursor(ctx, s.Name(), s.lastID); err != nil {
		return err
	}
	s.since = s.lastID
	return nil
}

// Package readwise syncs articles and tweets, with their highlights, from a
// Readwise account. Books and other categories are ignored.
package readwise

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/graph"
	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/sources"
)

const (
	CategoryArticles = "articles"
	CategoryTweets   = "tweets"
)

var categoryTags = map[string][]string{
	CategoryArticles: {"article", "readwise"},
	CategoryTweets:   {"twitter", "readwise"},
}

// Source turns Readwise documents into bookmarks. Its cursor is the unix
// time, in milliseconds, at which the last successful sync started fetching.
type Source struct {
	client     *Client
	token      string
	since      string
	cursors    sources.CursorStore
	now        func() time.Time
	fetchStart time.Time
	log        logger.Logger
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
		client:  client,
		token:   settings.Credentials.ReadwiseToken,
		since:   settings.Cursors.Readwise,
		cursors: cursors,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string {
	return sources.NameReadwise
}

func (s *Source) Enabled() bool {
	return s.token != ""
}

// GetBookmarks collects books updated since the cursor plus every book that
// received a highlight since the cursor. Books outside the window are fetched
// one by one.
func (s *Source) GetBookmarks(ctx context.Context) ([]entities.Bookmark, error) {
	since := s.sinceTime()
	s.fetchStart = s.now()

	books, err := s.client.AllBooks(ctx, s.token, since)
	if err != nil {
		return nil, fmt.Errorf("fetch books: %w", err)
	}
	highlights, err := s.client.AllHighlights(ctx, s.token, since)
	if err != nil {
		return nil, fmt.Errorf("fetch highlights: %w", err)
	}

	cache := make(map[int]Book, len(books))
	var order []int
	for _, book := range books {
		if _, seen := cache[book.ID]; !seen {
			order = append(order, book.ID)
		}
		cache[book.ID] = book
	}

	byBook := make(map[int][]entities.Highlight)
	for _, h := range highlights {
		if _, ok := cache[h.BookID]; !ok {
			book, err := s.client.Book(ctx, s.token, h.BookID)
			if err != nil {
				return nil, fmt.Errorf("fetch book %d: %w", h.BookID, err)
			}
			cache[h.BookID] = *book
			order = append(order, h.BookID)
		}
		byBook[h.BookID] = append(byBook[h.BookID], highlight(h))
	}

	var bookmarks []entities.Bookmark
	for _, id := range order {
		book := cache[id]
		tags, ok := categoryTags[book.Category]
		if !ok {
			continue
		}
		bookmarks = append(bookmarks, bookmark(book, tags, byBook[id]))
	}
	s.log.Info("fetched library",
		logger.Int("books", len(books)),
		logger.Int("highlights", len(highlights)),
		logger.Int("bookmarks", len(bookmarks)))
	return bookmarks, nil
}

func bookmark(book Book, tags []string, highlights []entities.Highlight) entities.Bookmark {
	key := book.SourceURL
	if key == "" {
		key = strconv.Itoa(book.ID)
	}

	sort.SliceStable(highlights, func(i, j int) bool {
		return highlights[i].Location < highlights[j].Location
	})

	props := entities.Properties{}
	if book.Author != "" {
		props.Set(graph.PropertyAuthor, "[["+book.Author+"]]")
	}

	return entities.Bookmark{
		Hash:       graph.Hash(key),
		URL:        book.SourceURL,
		Title:      book.Title,
		Tags:       append([]string(nil), tags...),
		Properties: props,
		Highlights: highlights,
		Created:    book.Updated,
	}
}

func highlight(h Highlight) entities.Highlight {
	var tags []string
	for _, t := range h.Tags {
		tags = append(tags, t.Name)
	}
	return entities.Highlight{
		Hash:     graph.Hash(strconv.Itoa(h.ID)),
		Text:     h.Text,
		Tags:     tags,
		Location: h.Location,
		Created:  h.HighlightedAt,
	}
}

func (s *Source) sinceTime() *time.Time {
	if s.since == "" {
		return nil
	}
	ms, err := strconv.ParseInt(s.since, 10, 64)
	if err != nil {
		s.log.Warn("ignoring unreadable cursor", logger.String("cursor", s.since))
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}

func (s *Source) SetLastSync(ctx context.Context) error {
	cursor := strconv.FormatInt(s.cursorTime().UnixMilli(), 10)
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

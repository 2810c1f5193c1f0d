package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/logger"
)

var (
	// ErrMissingHash is returned for a bookmark that carries no identity.
	ErrMissingHash = errors.New("bookmark has no hash")
	// ErrCreatePage wraps a store refusal to create the page for a bookmark.
	ErrCreatePage = errors.New("error creating page")
	// ErrMissingPropertiesBlock means a page has no first block to hold properties.
	ErrMissingPropertiesBlock = errors.New("page properties block does not exist")
)

// Engine merges bookmarks and their highlights into a Store. It is meant to
// be driven by a single goroutine: every operation is read-then-write on
// shared pages.
type Engine struct {
	store       Store
	dates       DateLabeler
	titleLength int
	log         logger.Logger
}

type Option func(*Engine)

// WithTitleLength overrides DefaultTitleLength.
func WithTitleLength(n int) Option {
	return func(e *Engine) { e.titleLength = n }
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(store Store, dates DateLabeler, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		dates:       dates,
		titleLength: DefaultTitleLength,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UpsertResult summarizes a batch of upserts.
type UpsertResult struct {
	Created           int
	Updated           int
	Failed            int
	HighlightsAdded   int
	HighlightsSkipped int
	Errors            []error
}

// UpsertBookmarks upserts each bookmark in order. A failing bookmark is
// logged and recorded; the remaining bookmarks are still processed.
func (e *Engine) UpsertBookmarks(ctx context.Context, bookmarks []entities.Bookmark) UpsertResult {
	var result UpsertResult
	for _, bookmark := range bookmarks {
		outcome, err := e.upsert(ctx, bookmark)
		result.HighlightsAdded += outcome.highlightsAdded
		result.HighlightsSkipped += outcome.highlightsSkipped
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err)
			e.log.Warn("bookmark upsert failed",
				logger.String("hash", bookmark.Hash),
				logger.String("title", bookmark.Title),
				logger.Error(err))
			continue
		}
		if outcome.created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result
}

// UpsertBookmark finds or creates the page for a bookmark, refreshes its tags
// and appends its highlights. Titles of existing pages are never changed.
func (e *Engine) UpsertBookmark(ctx context.Context, bookmark entities.Bookmark) (*entities.Page, error) {
	outcome, err := e.upsert(ctx, bookmark)
	return outcome.page, err
}

type upsertOutcome struct {
	page              *entities.Page
	created           bool
	highlightsAdded   int
	highlightsSkipped int
}

func (e *Engine) upsert(ctx context.Context, bookmark entities.Bookmark) (upsertOutcome, error) {
	var outcome upsertOutcome
	if bookmark.Hash == "" {
		return outcome, ErrMissingHash
	}

	page, err := e.store.FindPageByProperty(ctx, PropertyHash, bookmark.Hash)
	if err != nil {
		return outcome, fmt.Errorf("lookup page %s: %w", bookmark.Hash, err)
	}

	if page != nil {
		if len(bookmark.Tags) > 0 {
			if err := e.upsertPageProperties(ctx, page, entities.Properties{PropertyTags: bookmark.Tags}); err != nil {
				return outcome, err
			}
		}
	} else {
		page, err = e.createPage(ctx, bookmark)
		if err != nil {
			return outcome, err
		}
		outcome.created = true
	}
	outcome.page = page

	for _, highlight := range bookmark.Highlights {
		added, err := e.AppendHighlight(ctx, page, highlight)
		if err != nil {
			return outcome, fmt.Errorf("append highlight %s: %w", highlight.Hash, err)
		}
		if added {
			outcome.highlightsAdded++
		} else {
			outcome.highlightsSkipped++
		}
	}
	return outcome, nil
}

func (e *Engine) createPage(ctx context.Context, bookmark entities.Bookmark) (*entities.Page, error) {
	title, err := e.pageTitle(ctx, bookmark)
	if err != nil {
		return nil, err
	}

	props := entities.Properties{}
	props.Set(PropertyTags, bookmark.Tags...)
	props.Set(PropertyURL, bookmark.URL)
	if bookmark.Created != nil {
		props.Set(PropertyCreated, e.dates.Label(*bookmark.Created))
	}
	for key, values := range bookmark.Properties {
		if entities.JoinValues(values) != "" {
			props[key] = values
		}
	}
	props.Set(PropertyHash, bookmark.Hash)

	page, err := e.store.CreatePage(ctx, title, ReconcileProperties("", props))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrCreatePage, title, err)
	}
	if page == nil {
		return nil, fmt.Errorf("%w %q", ErrCreatePage, title)
	}
	e.log.Debug("page created", logger.String("title", title), logger.String("hash", bookmark.Hash))
	return page, nil
}

// pageTitle picks the title for a new page, falling back to the
// hash-suffixed form when another resource already owns the plain title.
func (e *Engine) pageTitle(ctx context.Context, bookmark entities.Bookmark) (string, error) {
	title := NormalizeTitle(bookmark.Title, e.titleLength, "")
	if strings.TrimSpace(title) == "" {
		return strings.TrimSpace(NormalizeTitle(bookmark.Title, e.titleLength, bookmark.Hash)), nil
	}

	existing, err := e.store.FindPageByName(ctx, title)
	if err != nil {
		return "", fmt.Errorf("lookup page title %q: %w", title, err)
	}
	if existing == nil {
		return title, nil
	}

	owner, err := e.pageProperty(ctx, existing, PropertyHash)
	if err != nil && !errors.Is(err, ErrMissingPropertiesBlock) {
		return "", err
	}
	if owner != bookmark.Hash {
		title = NormalizeTitle(bookmark.Title, e.titleLength, bookmark.Hash)
	}
	return title, nil
}

func (e *Engine) propertiesBlock(ctx context.Context, page *entities.Page) (*entities.Block, error) {
	blocks, err := e.store.GetPageBlocksTree(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("load blocks of %q: %w", page.OriginalName, err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingPropertiesBlock, page.OriginalName)
	}
	return &blocks[0], nil
}

func (e *Engine) pageProperty(ctx context.Context, page *entities.Page, key string) (string, error) {
	block, err := e.propertiesBlock(ctx, page)
	if err != nil {
		return "", err
	}
	return entities.ParseProperties(block.Content)[key], nil
}

func (e *Engine) upsertPageProperties(ctx context.Context, page *entities.Page, props entities.Properties) error {
	block, err := e.propertiesBlock(ctx, page)
	if err != nil {
		return err
	}

	content := ReconcileProperties(block.Content, props)
	if content == block.Content {
		return nil
	}
	if err := e.store.UpdateBlock(ctx, block.ID, content); err != nil {
		return fmt.Errorf("update properties of %q: %w", page.OriginalName, err)
	}
	return nil
}

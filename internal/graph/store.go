package graph

import (
	"context"
	"time"

	"github.com/mrlokans/bookmarksync/internal/entities"
)

// Store is the page/block graph the engine merges into. Lookups return
// (nil, nil) when nothing matches.
type Store interface {
	FindPageByProperty(ctx context.Context, key, value string) (*entities.Page, error)
	FindPageByName(ctx context.Context, title string) (*entities.Page, error)
	// CreatePage creates a page whose first block holds properties. Either
	// the page exists with that block afterwards or nothing was written.
	CreatePage(ctx context.Context, title, properties string) (*entities.Page, error)
	// GetPageBlocksTree returns the root blocks of a page in order, with
	// Children populated recursively.
	GetPageBlocksTree(ctx context.Context, pageID uint) ([]entities.Block, error)
	// AppendBlock adds a block as the last child of parentID, or as the last
	// root block when parentID is nil.
	AppendBlock(ctx context.Context, pageID uint, parentID *uint, content string) (*entities.Block, error)
	UpdateBlock(ctx context.Context, blockID uint, content string) error
}

// DateLabeler renders a point in time as a journal page reference.
type DateLabeler interface {
	Label(t time.Time) string
}

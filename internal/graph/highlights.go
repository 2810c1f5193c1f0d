package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrlokans/bookmarksync/internal/entities"
)

// HighlightsHeading is the leading text of the block that roots a page's
// highlights.
const HighlightsHeading = "## highlights"

// AppendHighlight adds a highlight under the page's highlights block. Dated
// highlights go under a child block labelled with the journal date; undated
// ones sit directly under the highlights block. It reports false when the
// group already holds a block starting with the same quoted text.
//
// Identity is a prefix match on block content, so a highlight whose text is a
// prefix of an existing one is also treated as present.
func (e *Engine) AppendHighlight(ctx context.Context, page *entities.Page, highlight entities.Highlight) (bool, error) {
	root, err := e.highlightsBlock(ctx, page)
	if err != nil {
		return false, err
	}

	group := root
	if highlight.Created != nil {
		label := e.dates.Label(*highlight.Created)
		group = findChild(root.Children, func(b entities.Block) bool {
			return strings.TrimSpace(b.Content) == label
		})
		if group == nil {
			group, err = e.store.AppendBlock(ctx, page.ID, &root.ID, label)
			if err != nil {
				return false, fmt.Errorf("create date group %s: %w", label, err)
			}
		}
	}

	quoted := QuoteHighlight(highlight.Text)
	existing := findChild(group.Children, func(b entities.Block) bool {
		return strings.HasPrefix(b.Content, quoted)
	})
	if existing != nil {
		return false, nil
	}

	if _, err := e.store.AppendBlock(ctx, page.ID, &group.ID, HighlightContent(highlight)); err != nil {
		return false, fmt.Errorf("create highlight block: %w", err)
	}
	return true, nil
}

// highlightsBlock returns the page's highlights root, creating it as the last
// root block when missing.
func (e *Engine) highlightsBlock(ctx context.Context, page *entities.Page) (*entities.Block, error) {
	blocks, err := e.store.GetPageBlocksTree(ctx, page.ID)
	if err != nil {
		return nil, fmt.Errorf("load blocks of %q: %w", page.OriginalName, err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingPropertiesBlock, page.OriginalName)
	}

	if root := findChild(blocks, func(b entities.Block) bool {
		return strings.HasPrefix(b.Content, HighlightsHeading)
	}); root != nil {
		return root, nil
	}

	root, err := e.store.AppendBlock(ctx, page.ID, nil, HighlightsHeading)
	if err != nil {
		return nil, fmt.Errorf("create highlights block: %w", err)
	}
	return root, nil
}

// QuoteHighlight wraps highlight text in double quotes.
func QuoteHighlight(text string) string {
	return `"` + text + `"`
}

// HighlightContent renders a highlight block: the quoted text followed by its
// tag links.
func HighlightContent(highlight entities.Highlight) string {
	content := QuoteHighlight(highlight.Text)
	if len(highlight.Tags) == 0 {
		return content
	}
	links := make([]string, 0, len(highlight.Tags))
	for _, tag := range highlight.Tags {
		links = append(links, TagLink(tag))
	}
	return content + " " + strings.Join(links, " ")
}

func findChild(blocks []entities.Block, match func(entities.Block) bool) *entities.Block {
	for i := range blocks {
		if match(blocks[i]) {
			return &blocks[i]
		}
	}
	return nil
}

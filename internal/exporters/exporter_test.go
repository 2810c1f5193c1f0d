package exporters

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookmarksync/internal/database"
	"github.com/mrlokans/bookmarksync/internal/database/pages"
	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/graph"
	"github.com/mrlokans/bookmarksync/internal/journal"
	"github.com/mrlokans/bookmarksync/internal/logger"
)

type exportAudit struct {
	pages int
	err   error
	calls int
}

func (a *exportAudit) LogExport(ctx context.Context, description string, pages int, err error) {
	a.calls++
	a.pages = pages
	a.err = err
}

func TestRenderPage(t *testing.T) {
	parent := uint(2)
	blocks := []entities.Block{
		{ID: 1, Content: "tags:: #article\nurl:: https://e.com/p"},
		{ID: 2, Content: "## highlights", Children: []entities.Block{
			{ID: 3, ParentID: &parent, Content: "[[Jan 2nd, 2023]]", Children: []entities.Block{
				{ID: 4, Content: "\"first quote\"\nwith a second line"},
			}},
		}},
	}

	expected := "tags:: #article\nurl:: https://e.com/p\n\n" +
		"- ## highlights\n" +
		"\t- [[Jan 2nd, 2023]]\n" +
		"\t\t- \"first quote\"\n" +
		"\t\t  with a second line\n"
	assert.Equal(t, expected, RenderPage(blocks))
}

func TestRenderPage_FirstBlockNotProperties(t *testing.T) {
	blocks := []entities.Block{
		{Content: "just a note"},
		{Content: "another"},
	}
	assert.Equal(t, "- just a note\n- another\n", RenderPage(blocks))
}

func TestRenderPage_EmptyPropertiesBlock(t *testing.T) {
	blocks := []entities.Block{{Content: ""}, {Content: "body"}}
	assert.Equal(t, "- body\n", RenderPage(blocks))
}

func TestFileName_Collisions(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "a___b.md", fileName(entities.Page{ID: 1, OriginalName: "a/b"}, used))
	assert.Equal(t, "a___b (2).md", fileName(entities.Page{ID: 2, OriginalName: "A/B"}, used))
}

func TestMarkdownExporter_ExportsSyncedPage(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "graph.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := pages.NewRepository(db.DB)
	engine := graph.NewEngine(repo, journal.NewFormatter("", time.UTC))
	ctx := context.Background()

	created := time.Date(2023, time.January, 2, 9, 0, 0, 0, time.UTC)
	result := engine.UpsertBookmarks(ctx, []entities.Bookmark{{
		Hash:  "1a2b",
		Title: "Example Post",
		URL:   "https://e.com/p",
		Tags:  []string{"article"},
		Highlights: []entities.Highlight{
			{Hash: "h1", Text: "first quote", Created: &created},
		},
	}})
	require.Equal(t, 1, result.Created)

	dir := t.TempDir()
	audit := &exportAudit{}
	exporter := NewMarkdownExporter(dir, repo, WithAuditLogger(audit))

	res, err := exporter.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PagesProcessed)
	assert.Equal(t, 4, res.BlocksProcessed)
	assert.Zero(t, res.PagesFailed)

	content, err := os.ReadFile(filepath.Join(dir, "pages", "Example Post.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "tags:: #article\n")
	assert.Contains(t, string(content), "url:: https://e.com/p\n")
	assert.Contains(t, string(content), "hash:: 1a2b\n")
	assert.Contains(t, string(content), "- ## highlights\n\t- [[Jan 2nd, 2023]]\n\t\t- \"first quote\"\n")

	assert.Equal(t, 1, audit.calls)
	assert.Equal(t, 1, audit.pages)
	assert.NoError(t, audit.err)
}

type brokenReader struct{}

func (brokenReader) AllPages(ctx context.Context) ([]entities.Page, error) {
	return nil, errors.New("database is locked")
}

func (brokenReader) GetPageBlocksTree(ctx context.Context, pageID uint) ([]entities.Block, error) {
	return nil, nil
}

func TestMarkdownExporter_ListFailureIsAudited(t *testing.T) {
	audit := &exportAudit{}
	_, err := NewMarkdownExporter(t.TempDir(), brokenReader{}, WithAuditLogger(audit)).Export(context.Background())

	assert.ErrorContains(t, err, "database is locked")
	assert.Equal(t, 1, audit.calls)
	assert.Error(t, audit.err)
}

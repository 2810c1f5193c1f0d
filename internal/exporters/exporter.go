// Package exporters writes the graph out as a Logseq-style markdown folder.
package exporters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/utils"
)

const pagesDir = "pages"

// PageReader is the read side of the page store.
type PageReader interface {
	AllPages(ctx context.Context) ([]entities.Page, error)
	GetPageBlocksTree(ctx context.Context, pageID uint) ([]entities.Block, error)
}

// AuditLogger records finished exports.
type AuditLogger interface {
	LogExport(ctx context.Context, description string, pages int, err error)
}

type ExportResult struct {
	PagesProcessed  int `json:"pages_processed"`
	BlocksProcessed int `json:"blocks_processed"`
	PagesFailed     int `json:"pages_failed"`
}

type MarkdownExporter struct {
	dir    string
	reader PageReader
	audit  AuditLogger
	log    logger.Logger
}

type Option func(*MarkdownExporter)

func WithAuditLogger(a AuditLogger) Option {
	return func(e *MarkdownExporter) { e.audit = a }
}

func WithLogger(l logger.Logger) Option {
	return func(e *MarkdownExporter) { e.log = l }
}

// NewMarkdownExporter writes pages under dir/pages.
func NewMarkdownExporter(dir string, reader PageReader, opts ...Option) *MarkdownExporter {
	e := &MarkdownExporter{
		dir:    dir,
		reader: reader,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("exporter")
	return e
}

// Export writes every page. A page that fails to render or write is counted
// and skipped; only setup and listing errors abort the export.
func (e *MarkdownExporter) Export(ctx context.Context) (result ExportResult, err error) {
	defer func() {
		if e.audit != nil {
			e.audit.LogExport(context.WithoutCancel(ctx), fmt.Sprintf("Exported %d pages to %s", result.PagesProcessed, e.dir), result.PagesProcessed, err)
		}
	}()

	outDir := filepath.Join(e.dir, pagesDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create export directory: %w", err)
	}

	pages, err := e.reader.AllPages(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list pages: %w", err)
	}

	used := make(map[string]bool, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		blocks, err := e.reader.GetPageBlocksTree(ctx, page.ID)
		if err != nil {
			e.log.Warn("failed to load page blocks", logger.String("page", page.OriginalName), logger.Error(err))
			result.PagesFailed++
			continue
		}

		name := fileName(page, used)
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(RenderPage(blocks)), 0o644); err != nil {
			e.log.Warn("failed to write page", logger.String("page", page.OriginalName), logger.Error(err))
			result.PagesFailed++
			continue
		}

		result.PagesProcessed++
		result.BlocksProcessed += countBlocks(blocks)
	}

	e.log.Info("export finished",
		logger.Int("pages", result.PagesProcessed),
		logger.Int("failed", result.PagesFailed),
		logger.String("dir", outDir))
	return result, nil
}

// fileName picks a unique file name for the page. Titles are unique in the
// graph but may collide once sanitized.
func fileName(page entities.Page, used map[string]bool) string {
	base := utils.SanitizeFilename(page.OriginalName)
	name := base + ".md"
	if used[strings.ToLower(name)] {
		name = base + " (" + strconv.FormatUint(uint64(page.ID), 10) + ").md"
	}
	used[strings.ToLower(name)] = true
	return name
}

// RenderPage renders a block tree as Logseq markdown. A first block holding
// only property lines becomes the page's front matter.
func RenderPage(blocks []entities.Block) string {
	var b strings.Builder

	for i, block := range blocks {
		if i == 0 && isPropertyBlock(block.Content) {
			if strings.TrimSpace(block.Content) != "" {
				b.WriteString(strings.TrimSpace(block.Content))
				b.WriteString("\n\n")
			}
			writeBlocks(&b, block.Children, 0)
			continue
		}
		writeBlocks(&b, []entities.Block{block}, 0)
	}

	return b.String()
}

func writeBlocks(b *strings.Builder, blocks []entities.Block, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, block := range blocks {
		lines := strings.Split(block.Content, "\n")
		b.WriteString(indent)
		b.WriteString("- ")
		b.WriteString(lines[0])
		b.WriteString("\n")
		for _, line := range lines[1:] {
			b.WriteString(indent)
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		writeBlocks(b, block.Children, depth+1)
	}
}

func isPropertyBlock(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, _, ok := entities.ParsePropertyLine(line); !ok {
			return false
		}
	}
	return true
}

func countBlocks(blocks []entities.Block) int {
	n := len(blocks)
	for _, block := range blocks {
		n += countBlocks(block.Children)
	}
	return n
}

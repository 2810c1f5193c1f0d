package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/exporters"
	"github.com/mrlokans/bookmarksync/internal/logger"
)

// PageReader provides read access to the graph.
type PageReader interface {
	ListPages(ctx context.Context, limit, offset int) ([]entities.Page, int64, error)
	GetPage(ctx context.Context, id uint) (*entities.Page, error)
	GetPageBlocksTree(ctx context.Context, pageID uint) ([]entities.Block, error)
}

type PagesController struct {
	pages PageReader
	log   logger.Logger
}

func NewPagesController(pages PageReader, log logger.Logger) *PagesController {
	return &PagesController{pages: pages, log: log}
}

// PageResponse is a page with its block tree.
type PageResponse struct {
	entities.Page
	Blocks []entities.Block `json:"blocks"`
}

// ListPages handles GET /api/pages
func (pc *PagesController) ListPages(c *gin.Context) {
	limit, offset := parsePagination(c)

	pages, total, err := pc.pages.ListPages(c.Request.Context(), limit, offset)
	if err != nil {
		respondInternalError(c, pc.log, err, "list pages")
		return
	}
	if pages == nil {
		pages = []entities.Page{}
	}

	c.JSON(http.StatusOK, paginated(pages, total, limit, offset, len(pages)))
}

// GetPage handles GET /api/pages/:id
func (pc *PagesController) GetPage(c *gin.Context) {
	page, blocks, ok := pc.loadPage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, PageResponse{Page: *page, Blocks: blocks})
}

// GetPageMarkdown handles GET /api/pages/:id/markdown
func (pc *PagesController) GetPageMarkdown(c *gin.Context) {
	_, blocks, ok := pc.loadPage(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(exporters.RenderPage(blocks)))
}

func (pc *PagesController) loadPage(c *gin.Context) (*entities.Page, []entities.Block, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, nil, false
	}

	ctx := c.Request.Context()
	page, err := pc.pages.GetPage(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "page")
		return nil, nil, false
	}
	if err != nil {
		respondInternalError(c, pc.log, err, "get page")
		return nil, nil, false
	}

	blocks, err := pc.pages.GetPageBlocksTree(ctx, id)
	if err != nil {
		respondInternalError(c, pc.log, err, "get page blocks")
		return nil, nil, false
	}
	if blocks == nil {
		blocks = []entities.Block{}
	}
	return page, blocks, true
}

// Package pages stores the page/block graph that bookmarks are merged into.
//
// Blocks form a tree per page: root blocks have no parent and siblings are
// ordered by Position. The first root block holds the page's key:: value
// properties, which are mirrored into the page_properties table so pages can
// be looked up by property.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/bookmarksync/internal/entities"
)

var (
	ErrEmptyTitle  = errors.New("page title is empty")
	ErrPageExists  = errors.New("page already exists")
	ErrBadParent   = errors.New("parent block does not belong to page")
	ErrNoSuchBlock = errors.New("block not found")
)

// Repository handles all page and block database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new pages repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindPageByProperty returns the first page whose properties block holds
// key:: value, or nil.
func (r *Repository) FindPageByProperty(ctx context.Context, key, value string) (*entities.Page, error) {
	var page entities.Page
	err := r.db.WithContext(ctx).
		Joins("JOIN page_properties ON page_properties.page_id = pages.id").
		Where("page_properties.key = ? AND page_properties.value = ?", key, value).
		Order("pages.id ASC").
		First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// FindPageByName looks a page up by title, ignoring case.
func (r *Repository) FindPageByName(ctx context.Context, title string) (*entities.Page, error) {
	var page entities.Page
	err := r.db.WithContext(ctx).Where("name = ?", entities.PageName(title)).First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePage creates a page whose first block holds properties. The page,
// its first block and the property index are written in one transaction.
func (r *Repository) CreatePage(ctx context.Context, title, properties string) (*entities.Page, error) {
	name := entities.PageName(title)
	if name == "" {
		return nil, ErrEmptyTitle
	}

	page := &entities.Page{Name: name, OriginalName: strings.TrimSpace(title)}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Page{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %q", ErrPageExists, title)
		}
		if err := tx.Create(page).Error; err != nil {
			return err
		}
		if err := tx.Create(&entities.Block{
			UUID:     uuid.NewString(),
			PageID:   page.ID,
			Position: 0,
			Content:  properties,
		}).Error; err != nil {
			return err
		}
		return reindexProperties(tx, page.ID, properties)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// GetPageBlocksTree returns the root blocks of a page with their descendants.
func (r *Repository) GetPageBlocksTree(ctx context.Context, pageID uint) ([]entities.Block, error) {
	var rows []entities.Block
	err := r.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("position ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return buildTree(rows), nil
}

func buildTree(rows []entities.Block) []entities.Block {
	children := make(map[uint][]entities.Block)
	var roots []entities.Block
	for _, row := range rows {
		if row.ParentID == nil {
			roots = append(roots, row)
			continue
		}
		children[*row.ParentID] = append(children[*row.ParentID], row)
	}

	var attach func(blocks []entities.Block) []entities.Block
	attach = func(blocks []entities.Block) []entities.Block {
		for i := range blocks {
			if kids, ok := children[blocks[i].ID]; ok {
				blocks[i].Children = attach(kids)
			}
		}
		return blocks
	}
	return attach(roots)
}

// AppendBlock inserts a block after the last sibling under parentID (or after
// the last root block when parentID is nil).
func (r *Repository) AppendBlock(ctx context.Context, pageID uint, parentID *uint, content string) (*entities.Block, error) {
	block := &entities.Block{
		UUID:     uuid.NewString(),
		PageID:   pageID,
		ParentID: parentID,
		Content:  content,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		siblings := tx.Model(&entities.Block{}).Where("page_id = ?", pageID)
		if parentID == nil {
			siblings = siblings.Where("parent_id IS NULL")
		} else {
			var parent entities.Block
			if err := tx.Select("id", "page_id").First(&parent, *parentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %d", ErrNoSuchBlock, *parentID)
				}
				return err
			}
			if parent.PageID != pageID {
				return ErrBadParent
			}
			siblings = siblings.Where("parent_id = ?", *parentID)
		}

		var last struct{ Max *int }
		if err := siblings.Select("MAX(position) AS max").Scan(&last).Error; err != nil {
			return err
		}
		if last.Max != nil {
			block.Position = *last.Max + 1
		}
		if err := tx.Create(block).Error; err != nil {
			return err
		}
		return touchPage(tx, pageID)
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// UpdateBlock replaces a block's content. Writing a page's first root block
// refreshes the page's indexed properties.
func (r *Repository) UpdateBlock(ctx context.Context, blockID uint, content string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var block entities.Block
		if err := tx.First(&block, blockID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrNoSuchBlock, blockID)
			}
			return err
		}
		if err := tx.Model(&block).Update("content", content).Error; err != nil {
			return err
		}
		if err := touchPage(tx, block.PageID); err != nil {
			return err
		}

		var first entities.Block
		err := tx.Where("page_id = ? AND parent_id IS NULL", block.PageID).
			Order("position ASC, id ASC").
			First(&first).Error
		if err != nil {
			return err
		}
		if first.ID != block.ID {
			return nil
		}
		return reindexProperties(tx, block.PageID, content)
	})
}

func touchPage(tx *gorm.DB, pageID uint) error {
	return tx.Model(&entities.Page{}).Where("id = ?", pageID).Update("updated_at", time.Now()).Error
}

func reindexProperties(tx *gorm.DB, pageID uint, content string) error {
	if err := tx.Where("page_id = ?", pageID).Delete(&entities.PageProperty{}).Error; err != nil {
		return err
	}
	props := entities.ParseProperties(content)
	if len(props) == 0 {
		return nil
	}
	rows := make([]entities.PageProperty, 0, len(props))
	for key, value := range props {
		rows = append(rows, entities.PageProperty{PageID: pageID, Key: key, Value: value})
	}
	return tx.Create(&rows).Error
}

// ListPages returns pages ordered by most recently updated, with their
// indexed properties.
func (r *Repository) ListPages(ctx context.Context, limit, offset int) ([]entities.Page, int64, error) {
	var pages []entities.Page
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.Page{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Preload("Properties").
		Order("updated_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&pages).Error
	return pages, total, err
}

// AllPages returns every page ordered by id.
func (r *Repository) AllPages(ctx context.Context) ([]entities.Page, error) {
	var pages []entities.Page
	err := r.db.WithContext(ctx).Preload("Properties").Order("id ASC").Find(&pages).Error
	return pages, err
}

// GetPage returns a page by id. The error wraps gorm.ErrRecordNotFound when
// the page does not exist.
func (r *Repository) GetPage(ctx context.Context, id uint) (*entities.Page, error) {
	var page entities.Page
	if err := r.db.WithContext(ctx).Preload("Properties").First(&page, id).Error; err != nil {
		return nil, err
	}
	return &page, nil
}

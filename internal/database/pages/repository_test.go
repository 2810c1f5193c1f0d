package pages

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookmarksync/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "pages.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Page{}, &entities.Block{}, &entities.PageProperty{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func TestRepository_CreatePage(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, "Some Article", "")
	require.NoError(t, err)
	assert.NotZero(t, page.ID)
	assert.Equal(t, "some article", page.Name)
	assert.Equal(t, "Some Article", page.OriginalName)

	blocks, err := repo.GetPageBlocksTree(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 1, "new pages always carry a properties block")
	assert.Empty(t, blocks[0].Content)
	assert.Len(t, blocks[0].UUID, 36)
}

func TestRepository_CreatePage_WithProperties(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, "Indexed On Create", "tags:: #article\nhash:: 1a2b")
	require.NoError(t, err)

	blocks, err := repo.GetPageBlocksTree(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "tags:: #article\nhash:: 1a2b", blocks[0].Content)

	found, err := repo.FindPageByProperty(ctx, "hash", "1a2b")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, page.ID, found.ID)

	_, err = repo.CreatePage(ctx, "indexed on create", "hash:: ffff")
	assert.ErrorIs(t, err, ErrPageExists)
	orphan, err := repo.FindPageByProperty(ctx, "hash", "ffff")
	require.NoError(t, err)
	assert.Nil(t, orphan, "a rejected page leaves no indexed properties")
}

func TestRepository_CreatePage_Rejects(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.CreatePage(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = repo.CreatePage(ctx, "Duplicate", "")
	require.NoError(t, err)
	_, err = repo.CreatePage(ctx, "duplicate", "")
	assert.ErrorIs(t, err, ErrPageExists)
}

func TestRepository_FindPageByName(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	created, err := repo.CreatePage(ctx, "Mixed Case Title", "")
	require.NoError(t, err)

	found, err := repo.FindPageByName(ctx, "mixed case title")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := repo.FindPageByName(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_UpdateBlock_IndexesProperties(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, "Indexed", "")
	require.NoError(t, err)
	blocks, err := repo.GetPageBlocksTree(ctx, page.ID)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateBlock(ctx, blocks[0].ID, "tags:: #article\nhash:: 1a2b"))

	found, err := repo.FindPageByProperty(ctx, "hash", "1a2b")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, page.ID, found.ID)

	// Rewriting the block replaces the index.
	require.NoError(t, repo.UpdateBlock(ctx, blocks[0].ID, "hash:: ffff"))
	gone, err := repo.FindPageByProperty(ctx, "hash", "1a2b")
	require.NoError(t, err)
	assert.Nil(t, gone)

	loaded, err := repo.GetPage(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Properties, 1)
	assert.Equal(t, "ffff", loaded.Properties[0].Value)
}

func TestRepository_UpdateBlock_NonPropertiesBlockIsNotIndexed(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, "Body", "")
	require.NoError(t, err)
	body, err := repo.AppendBlock(ctx, page.ID, nil, "placeholder")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateBlock(ctx, body.ID, "hash:: deadbeef"))

	found, err := repo.FindPageByProperty(ctx, "hash", "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_UpdateBlock_Missing(t *testing.T) {
	repo := setupTestDB(t)
	err := repo.UpdateBlock(context.Background(), 999, "x")
	assert.ErrorIs(t, err, ErrNoSuchBlock)
}

func TestRepository_AppendBlock_BuildsTree(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	page, err := repo.CreatePage(ctx, "Tree", "")
	require.NoError(t, err)

	root, err := repo.AppendBlock(ctx, page.ID, nil, "## highlights")
	require.NoError(t, err)
	assert.Equal(t, 1, root.Position)

	day, err := repo.AppendBlock(ctx, page.ID, &root.ID, "[[Jan 1st, 2023]]")
	require.NoError(t, err)
	_, err = repo.AppendBlock(ctx, page.ID, &day.ID, `"first"`)
	require.NoError(t, err)
	_, err = repo.AppendBlock(ctx, page.ID, &day.ID, `"second"`)
	require.NoError(t, err)

	blocks, err := repo.GetPageBlocksTree(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "## highlights", blocks[1].Content)
	require.Len(t, blocks[1].Children, 1)
	grand := blocks[1].Children[0].Children
	require.Len(t, grand, 2)
	assert.Equal(t, `"first"`, grand[0].Content)
	assert.Equal(t, `"second"`, grand[1].Content)
	assert.Less(t, grand[0].Position, grand[1].Position)
}

func TestRepository_AppendBlock_RejectsForeignParent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	a, err := repo.CreatePage(ctx, "A", "")
	require.NoError(t, err)
	b, err := repo.CreatePage(ctx, "B", "")
	require.NoError(t, err)

	blocksA, err := repo.GetPageBlocksTree(ctx, a.ID)
	require.NoError(t, err)

	_, err = repo.AppendBlock(ctx, b.ID, &blocksA[0].ID, "nope")
	assert.ErrorIs(t, err, ErrBadParent)

	missing := uint(12345)
	_, err = repo.AppendBlock(ctx, b.ID, &missing, "nope")
	assert.ErrorIs(t, err, ErrNoSuchBlock)
}

func TestRepository_ListPages(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for _, title := range []string{"One", "Two", "Three"} {
		_, err := repo.CreatePage(ctx, title, "")
		require.NoError(t, err)
	}

	pages, total, err := repo.ListPages(ctx, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, pages, 2)

	all, err := repo.AllPages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "One", all[0].OriginalName)
}

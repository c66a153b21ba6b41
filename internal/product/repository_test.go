package product

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-server/internal/db"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database))

	return NewRepository(database)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func boolPtr(b bool) *bool { return &b }

func seed(t *testing.T, repo *Repository, title, category string, featured bool, stock int) Product {
	t.Helper()

	p, err := repo.Create(context.Background(), Input{
		Title:       &title,
		Description: strPtr("handmade"),
		Price:       floatPtr(25),
		Category:    &category,
		Featured:    &featured,
		Stock:       intPtr(stock),
	})
	require.NoError(t, err)
	return p
}

func TestCreateDefaults(t *testing.T) {
	repo := newTestRepo(t)

	p, err := repo.Create(context.Background(), Input{
		Title:       strPtr("Sticker Pack"),
		Description: strPtr("vinyl"),
		Price:       floatPtr(9.99),
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, 0, p.Stock)
	assert.False(t, p.Featured)
	assert.Empty(t, p.Images)
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seed(t, repo, "Print A", "prints", true, 5)
	seed(t, repo, "Print B", "prints", false, 5)
	seed(t, repo, "Mug", "ceramics", true, 5)

	all, total, err := repo.List(ctx, ListFilter{}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)

	featured, total, err := repo.List(ctx, ListFilter{FeaturedOnly: true}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, featured, 2)

	prints, total, err := repo.List(ctx, ListFilter{Category: "prints"}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, p := range prints {
		assert.Equal(t, "prints", p.Category)
	}

	paged, total, err := repo.List(ctx, ListFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, paged, 1)
}

func TestUpdateMergesFields(t *testing.T) {
	repo := newTestRepo(t)
	p := seed(t, repo, "Print", "prints", false, 5)

	updated, err := repo.Update(context.Background(), p.ID, Input{
		Price:    floatPtr(30),
		Featured: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 30.0, updated.Price)
	assert.True(t, updated.Featured)
	assert.Equal(t, "Print", updated.Title)
	assert.Equal(t, "prints", updated.Category)
	assert.Equal(t, 5, updated.Stock)

	_, err = repo.Update(context.Background(), 9999, Input{Price: floatPtr(1)})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAdjustStock(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	p := seed(t, repo, "Print", "prints", false, 3)

	ok, err := repo.AdjustStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)

	// Never goes below zero.
	ok, err = repo.AdjustStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	p := seed(t, repo, "Print", "prints", false, 5)

	require.NoError(t, repo.Delete(context.Background(), p.ID))
	_, err := repo.Get(context.Background(), p.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, repo.Delete(context.Background(), p.ID), sql.ErrNoRows)
}

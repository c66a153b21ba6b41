package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-server/internal/auth"
	"portfolio-server/internal/db"
	"portfolio-server/internal/product"
)

type fixture struct {
	service  *Service
	products *product.Repository
	userID   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database))

	user, err := auth.NewRepository(database).WithBcryptCost(4).
		CreateUser(context.Background(), "buyer@example.com", "Password1", "Buyer", auth.RoleUser)
	require.NoError(t, err)

	products := product.NewRepository(database)
	return fixture{
		service:  NewService(NewRepository(database), products),
		products: products,
		userID:   user.ID,
	}
}

func (f fixture) createProduct(t *testing.T, title string, price float64, stock int) product.Product {
	t.Helper()

	p, err := f.products.Create(context.Background(), product.Input{
		Title:       &title,
		Description: &title,
		Price:       &price,
		Stock:       &stock,
	})
	require.NoError(t, err)
	return p
}

func TestGetCreatesEmptyCart(t *testing.T) {
	f := newFixture(t)

	c, err := f.service.Get(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, f.userID, c.UserID)
	assert.Empty(t, c.Items)

	// Second call returns the same cart.
	again, err := f.service.Get(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
}

func TestAddItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "Sticker Pack", 9.99, 10)

	c, err := f.service.AddItem(ctx, f.userID, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, p.ID, c.Items[0].ProductID)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 9.99, c.Items[0].Price)
	assert.Equal(t, "Sticker Pack", c.Items[0].Title)
	assert.NotEmpty(t, c.Items[0].ID)
}

func TestAddItemMergesLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "Sticker Pack", 9.99, 10)

	_, err := f.service.AddItem(ctx, f.userID, p.ID, 2)
	require.NoError(t, err)
	c, err := f.service.AddItem(ctx, f.userID, p.ID, 3)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestAddItemStockChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "Print", 25, 3)

	_, err := f.service.AddItem(ctx, f.userID, p.ID, 4)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)

	// Merging beyond stock is also rejected, reporting what is already
	// in the cart.
	_, err = f.service.AddItem(ctx, f.userID, p.ID, 2)
	require.NoError(t, err)
	_, err = f.service.AddItem(ctx, f.userID, p.ID, 2)
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 2, stockErr.CurrentInCart)
}

func TestAddItemUnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.AddItem(context.Background(), f.userID, 9999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "Print", 25, 5)

	c, err := f.service.AddItem(ctx, f.userID, p.ID, 1)
	require.NoError(t, err)
	itemID := c.Items[0].ID

	c, err = f.service.UpdateItem(ctx, f.userID, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)

	_, err = f.service.UpdateItem(ctx, f.userID, itemID, 6)
	var stockErr *InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)

	_, err = f.service.UpdateItem(ctx, f.userID, "no-such-item", 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItemAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.createProduct(t, "Print", 25, 5)
	second := f.createProduct(t, "Mug", 15, 5)

	c, err := f.service.AddItem(ctx, f.userID, first.ID, 1)
	require.NoError(t, err)
	c, err = f.service.AddItem(ctx, f.userID, second.ID, 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 2)

	c, err = f.service.RemoveItem(ctx, f.userID, c.Items[0].ID)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)

	_, err = f.service.RemoveItem(ctx, f.userID, "gone")
	assert.ErrorIs(t, err, ErrItemNotFound)

	c, err = f.service.Clear(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestUpdateWithoutCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.UpdateItem(context.Background(), f.userID, "item", 1)
	assert.ErrorIs(t, err, ErrCartNotFound)
	_, err = f.service.Clear(context.Background(), f.userID)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

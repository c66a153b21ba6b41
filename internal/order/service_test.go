package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-server/internal/auth"
	"portfolio-server/internal/cart"
	"portfolio-server/internal/db"
	"portfolio-server/internal/product"
)

type fixture struct {
	service  *Service
	repo     *Repository
	products *product.Repository
	carts    *cart.Service
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
	cartRepo := cart.NewRepository(database)
	repo := NewRepository(database)
	return fixture{
		service:  NewService(repo, products, cartRepo),
		repo:     repo,
		products: products,
		carts:    cart.NewService(cartRepo, products),
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

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "Print", 25, 5)

	// Pre-load a cart so the order can empty it.
	_, err := f.carts.AddItem(ctx, f.userID, p.ID, 2)
	require.NoError(t, err)

	o, err := f.service.Create(ctx, f.userID, Input{
		Items:           []Item{{ProductID: p.ID, Quantity: 2, Price: 25, Title: "Print"}},
		Subtotal:        50,
		Tax:             5,
		Shipping:        10,
		Total:           65,
		ShippingAddress: json.RawMessage(`{"city":"Accra"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, f.userID, o.UserID)
	assert.Equal(t, 65.0, o.Total)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)

	updated, err := f.products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Stock)

	c, err := f.carts.Get(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, "Print", 25, 1)

	_, err := f.service.Create(context.Background(), f.userID, Input{
		Items: []Item{{ProductID: p.ID, Quantity: 3, Price: 25}},
		Total: 75,
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, p.ID, stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)

	// Nothing was recorded or decremented.
	orders, _, err := f.repo.ListForUser(context.Background(), f.userID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
	updated, err := f.products.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Stock)
}

func TestCreateOrderBadLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, f.userID, Input{
		Items: []Item{{ProductID: 0, Quantity: 1}},
	})
	var invalidErr *InvalidItemError
	assert.ErrorAs(t, err, &invalidErr)

	_, err = f.service.Create(ctx, f.userID, Input{
		Items: []Item{{ProductID: 42, Quantity: 0}},
	})
	assert.ErrorAs(t, err, &invalidErr)

	_, err = f.service.Create(ctx, f.userID, Input{
		Items: []Item{{ProductID: 9999, Quantity: 1}},
	})
	var missingErr *ProductNotFoundError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, int64(9999), missingErr.ProductID)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "Print", 25, 5)

	o, err := f.service.Create(ctx, f.userID, Input{
		Items: []Item{{ProductID: p.ID, Quantity: 1, Price: 25}},
		Total: 25,
	})
	require.NoError(t, err)

	updated, err := f.repo.UpdateStatus(ctx, o.ID, StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, updated.Status)

	_, err = f.repo.UpdateStatus(ctx, 9999, StatusShipped)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetForUserScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "Print", 25, 5)

	o, err := f.service.Create(ctx, f.userID, Input{
		Items: []Item{{ProductID: p.ID, Quantity: 1, Price: 25}},
		Total: 25,
	})
	require.NoError(t, err)

	got, err := f.repo.GetForUser(ctx, o.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = f.repo.GetForUser(ctx, o.ID, "someone-else")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

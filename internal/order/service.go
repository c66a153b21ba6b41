package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"portfolio-server/internal/cart"
	"portfolio-server/internal/product"
)

// ProductNotFoundError names the missing product in an order line.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InsufficientStockError reports an order line that asks for more than
// the product has.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: %d available, %d requested", e.ProductID, e.Available, e.Requested)
}

// InvalidItemError flags a malformed order line.
type InvalidItemError struct {
	Item Item
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid order item for product %d", e.Item.ProductID)
}

type Service struct {
	repo     *Repository
	products *product.Repository
	carts    *cart.Repository
}

func NewService(repo *Repository, products *product.Repository, carts *cart.Repository) *Service {
	return &Service{repo: repo, products: products, carts: carts}
}

// Create validates every line against current stock, records the order,
// decrements stock and empties the buyer's cart.
func (s *Service) Create(ctx context.Context, userID string, input Input) (Order, error) {
	for _, item := range input.Items {
		if item.ProductID < 1 || item.Quantity <= 0 {
			return Order{}, &InvalidItemError{Item: item}
		}

		p, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return Order{}, &ProductNotFoundError{ProductID: item.ProductID}
			}
			return Order{}, err
		}
		if p.Stock < item.Quantity {
			return Order{}, &InsufficientStockError{ProductID: item.ProductID, Available: p.Stock, Requested: item.Quantity}
		}
	}

	o, err := s.repo.Create(ctx, userID, input)
	if err != nil {
		return Order{}, err
	}

	for _, item := range input.Items {
		if _, err := s.products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			return Order{}, err
		}
	}

	if err := s.carts.ClearByUser(ctx, userID); err != nil {
		return Order{}, err
	}

	return o, nil
}

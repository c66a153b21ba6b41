package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"portfolio-server/internal/product"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrProductNotFound = errors.New("product not found")
)

// InsufficientStockError reports how much stock the product actually
// has so the handler can surface it.
type InsufficientStockError struct {
	Available     int
	CurrentInCart int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}

type Service struct {
	repo     *Repository
	products *product.Repository
}

func NewService(repo *Repository, products *product.Repository) *Service {
	return &Service{repo: repo, products: products}
}

func (s *Service) Get(ctx context.Context, userID string) (Cart, error) {
	return s.repo.GetOrCreate(ctx, userID)
}

// AddItem puts quantity units of a product into the cart, merging with
// an existing line for the same product. Stock is checked against the
// resulting total quantity.
func (s *Service) AddItem(ctx context.Context, userID string, productID int64, quantity int) (Cart, error) {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrProductNotFound
		}
		return Cart{}, err
	}

	if p.Stock < quantity {
		return Cart{}, &InsufficientStockError{Available: p.Stock}
	}

	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	merged := false
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		total := c.Items[i].Quantity + quantity
		if p.Stock < total {
			return Cart{}, &InsufficientStockError{Available: p.Stock, CurrentInCart: c.Items[i].Quantity}
		}
		c.Items[i].Quantity = total
		merged = true
		break
	}
	if !merged {
		itemID, err := uuid.NewV7()
		if err != nil {
			return Cart{}, fmt.Errorf("generate cart item id: %w", err)
		}
		c.Items = append(c.Items, Item{
			ID:        itemID.String(),
			ProductID: productID,
			Quantity:  quantity,
			Price:     p.Price,
			Title:     p.Title,
		})
	}

	if err := s.repo.SaveItems(ctx, c.ID, c.Items); err != nil {
		return Cart{}, err
	}
	return s.repo.Get(ctx, userID)
}

// UpdateItem replaces the quantity of an existing cart line.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (Cart, error) {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, err
	}

	idx := -1
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Cart{}, ErrItemNotFound
	}

	p, err := s.products.Get(ctx, c.Items[idx].ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrProductNotFound
		}
		return Cart{}, err
	}
	if p.Stock < quantity {
		return Cart{}, &InsufficientStockError{Available: p.Stock}
	}

	c.Items[idx].Quantity = quantity
	if err := s.repo.SaveItems(ctx, c.ID, c.Items); err != nil {
		return Cart{}, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (Cart, error) {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, err
	}

	kept := make([]Item, 0, len(c.Items))
	for _, item := range c.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(c.Items) {
		return Cart{}, ErrItemNotFound
	}

	if err := s.repo.SaveItems(ctx, c.ID, kept); err != nil {
		return Cart{}, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) (Cart, error) {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, err
	}

	if err := s.repo.SaveItems(ctx, c.ID, []Item{}); err != nil {
		return Cart{}, err
	}
	return s.repo.Get(ctx, userID)
}

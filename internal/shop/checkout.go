package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/vegbox/internal/database"
	"github.com/safar/vegbox/internal/models"
	"github.com/safar/vegbox/internal/store"
)

// Service turns carts into orders.
type Service struct {
	db          *database.DB
	strictStock bool

	// afterOrder runs inside the checkout transaction once the order row
	// exists and before any stock is touched.
	afterOrder func(ctx context.Context, tx *sql.Tx, order *models.Order) error
}

type Option func(*Service)

// WithStrictStock makes checkout fail with database.ErrInsufficientStock when
// a cart line asks for more than the product now holds. Without it the
// stock is clamped at zero.
func WithStrictStock(strict bool) Option {
	return func(s *Service) {
		s.strictStock = strict
	}
}

func NewService(db *database.DB, opts ...Option) *Service {
	s := &Service{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout records an order for the cart and decrements stock, all in one
// transaction. The cart itself is never modified; clearing it after a
// successful checkout is the caller's job.
func (s *Service) Checkout(ctx context.Context, cart Cart, customerName string) (*models.Order, error) {
	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		return nil, ErrCustomerNameRequired
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	var order *models.Order
	err := database.WithRetry(ctx, s.db.DB, s.db.Dialect.WriteTxOptions(), func(tx *sql.Tx) error {
		order = nil

		// Ascending id order keeps concurrent checkouts from deadlocking.
		var lines []store.OrderLine
		stock := make(map[int64]int, len(cart))
		for _, id := range cart.ProductIDs() {
			product, err := store.LockProduct(ctx, tx, s.db.Dialect, id)
			if errors.Is(err, database.ErrProductNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			qty := cart[id]
			if s.strictStock && qty > product.Quantity {
				return fmt.Errorf("%s: %w", product.Title, database.ErrInsufficientStock)
			}

			stock[id] = product.Quantity
			lines = append(lines, store.OrderLine{
				ProductID: product.ID,
				Title:     product.Title,
				Quantity:  qty,
				UnitPrice: product.Price,
			})
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		created, err := store.CreateOrder(ctx, tx, store.CreateOrderRequest{
			CustomerName: customerName,
			Lines:        lines,
		})
		if err != nil {
			return err
		}

		if s.afterOrder != nil {
			if err := s.afterOrder(ctx, tx, created); err != nil {
				return err
			}
		}

		for _, line := range lines {
			remaining := max(0, stock[line.ProductID]-line.Quantity)
			if err := store.UpdateQuantity(ctx, tx, line.ProductID, remaining); err != nil {
				return err
			}
		}

		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

package shop

import (
	"context"
	"errors"

	"github.com/safar/vegbox/internal/database"
	"github.com/safar/vegbox/internal/store"
	"github.com/shopspring/decimal"
)

type Summary struct {
	Lines []store.OrderLine
	Total decimal.Decimal
}

// Summarize prices the cart at current product prices. Products that have
// disappeared from the catalog are left out.
func Summarize(ctx context.Context, q database.Queryer, cart Cart) (*Summary, error) {
	summary := &Summary{}
	for _, id := range cart.ProductIDs() {
		product, err := store.GetProduct(ctx, q, id)
		if errors.Is(err, database.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		line := store.OrderLine{
			ProductID: product.ID,
			Title:     product.Title,
			Quantity:  cart[id],
			UnitPrice: product.Price,
		}
		summary.Lines = append(summary.Lines, line)
		summary.Total = summary.Total.Add(line.Subtotal())
	}
	return summary, nil
}

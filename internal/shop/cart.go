// Package shop holds the customer side of the marketplace: the session cart,
// its live summary, checkout and the CSV receipt.
package shop

import (
	"errors"
	"sort"

	"github.com/safar/vegbox/internal/models"
)

var (
	ErrInvalidQuantity      = errors.New("quantity must be greater than zero")
	ErrNotEnoughStock       = errors.New("not enough stock")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrCustomerNameRequired = errors.New("customer name required")
)

// Cart maps product ids to requested quantities. The zero value is not
// usable; call NewCart or make it with make.
type Cart map[int64]int

func NewCart() Cart {
	return make(Cart)
}

// Add merges qty units of p into the cart. It refuses non-positive
// quantities and quantities above the product's current stock, leaving the
// cart unchanged.
func (c Cart) Add(p models.Product, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > p.Quantity {
		return ErrNotEnoughStock
	}
	c[p.ID] += qty
	return nil
}

func (c Cart) Clear() {
	for id := range c {
		delete(c, id)
	}
}

func (c Cart) IsEmpty() bool {
	return len(c) == 0
}

// Size is the total number of units across all lines.
func (c Cart) Size() int {
	n := 0
	for _, qty := range c {
		n += qty
	}
	return n
}

// ProductIDs lists the cart's products in ascending id order.
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

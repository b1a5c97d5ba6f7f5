package shop

import (
	"testing"

	"github.com/safar/vegbox/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCartAdd(t *testing.T) {
	tomatoes := models.Product{ID: 1, Title: "Tomatoes", Quantity: 50}

	tests := []struct {
		name    string
		qty     int
		wantErr error
		want    int
	}{
		{name: "positive within stock", qty: 2, want: 2},
		{name: "whole stock", qty: 50, want: 50},
		{name: "zero", qty: 0, wantErr: ErrInvalidQuantity},
		{name: "negative", qty: -3, wantErr: ErrInvalidQuantity},
		{name: "over stock", qty: 51, wantErr: ErrNotEnoughStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := NewCart()
			err := cart.Add(tomatoes, tt.qty)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, cart[tomatoes.ID])
			if tt.wantErr != nil {
				assert.True(t, cart.IsEmpty())
			}
		})
	}
}

func TestCartAddIsAdditive(t *testing.T) {
	cart := NewCart()
	potatoes := models.Product{ID: 2, Title: "Potatoes", Quantity: 40}

	assert.NoError(t, cart.Add(potatoes, 3))
	assert.NoError(t, cart.Add(potatoes, 4))
	assert.Equal(t, 7, cart[potatoes.ID])

	// Each add is checked against stock on its own.
	assert.NoError(t, cart.Add(potatoes, 40))
	assert.Equal(t, 47, cart[potatoes.ID])
}

func TestCartRejectionLeavesExistingEntry(t *testing.T) {
	cart := NewCart()
	spinach := models.Product{ID: 4, Quantity: 3}

	assert.NoError(t, cart.Add(spinach, 1))
	assert.ErrorIs(t, cart.Add(spinach, 5), ErrNotEnoughStock)
	assert.Equal(t, 1, cart[spinach.ID])
}

func TestCartHelpers(t *testing.T) {
	cart := Cart{5: 1, 2: 3, 9: 2}

	assert.Equal(t, []int64{2, 5, 9}, cart.ProductIDs())
	assert.Equal(t, 6, cart.Size())

	cart.Clear()
	assert.True(t, cart.IsEmpty())
	assert.Zero(t, cart.Size())
}

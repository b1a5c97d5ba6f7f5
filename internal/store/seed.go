package store

import (
	"context"
	"fmt"

	"github.com/safar/vegbox/internal/database"
	"github.com/shopspring/decimal"
)

var demoProducts = []NewProduct{
	{FarmerName: "Farmer A", Title: "Tomatoes", Description: "Fresh red tomatoes", Price: decimal.NewFromInt(40), Quantity: 50},
	{FarmerName: "Farmer B", Title: "Potatoes", Description: "Organic potatoes", Price: decimal.NewFromInt(30), Quantity: 40},
	{FarmerName: "Farmer C", Title: "Carrots", Description: "Crunchy carrots", Price: decimal.NewFromInt(25), Quantity: 60},
	{FarmerName: "Farmer D", Title: "Spinach", Description: "Green leafy spinach", Price: decimal.NewFromInt(15), Quantity: 30},
	{FarmerName: "Farmer E", Title: "Cucumbers", Description: "Fresh cucumbers", Price: decimal.NewFromInt(20), Quantity: 45},
}

// SeedDemoProducts fills an empty catalog with the demo vegetables and
// reports how many rows it inserted. A non-empty catalog is left alone.
func SeedDemoProducts(ctx context.Context, q database.Queryer) (int, error) {
	total, err := CountProducts(ctx, q)
	if err != nil {
		return 0, err
	}
	if total > 0 {
		return 0, nil
	}

	for i, p := range demoProducts {
		if _, err := AddProduct(ctx, q, p); err != nil {
			return i, fmt.Errorf("seed %s: %w", p.Title, err)
		}
	}

	return len(demoProducts), nil
}

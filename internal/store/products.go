package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/safar/vegbox/internal/database"
	"github.com/safar/vegbox/internal/models"
	"github.com/shopspring/decimal"
)

// NewProduct carries a farmer submission. ImagePath is empty when no image
// was uploaded.
type NewProduct struct {
	FarmerName  string
	Title       string
	Description string
	Price       decimal.Decimal
	Quantity    int
	ImagePath   string
}

const productColumns = `id, farmer_name, title, description, price, quantity, image_path, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, product *models.Product) error {
	var imagePath sql.NullString
	err := row.Scan(
		&product.ID,
		&product.FarmerName,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.Quantity,
		&imagePath,
		&product.CreatedAt,
	)
	if err != nil {
		return err
	}
	product.ImagePath = imagePath.String
	return nil
}

func AddProduct(ctx context.Context, q database.Queryer, p NewProduct) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (farmer_name, title, description, price, quantity, image_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + productColumns

	imagePath := sql.NullString{String: p.ImagePath, Valid: p.ImagePath != ""}
	err := scanProduct(q.QueryRowContext(ctx, query,
		p.FarmerName, p.Title, p.Description, p.Price, p.Quantity, imagePath, time.Now().UTC()), product)
	if err != nil {
		return nil, fmt.Errorf("add product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, q database.Queryer, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	err := scanProduct(q.QueryRowContext(ctx, query, id), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// LockProduct reads a product inside tx and holds it until the transaction
// ends, so a concurrent checkout cannot read the same stock.
func LockProduct(ctx context.Context, tx *sql.Tx, dialect database.Dialect, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1` + dialect.LockClause()

	err := scanProduct(tx.QueryRowContext(ctx, query, id), product)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
			return nil, database.ErrLockTimeout
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	return product, nil
}

// ListProducts returns every product, newest first.
func ListProducts(ctx context.Context, q database.Queryer) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// UpdateQuantity overwrites the stored stock. Callers clamp at zero.
func UpdateQuantity(ctx context.Context, q database.Queryer, productID int64, quantity int) error {
	result, err := q.ExecContext(ctx,
		`UPDATE products SET quantity = $1 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func CountProducts(ctx context.Context, q database.Queryer) (int64, error) {
	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/safar/vegbox/internal/database"
	"github.com/safar/vegbox/internal/models"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	CustomerName string
	Lines        []OrderLine
}

// OrderLine is a purchased product priced at checkout time.
type OrderLine struct {
	ProductID int64
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// FormatItems flattens lines into the "Title xQty, Title xQty" summary kept
// on the order row.
func FormatItems(lines []OrderLine) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s x%d", line.Title, line.Quantity))
	}
	return strings.Join(parts, ", ")
}

// CreateOrder inserts the order and its lines. It does not touch stock; run it
// in the same transaction as the stock updates.
func CreateOrder(ctx context.Context, q database.Queryer, req CreateOrderRequest) (*models.Order, error) {
	var total decimal.Decimal
	for _, line := range req.Lines {
		total = total.Add(line.Subtotal())
	}

	order := &models.Order{
		CustomerName: req.CustomerName,
		Items:        FormatItems(req.Lines),
		Total:        total,
	}

	err := q.QueryRowContext(ctx,
		`INSERT INTO orders (customer_name, items, total, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		order.CustomerName, order.Items, order.Total, time.Now().UTC()).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	for _, line := range req.Lines {
		item := models.OrderItem{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Title:     line.Title,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal(),
		}

		err = q.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, title, quantity, unit_price, subtotal)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			item.OrderID, item.ProductID, item.Title, item.Quantity, item.UnitPrice, item.Subtotal).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		order.Lines = append(order.Lines, item)
	}

	return order, nil
}

func GetOrder(ctx context.Context, q database.Queryer, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `
		SELECT id, customer_name, items, total, created_at
		FROM orders
		WHERE id = $1`

	err := q.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.CustomerName,
		&order.Items,
		&order.Total,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, title, quantity, unit_price, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := q.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Title,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Lines = append(order.Lines, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return order, nil
}

// ListRecentOrders returns up to limit orders, newest first, without lines.
func ListRecentOrders(ctx context.Context, q database.Queryer, limit int) ([]models.Order, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, customer_name, items, total, created_at
		 FROM orders
		 ORDER BY id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func ListOrdersCursor(ctx context.Context, q database.Queryer, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, customer_name, items, total, created_at
		FROM orders
		WHERE created_at < $1 OR (created_at = $1 AND id < $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := q.QueryContext(ctx, query, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.CustomerName,
			&order.Items,
			&order.Total,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

package shop

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/safar/vegbox/internal/models"
)

var receiptHeader = []string{"Product", "Qty", "UnitPrice", "Subtotal"}

// WriteReceipt writes the order as CSV: one row per line and a closing
// TOTAL row.
func WriteReceipt(w io.Writer, order *models.Order) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(receiptHeader); err != nil {
		return fmt.Errorf("write receipt header: %w", err)
	}

	for _, line := range order.Lines {
		record := []string{
			line.Title,
			strconv.Itoa(line.Quantity),
			line.UnitPrice.StringFixed(2),
			line.Subtotal.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write receipt line: %w", err)
		}
	}

	if err := cw.Write([]string{"TOTAL", "", "", order.Total.StringFixed(2)}); err != nil {
		return fmt.Errorf("write receipt total: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// ReceiptFilename is the download name offered for an order's receipt.
func ReceiptFilename(orderID int64) string {
	return fmt.Sprintf("order_%d.csv", orderID)
}

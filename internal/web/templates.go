package web

import (
	"embed"
	"html/template"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

const productsPerRow = 3

func parseTemplates() (*template.Template, error) {
	return template.New("").
		Funcs(template.FuncMap{
			"money": renderMoney,
			"rows":  chunkProducts,
		}).
		ParseFS(templateFS, "templates/*.html")
}

func renderMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func chunkProducts(products []productView) [][]productView {
	var rows [][]productView
	for i := 0; i < len(products); i += productsPerRow {
		end := i + productsPerRow
		if end > len(products) {
			end = len(products)
		}
		rows = append(rows, products[i:end])
	}
	return rows
}

package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-admin/internal/core/domain"
)

const (
	// FloorEdit is the minimum quantity kept when an existing order is saved.
	FloorEdit = 1
	// FloorCreate is the minimum quantity while a new order is being drafted.
	FloorCreate = 0
)

// ComputeTotal prices a selection against a catalog snapshot. Unknown
// products and missing quantities contribute nothing.
func ComputeTotal(selectedIDs []string, quantities map[string]int, catalog []domain.Product) float64 {
	return Breakdown(selectedIDs, quantities, catalog).Total
}

// Breakdown is ComputeTotal with the per-line detail. Each id is counted once
// even if it is repeated in the selection.
func Breakdown(selectedIDs []string, quantities map[string]int, catalog []domain.Product) domain.Quote {
	index := make(map[string]domain.Product, len(catalog))
	for _, p := range catalog {
		index[p.Key()] = p
	}

	seen := make(map[string]struct{}, len(selectedIDs))
	lines := make([]domain.LineItem, 0, len(selectedIDs))
	total := decimal.Zero

	for _, id := range selectedIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		qty := quantities[id]
		product, ok := index[id]
		if !ok {
			lines = append(lines, domain.LineItem{ProductID: id, Quantity: qty, Missing: true})
			continue
		}

		lineTotal := decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(int64(qty)))
		total = total.Add(lineTotal)
		lines = append(lines, domain.LineItem{
			ProductID:   id,
			ProductName: product.ProductName,
			UnitPrice:   product.Price,
			Quantity:    qty,
			LineTotal:   lineTotal.InexactFloat64(),
		})
	}

	return domain.Quote{Lines: lines, Total: total.InexactFloat64()}
}

// NormalizeQuantities coerces raw form values to integers no lower than floor.
// Values that cannot be read as a number become floor.
func NormalizeQuantities(raw map[string]any, floor int) map[string]int {
	out := make(map[string]int, len(raw))
	for id, v := range raw {
		n, ok := toInt(v)
		if !ok || n < floor {
			n = floor
		}
		out[id] = n
	}
	return out
}

// ValidateSelection rejects an order that references no product.
func ValidateSelection(selectedIDs []string) error {
	if len(selectedIDs) == 0 {
		return domain.NewValidationError("selectedProducts", "select at least one product")
	}
	return nil
}

func toInt(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

func rawQuantities(q map[string]int) map[string]any {
	out := make(map[string]any, len(q))
	for id, n := range q {
		out[id] = n
	}
	return out
}

// Package pricing holds the pure price math for the wizard: unit price
// resolution, line and order totals, and installment amounts.
package pricing

import (
	"log/slog"
	"math"
	"strconv"

	"wizard-backend/model"
)

// TaxRate is the flat tax multiplier applied to order totals.
const TaxRate = 0.10

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// ResolveUnitPrice resolves a product's price by trying, in strict order:
// the already-normalized UnitPrice, the first pricebook entry, then each
// legacy alias field. Candidates that are NaN, infinite, or <= 0 are
// skipped. Returns 0 and logs when nothing yields a usable price.
func ResolveUnitPrice(p model.Product) float64 {
	if validPrice(p.UnitPrice) {
		return p.UnitPrice
	}

	if len(p.PricebookEntries) > 0 {
		if v := p.PricebookEntries[0].UnitPrice; validPrice(v) {
			return v
		}
	}

	for _, field := range model.PriceAliasFields {
		if v, ok := p.RawPrices[field]; ok && validPrice(v) {
			return v
		}
	}

	slog.Warn("No valid price found for product", "product", p.Name, "id", p.ID)
	return 0
}

// LineTotal is unitPrice x quantity. Quantity below 1 is coerced to 1;
// a non-finite product is treated as 0.
func LineTotal(unitPrice float64, quantity int) float64 {
	if quantity < 1 {
		quantity = 1
	}
	total := unitPrice * float64(quantity)
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	return total
}

// OrderTotal sums all line totals and applies the flat tax multiplier,
// returning the tax-inclusive amount. A non-finite or negative result
// collapses to 0.
func OrderTotal(lines []model.SelectionLine) float64 {
	var sum float64
	for _, line := range lines {
		sum += LineTotal(line.UnitPrice, line.Quantity)
	}

	total := sum * (1 + TaxRate)
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return 0
	}
	return total
}

// TotalForProducts is OrderTotal over raw selection payloads: each product
// contributes its resolved unit price times its quantity from the map
// (missing or invalid entries count as 1).
func TotalForProducts(products []model.Product, quantities map[string]int) float64 {
	lines := make([]model.SelectionLine, 0, len(products))
	for _, p := range products {
		qty := quantities[p.ID]
		if qty < 1 {
			qty = 1
		}
		lines = append(lines, model.SelectionLine{
			ProductID: p.ID,
			UnitPrice: ResolveUnitPrice(p),
			Quantity:  qty,
		})
	}
	return OrderTotal(lines)
}

// Subtotal is the pre-tax total of the detail screen: per-product fetched
// price times quantity, quantity defaulting to 1.
func Subtotal(products []model.Product, quantities map[string]int, prices map[string]float64) float64 {
	var total float64
	for _, p := range products {
		qty := quantities[p.ID]
		if qty < 1 {
			qty = 1
		}
		total += LineTotal(prices[p.ID], qty)
	}
	return total
}

// TaxAmount is the tax owed on a pre-tax subtotal.
func TaxAmount(subtotal float64) float64 {
	return subtotal * TaxRate
}

// MonthlyInstallment divides a tax-inclusive total evenly across the term.
// months <= 0 or a non-positive total yields "0.00". Flat division, no
// compounding.
func MonthlyInstallment(total float64, months int) string {
	if months <= 0 {
		return "0.00"
	}
	if !validPrice(total) {
		return "0.00"
	}
	return FormatAmount(total / float64(months))
}

// FormatAmount renders a money amount with two decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

package models

import "time"

// Product is the read-only projection of an inventory item consumed by the
// alerting pipeline. The product catalog itself is owned by another service.
type Product struct {
	ID             string     `json:"id"`
	Barcode        string     `json:"barcode"`
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	Stock          int        `json:"stock"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// Key returns the most specific identifier available for cooldown keying.
func (p Product) Key() string {
	switch {
	case p.ID != "":
		return p.ID
	case p.Barcode != "":
		return p.Barcode
	default:
		return p.Name
	}
}

// minStockByCategory maps a product category to its minimum acceptable stock.
// Categories not listed fall back to DefaultMinStock.
var minStockByCategory = map[string]int{
	"lacteos":   10,
	"bebidas":   12,
	"panaderia": 8,
	"carnes":    6,
	"abarrotes": 5,
	"limpieza":  4,
}

// DefaultMinStock applies when a product's category has no configured threshold.
const DefaultMinStock = 5

// MinStockFor returns the minimum stock threshold for a category.
func MinStockFor(category string) int {
	if min, ok := minStockByCategory[category]; ok {
		return min
	}
	return DefaultMinStock
}

// BelowMinStock reports whether the product's stock is at or under its
// category threshold but not yet zero.
func (p Product) BelowMinStock() bool {
	return p.Stock > 0 && p.Stock <= MinStockFor(p.Category)
}

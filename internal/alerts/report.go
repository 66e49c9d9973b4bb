package alerts

import (
	"time"

	"stock-alert-service/internal/models"
)

// SplitByStock classifies post-decrement products into out-of-stock and
// low-stock batches using the category thresholds. Products above threshold
// are dropped.
func SplitByStock(products []models.Product) (outOfStock, lowStock []models.Product) {
	for _, p := range products {
		switch {
		case p.Stock <= 0:
			outOfStock = append(outOfStock, p)
		case p.BelowMinStock():
			lowStock = append(lowStock, p)
		}
	}
	return outOfStock, lowStock
}

// BuildStockReport classifies a full inventory scan into the stock sections of
// a DigestReport. Products in affected are tagged as recently sale-affected
// and excluded from the other sections so they render exactly once.
func BuildStockReport(all, affected []models.Product, at time.Time) models.DigestReport {
	report := models.DigestReport{GeneratedAt: at}

	affectedKeys := make(map[string]bool, len(affected))
	for _, p := range affected {
		if p.Name == "" {
			continue
		}
		affectedKeys[p.Key()] = true
		report.RecentlyAffected = append(report.RecentlyAffected, p)
	}

	for _, p := range all {
		if p.Name == "" || affectedKeys[p.Key()] {
			continue
		}
		switch {
		case p.Stock <= 0:
			report.OutOfStock = append(report.OutOfStock, p)
		case p.BelowMinStock():
			report.LowStock = append(report.LowStock, p)
		}
	}
	return report
}

package models

import "time"

// DigestReport aggregates alert conditions for one email digest. It is derived
// from a fresh inventory scan on every trigger and never stored.
type DigestReport struct {
	OutOfStock []Product `json:"out_of_stock"`
	LowStock   []Product `json:"low_stock"`
	// RecentlyAffected holds low-stock items tagged by the post-sale path.
	// They render in their own section; the tagging is the caller's job and
	// is not re-derived here.
	RecentlyAffected []Product `json:"recently_affected"`
	Expired          []Product `json:"expired"`
	ExpiringSoon     []Product `json:"expiring_soon"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// HasStock reports whether any stock-related section has content.
func (r DigestReport) HasStock() bool {
	return len(r.OutOfStock) > 0 || len(r.LowStock) > 0 || len(r.RecentlyAffected) > 0
}

// HasExpiration reports whether any expiration-related section has content.
func (r DigestReport) HasExpiration() bool {
	return len(r.Expired) > 0 || len(r.ExpiringSoon) > 0
}

// Empty reports whether the report has nothing to say.
func (r DigestReport) Empty() bool {
	return !r.HasStock() && !r.HasExpiration()
}

// Urgent reports whether the report contains any out-of-stock item, including
// sale-affected products at or below zero (oversells go negative).
func (r DigestReport) Urgent() bool {
	if len(r.OutOfStock) > 0 {
		return true
	}
	for _, p := range r.RecentlyAffected {
		if p.Stock <= 0 {
			return true
		}
	}
	return false
}

// UrgentItems returns every out-of-stock product in the report.
func (r DigestReport) UrgentItems() []Product {
	items := append([]Product(nil), r.OutOfStock...)
	for _, p := range r.RecentlyAffected {
		if p.Stock <= 0 {
			items = append(items, p)
		}
	}
	return items
}

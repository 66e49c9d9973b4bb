package alerts

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"stock-alert-service/internal/clock"
	"stock-alert-service/internal/cooldown"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/models"
)

// Composer turns a raw condition into an AlertEvent for the real-time channel.
// A multi-product batch yields one grouped event, not one per item.
//
// Expiration categories are suppressed per product here (an item already
// notified drops out of the batch while its siblings go through). Stock
// categories carry no suppression on this channel: every post-sale stock drop
// is broadcast live, and only the digest email is deduplicated per day.
type Composer struct {
	clock  clock.Clock
	caches *cooldown.Set
	logger *logging.Logger
	sink   models.FailureSink
	seq    atomic.Int64
}

func NewComposer(clk clock.Clock, caches *cooldown.Set, logger *logging.Logger, sink models.FailureSink) *Composer {
	return &Composer{clock: clk, caches: caches, logger: logger, sink: sink}
}

// Compose builds one AlertEvent covering the batch. ok is false when nothing
// survives filtering (all malformed or all suppressed).
func (c *Composer) Compose(category models.AlertCategory, products []models.Product) (models.AlertEvent, bool) {
	now := c.clock.Now()

	items := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Name == "" {
			// Skip, log, keep going: one bad entry must not block the batch.
			c.logger.Warnf("Skipping %s subject without name (id=%q barcode=%q)", category, p.ID, p.Barcode)
			c.sink.Report(models.FailureMalformedSubject, fmt.Errorf("product without name (id=%q barcode=%q)", p.ID, p.Barcode), now)
			continue
		}
		if category.IsExpiration() && c.caches.General.ShouldSuppress(expirationKey(p)) {
			c.logger.Debugf("Expiration alert for %s still in cooldown, skipping", p.Name)
			continue
		}
		items = append(items, p)
	}
	if len(items) == 0 {
		return models.AlertEvent{}, false
	}

	event := models.AlertEvent{
		ID:        c.nextID(now.UnixMilli()),
		Category:  category,
		Subject:   items,
		Message:   message(category, items),
		CreatedAt: now,
		Grouped:   len(items) > 1,
	}

	if category.IsExpiration() {
		for _, p := range items {
			c.caches.General.MarkSent(expirationKey(p))
		}
	}
	return event, true
}

// nextID combines a monotonic counter, the creation timestamp, and a random
// salt so events minted within the same millisecond stay unique.
func (c *Composer) nextID(millis int64) string {
	return fmt.Sprintf("%d-%d-%s", c.seq.Add(1), millis, uuid.NewString()[:8])
}

func expirationKey(p models.Product) string {
	return "expiration_" + p.Key()
}

func message(category models.AlertCategory, items []models.Product) string {
	if len(items) == 1 {
		p := items[0]
		switch category {
		case models.CategoryOutOfStock:
			return fmt.Sprintf("Sin stock: %s", p.Name)
		case models.CategoryExpired:
			return fmt.Sprintf("Producto vencido: %s", p.Name)
		case models.CategoryExpiringSoon:
			return fmt.Sprintf("Producto por vencer: %s", p.Name)
		default:
			return fmt.Sprintf("Stock bajo: %s (quedan %d)", p.Name, p.Stock)
		}
	}

	names := nameList(items)
	switch category {
	case models.CategoryOutOfStock:
		return fmt.Sprintf("%d productos sin stock: %s", len(items), names)
	case models.CategoryExpired:
		return fmt.Sprintf("%d productos vencidos: %s", len(items), names)
	case models.CategoryExpiringSoon:
		return fmt.Sprintf("%d productos por vencer: %s", len(items), names)
	default:
		return fmt.Sprintf("Stock bajo en %d productos: %s", len(items), names)
	}
}

// nameList lists the first two names, truncating the rest to "y N más".
func nameList(items []models.Product) string {
	switch len(items) {
	case 1:
		return items[0].Name
	case 2:
		return items[0].Name + ", " + items[1].Name
	default:
		return fmt.Sprintf("%s, %s y %d más", items[0].Name, items[1].Name, len(items)-2)
	}
}

package alerts

import (
	"testing"
	"time"

	"stock-alert-service/internal/clock"
	"stock-alert-service/internal/cooldown"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/models"
)

func newTestComposer(clk clock.Clock, sink models.FailureSink) (*Composer, *cooldown.Set) {
	caches := cooldown.NewSet(clk, 24*time.Hour, 24*time.Hour, 6*time.Hour, 24*time.Hour)
	return NewComposer(clk, caches, logging.NewNop(), sink), caches
}

func TestComposeSingleLowStock(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	c, _ := newTestComposer(clk, nil)

	event, ok := c.Compose(models.CategoryLowStock, []models.Product{
		{ID: "p1", Barcode: "111", Name: "Leche 1L", Category: "lacteos", Stock: 3},
	})
	if !ok {
		t.Fatalf("compose failed")
	}
	if event.Grouped {
		t.Errorf("single subject must not be grouped")
	}
	if event.Category != models.CategoryLowStock {
		t.Errorf("category = %s", event.Category)
	}
	if event.Message != "Stock bajo: Leche 1L (quedan 3)" {
		t.Errorf("message = %q", event.Message)
	}
	if event.Read {
		t.Errorf("new events start unread")
	}
}

func TestComposeGroupedTruncation(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	c, _ := newTestComposer(clk, nil)

	event, ok := c.Compose(models.CategoryExpired, []models.Product{
		{ID: "1", Name: "Yogur"},
		{ID: "2", Name: "Queso"},
		{ID: "3", Name: "Jamon"},
		{ID: "4", Name: "Mantequilla"},
	})
	if !ok {
		t.Fatalf("compose failed")
	}
	if !event.Grouped {
		t.Errorf("batch of 4 must be grouped")
	}
	want := "4 productos vencidos: Yogur, Queso y 2 más"
	if event.Message != want {
		t.Errorf("message = %q, want %q", event.Message, want)
	}
}

func TestComposeSkipsMalformedSubject(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	var failures []models.Failure
	c, _ := newTestComposer(clk, func(f models.Failure) { failures = append(failures, f) })

	event, ok := c.Compose(models.CategoryLowStock, []models.Product{
		{ID: "1", Name: "Leche 1L", Stock: 3},
		{ID: "2", Name: "", Stock: 1}, // malformed, must not block the batch
		{ID: "3", Name: "Pan", Stock: 2},
	})
	if !ok {
		t.Fatalf("compose failed")
	}
	if len(event.Subject) != 2 {
		t.Fatalf("expected 2 subjects, got %d", len(event.Subject))
	}
	if len(failures) != 1 || failures[0].Kind != models.FailureMalformedSubject {
		t.Errorf("failure sink = %+v", failures)
	}
}

func TestComposeAllMalformed(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	c, _ := newTestComposer(clk, nil)

	if _, ok := c.Compose(models.CategoryOutOfStock, []models.Product{{ID: "1"}, {Barcode: "2"}}); ok {
		t.Fatalf("batch of nameless products must compose nothing")
	}
}

func TestComposeExpirationPerItemSuppression(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	c, caches := newTestComposer(clk, nil)

	// One of three already notified.
	caches.General.MarkSent("expiration_1")

	event, ok := c.Compose(models.CategoryExpired, []models.Product{
		{ID: "1", Name: "Yogur"},
		{ID: "2", Name: "Queso"},
		{ID: "3", Name: "Jamon"},
	})
	if !ok {
		t.Fatalf("compose failed")
	}
	if len(event.Subject) != 2 {
		t.Fatalf("expected suppressed item filtered, got %d subjects", len(event.Subject))
	}
	for _, p := range event.Subject {
		if p.ID == "1" {
			t.Errorf("suppressed product leaked into event")
		}
	}

	// Everything is marked now; a repeat batch composes nothing.
	if _, ok := c.Compose(models.CategoryExpired, []models.Product{
		{ID: "1", Name: "Yogur"}, {ID: "2", Name: "Queso"}, {ID: "3", Name: "Jamon"},
	}); ok {
		t.Fatalf("fully suppressed batch must compose nothing")
	}

	// After the TTL the same products alert again.
	clk.Advance(25 * time.Hour)
	event, ok = c.Compose(models.CategoryExpired, []models.Product{
		{ID: "1", Name: "Yogur"}, {ID: "2", Name: "Queso"}, {ID: "3", Name: "Jamon"},
	})
	if !ok || len(event.Subject) != 3 {
		t.Fatalf("expected fresh alerts after TTL, ok=%v subjects=%d", ok, len(event.Subject))
	}
}

func TestComposeStockNotSuppressedOnRealtimeChannel(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	c, _ := newTestComposer(clk, nil)

	batch := []models.Product{{ID: "p1", Name: "Leche 1L", Category: "lacteos", Stock: 3}}
	if _, ok := c.Compose(models.CategoryLowStock, batch); !ok {
		t.Fatalf("first compose failed")
	}
	// Live stock alerts go out on every sale; dedup is the email channel's job.
	if _, ok := c.Compose(models.CategoryLowStock, batch); !ok {
		t.Fatalf("second stock compose must not be suppressed")
	}
}

func TestComposeUniqueIDsSameMillisecond(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	c, _ := newTestComposer(clk, nil)

	batch := []models.Product{{ID: "p1", Name: "Leche 1L", Stock: 3}}
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		event, ok := c.Compose(models.CategoryLowStock, batch)
		if !ok {
			t.Fatalf("compose %d failed", i)
		}
		if seen[event.ID] {
			t.Fatalf("duplicate event id %q", event.ID)
		}
		seen[event.ID] = true
	}
}

package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stock-alert-service/internal/clock"
	"stock-alert-service/internal/cooldown"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/models"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (f *fakeBroadcaster) Broadcast(event models.AlertEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeBroadcaster) all() []models.AlertEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AlertEvent(nil), f.events...)
}

type fakeReader struct {
	products []models.Product
	err      error
}

func (f *fakeReader) FindAll(ctx context.Context) ([]models.Product, error) {
	return f.products, f.err
}

func (f *fakeReader) FindExpired(ctx context.Context, before time.Time) ([]models.Product, error) {
	return nil, f.err
}

func (f *fakeReader) FindExpiringBetween(ctx context.Context, start, end time.Time) ([]models.Product, error) {
	return nil, f.err
}

type fakeDispatcher struct {
	reports chan models.DigestReport
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{reports: make(chan models.DigestReport, 16)}
}

func (f *fakeDispatcher) Send(report models.DigestReport) error {
	f.reports <- report
	return nil
}

func (f *fakeDispatcher) wait(t *testing.T) models.DigestReport {
	t.Helper()
	select {
	case r := <-f.reports:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for digest dispatch")
		return models.DigestReport{}
	}
}

type testEnv struct {
	svc    *Service
	hub    *fakeBroadcaster
	disp   *fakeDispatcher
	caches *cooldown.Set
	clk    *clock.Manual
	wg     sync.WaitGroup
}

func newTestEnv(t *testing.T, reader ProductReader, urgent UrgentNotifier, sink models.FailureSink) *testEnv {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	caches := cooldown.NewSet(clk, 24*time.Hour, 24*time.Hour, 6*time.Hour, 24*time.Hour)
	env := &testEnv{hub: &fakeBroadcaster{}, disp: newFakeDispatcher(), caches: caches, clk: clk}
	env.svc = New(Deps{
		Logger:     logging.NewNop(),
		Clock:      clk,
		Caches:     caches,
		Products:   reader,
		Dispatcher: env.disp,
		Urgent:     urgent,
		Location:   time.UTC,
		Sink:       sink,
		QueueSize:  16,
		MaxWorkers: 1,
	})
	env.svc.Start(&env.wg)
	env.svc.SetBroadcaster(env.hub)
	t.Cleanup(func() {
		env.svc.Stop()
		env.wg.Wait()
	})
	return env
}

func TestPostSaleLowStockBroadcastsLive(t *testing.T) {
	leche := models.Product{ID: "p1", Barcode: "111", Name: "Leche 1L", Category: "lacteos", Stock: 3}
	env := newTestEnv(t, &fakeReader{}, nil, nil)

	// Two sales drop the same product within the hour. The server broadcasts
	// both; the events carry identical (category, message, subject) so the
	// client-side dedup window collapses them to one visible alert.
	env.svc.NotifyLowStock([]models.Product{leche})
	env.clk.Advance(30 * time.Minute)
	env.svc.NotifyLowStock([]models.Product{leche})

	events := env.hub.all()
	if len(events) != 2 {
		t.Fatalf("expected 2 live broadcasts, got %d", len(events))
	}
	for _, e := range events {
		if e.Category != models.CategoryLowStock || e.Grouped {
			t.Errorf("event = %+v", e)
		}
	}
	if events[0].Message != events[1].Message {
		t.Errorf("repeat alerts must match for client dedup: %q vs %q", events[0].Message, events[1].Message)
	}
	if events[0].ID == events[1].ID {
		t.Errorf("event ids must be unique")
	}
}

func TestBroadcastBeforeTransportReady(t *testing.T) {
	var failures []models.Failure
	var mu sync.Mutex
	sink := func(f models.Failure) {
		mu.Lock()
		failures = append(failures, f)
		mu.Unlock()
	}

	clk := clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	caches := cooldown.NewSet(clk, 24*time.Hour, 24*time.Hour, 6*time.Hour, 24*time.Hour)
	svc := New(Deps{
		Logger:     logging.NewNop(),
		Clock:      clk,
		Caches:     caches,
		Products:   &fakeReader{},
		Dispatcher: newFakeDispatcher(),
		Sink:       sink,
	})
	var wg sync.WaitGroup
	svc.Start(&wg)
	defer func() {
		svc.Stop()
		wg.Wait()
	}()

	// No broadcaster attached: must not panic, must report the drop.
	svc.NotifyExpired([]models.Product{{ID: "1", Name: "Yogur"}})

	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 1 || failures[0].Kind != models.FailureTransportUninitialized {
		t.Fatalf("failure sink = %+v", failures)
	}
}

func TestPostSaleDigestTagsAffectedItems(t *testing.T) {
	leche := models.Product{ID: "p1", Name: "Leche 1L", Category: "lacteos", Stock: 3}
	inventory := []models.Product{
		leche,
		{ID: "p2", Name: "Arroz 1Kg", Category: "abarrotes", Stock: 4},  // low
		{ID: "p3", Name: "Pan Molde", Category: "panaderia", Stock: 0},  // out
		{ID: "p4", Name: "Aceite 1L", Category: "abarrotes", Stock: 50}, // fine
	}
	env := newTestEnv(t, &fakeReader{products: inventory}, nil, nil)

	env.svc.NotifyLowStock([]models.Product{leche})
	report := env.disp.wait(t)

	if len(report.RecentlyAffected) != 1 || report.RecentlyAffected[0].ID != "p1" {
		t.Errorf("recently affected = %+v", report.RecentlyAffected)
	}
	if len(report.LowStock) != 1 || report.LowStock[0].ID != "p2" {
		t.Errorf("other low stock = %+v", report.LowStock)
	}
	if len(report.OutOfStock) != 1 || report.OutOfStock[0].ID != "p3" {
		t.Errorf("out of stock = %+v", report.OutOfStock)
	}
}

func TestScanFailureIsCaught(t *testing.T) {
	var failures []models.Failure
	var mu sync.Mutex
	sink := func(f models.Failure) {
		mu.Lock()
		failures = append(failures, f)
		mu.Unlock()
	}
	env := newTestEnv(t, &fakeReader{err: errors.New("db down")}, nil, sink)

	env.svc.NotifyLowStock([]models.Product{{ID: "p1", Name: "Leche 1L", Category: "lacteos", Stock: 3}})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := len(failures) > 0
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("scan failure never reached sink")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if failures[0].Kind != models.FailureScan {
		t.Fatalf("failure kind = %s", failures[0].Kind)
	}
}

func TestUrgentNoticeGatedPerDay(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	urgent := func(ctx context.Context, products []models.Product) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	}
	pan := models.Product{ID: "p3", Name: "Pan Molde", Category: "panaderia", Stock: 0}
	env := newTestEnv(t, &fakeReader{products: []models.Product{pan}}, urgent, nil)

	env.svc.NotifyOutOfStock([]models.Product{pan})
	env.disp.wait(t)
	env.svc.NotifyOutOfStock([]models.Product{pan})
	env.disp.wait(t)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 urgent notice, got %d", calls)
	}
}

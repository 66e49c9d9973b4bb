package alerts

import (
	"context"
	"sync"
	"time"

	"stock-alert-service/internal/clock"
	"stock-alert-service/internal/cooldown"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/models"
)

// Broadcaster fans a composed alert out to all connected real-time clients.
// Delivery is fire-and-forget.
type Broadcaster interface {
	Broadcast(event models.AlertEvent)
}

// ProductReader is the read-only product repository collaborator.
type ProductReader interface {
	FindAll(ctx context.Context) ([]models.Product, error)
	FindExpired(ctx context.Context, before time.Time) ([]models.Product, error)
	FindExpiringBetween(ctx context.Context, start, end time.Time) ([]models.Product, error)
}

// DigestDispatcher sends a digest report over the email channel.
type DigestDispatcher interface {
	Send(report models.DigestReport) error
}

// UrgentNotifier pushes an out-of-stock notice over an extra channel
// (telegram). Nil when the channel is not configured.
type UrgentNotifier func(ctx context.Context, products []models.Product) error

// Deps wires a Service. Broadcaster is attached later via SetBroadcaster
// because the websocket transport comes up after the service.
type Deps struct {
	Logger     *logging.Logger
	Clock      clock.Clock
	Caches     *cooldown.Set
	Products   ProductReader
	Dispatcher DigestDispatcher
	Urgent     UrgentNotifier
	Location   *time.Location
	Sink       models.FailureSink
	QueueSize  int
	MaxWorkers int
}

type taskKind int

const taskStockDigest taskKind = iota

type task struct {
	kind     taskKind
	affected []models.Product
}

// Service is the alerting entry point called after stock-decrementing sales
// and by the daily scheduler. Broadcasts happen synchronously (they are
// cheap); the inventory scan plus digest email runs on a worker pool so a
// slow sweep never delays checkout-time notifications.
type Service struct {
	deps     Deps
	composer *Composer

	bmu         sync.RWMutex
	broadcaster Broadcaster

	tasks  chan task
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

func New(deps Deps) *Service {
	if deps.QueueSize <= 0 {
		deps.QueueSize = 100
	}
	if deps.MaxWorkers <= 0 {
		deps.MaxWorkers = 2
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		deps:     deps,
		composer: NewComposer(deps.Clock, deps.Caches, deps.Logger, deps.Sink),
		tasks:    make(chan task, deps.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetBroadcaster attaches the real-time transport. Until this is called,
// broadcasts are tolerated no-ops.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.bmu.Lock()
	s.broadcaster = b
	s.bmu.Unlock()
}

// Start launches the worker pool.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.deps.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels the workers. Pending queued tasks are dropped; suppression
// state is volatile by design, so nothing needs flushing.
func (s *Service) Stop() {
	s.cancel()
}

// NotifyLowStock handles products whose stock just dropped to or below their
// category threshold. Zero, one, or many products per call are all fine.
func (s *Service) NotifyLowStock(products []models.Product) {
	s.notifyStock(models.CategoryLowStock, products)
}

// NotifyOutOfStock handles products whose stock just hit zero.
func (s *Service) NotifyOutOfStock(products []models.Product) {
	s.notifyStock(models.CategoryOutOfStock, products)
}

func (s *Service) notifyStock(category models.AlertCategory, products []models.Product) {
	if len(products) == 0 {
		return
	}
	event, ok := s.composer.Compose(category, products)
	if !ok {
		return
	}
	s.broadcast(event)
	s.enqueue(task{kind: taskStockDigest, affected: event.Subject})
}

// NotifyExpired broadcasts expired products, skipping those still inside
// their per-product cooldown. No email originates here; the scheduler owns
// the expiration digest.
func (s *Service) NotifyExpired(products []models.Product) {
	if event, ok := s.composer.Compose(models.CategoryExpired, products); ok {
		s.broadcast(event)
	}
}

// NotifyExpiringSoon broadcasts products approaching their expiration date.
func (s *Service) NotifyExpiringSoon(products []models.Product) {
	if event, ok := s.composer.Compose(models.CategoryExpiringSoon, products); ok {
		s.broadcast(event)
	}
}

func (s *Service) broadcast(event models.AlertEvent) {
	s.bmu.RLock()
	b := s.broadcaster
	s.bmu.RUnlock()
	if b == nil {
		// Startup race: transport not up yet. Tolerated, not an error.
		s.deps.Logger.Warnf("Realtime transport not initialized, dropping %s alert", event.Category)
		s.deps.Sink.Report(models.FailureTransportUninitialized, nil, event.CreatedAt)
		return
	}
	b.Broadcast(event)
}

func (s *Service) enqueue(t task) {
	select {
	case s.tasks <- t:
	default:
		s.deps.Logger.Errorf("Alert queue full, dropping digest task for %d product(s)", len(t.affected))
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.deps.Logger.Infof("Alert worker %d stopped", id)
			return
		case t := <-s.tasks:
			switch t.kind {
			case taskStockDigest:
				s.handleStockDigest(t.affected)
			}
		}
	}
}

// handleStockDigest scans the inventory, emails the low-stock digest (gated
// per day by the dispatcher), and fires the urgent telegram notice when the
// batch contains out-of-stock items.
func (s *Service) handleStockDigest(affected []models.Product) {
	all, err := s.deps.Products.FindAll(s.ctx)
	if err != nil {
		s.deps.Logger.Errorf("Inventory scan failed: %v", err)
		s.deps.Sink.Report(models.FailureScan, err, s.deps.Clock.Now())
		return
	}

	report := BuildStockReport(all, affected, s.deps.Clock.Now())
	if report.Empty() {
		return
	}

	if err := s.deps.Dispatcher.Send(report); err != nil {
		// Already logged and sinked by the dispatcher; the day key stays
		// unmarked so the next sale retries implicitly.
		s.deps.Logger.Debugf("Digest dispatch after sale failed: %v", err)
	}

	if report.Urgent() {
		s.notifyUrgent(report.UrgentItems())
	}
}

func (s *Service) notifyUrgent(items []models.Product) {
	if s.deps.Urgent == nil {
		return
	}
	now := s.deps.Clock.Now().In(s.deps.Location)
	key := cooldown.DayKey("telegramUrgent", now)
	if s.deps.Caches.OutOfStock.ShouldSuppress(key) {
		return
	}
	if err := s.deps.Urgent(s.ctx, items); err != nil {
		s.deps.Logger.Errorf("Urgent telegram notice failed: %v", err)
		s.deps.Sink.Report(models.FailureDispatch, err, now)
		return
	}
	s.deps.Caches.OutOfStock.MarkSent(key)
}

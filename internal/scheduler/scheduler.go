package scheduler

import (
	"context"
	"sync"
	"time"

	"stock-alert-service/internal/alerts"
	"stock-alert-service/internal/clock"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/models"
)

// Scheduler runs the full inventory sweep once per day at a fixed local time.
// Each tick builds a fresh DigestReport, emails it, and forwards expiration
// conditions into the real-time path so connected clients see them live.
// A failed tick is logged and skipped; the next day's tick is unaffected.
type Scheduler struct {
	logger     *logging.Logger
	clock      clock.Clock
	products   alerts.ProductReader
	dispatcher alerts.DigestDispatcher
	alerter    *alerts.Service
	sink       models.FailureSink

	loc       *time.Location
	hour      int
	minute    int
	lookahead time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func New(logger *logging.Logger, clk clock.Clock, products alerts.ProductReader, dispatcher alerts.DigestDispatcher, alerter *alerts.Service, sink models.FailureSink, loc *time.Location, hour, minute, lookaheadDays int) *Scheduler {
	return &Scheduler{
		logger:     logger,
		clock:      clk,
		products:   products,
		dispatcher: dispatcher,
		alerter:    alerter,
		sink:       sink,
		loc:        loc,
		hour:       hour,
		minute:     minute,
		lookahead:  time.Duration(lookaheadDays) * 24 * time.Hour,
	}
}

// Start launches the daily loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.run(ctx)
	s.logger.Infof("Scheduler started, daily sweep at %02d:%02d %s", s.hour, s.minute, s.loc)
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()
	<-done
	s.logger.Infof("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	for {
		now := s.clock.Now()
		timer := time.NewTimer(s.nextFire(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// nextFire returns the next daily fire instant strictly after now.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	local := now.In(s.loc)
	fire := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !fire.After(local) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// RunOnce performs one full sweep. Exported for the manual trigger endpoint
// and tests. Never panics or returns an error: unattended failures degrade to
// "digest not sent" plus a log line and a sink report.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.clock.Now().In(s.loc)

	all, err := s.products.FindAll(ctx)
	if err != nil {
		s.scanFailed("full scan", err, now)
		return
	}
	expired, err := s.products.FindExpired(ctx, now)
	if err != nil {
		s.scanFailed("expired scan", err, now)
		return
	}
	expiring, err := s.products.FindExpiringBetween(ctx, now, now.Add(s.lookahead))
	if err != nil {
		s.scanFailed("expiring scan", err, now)
		return
	}

	report := alerts.BuildStockReport(all, nil, now)
	report.Expired = expired
	report.ExpiringSoon = expiring

	if report.Empty() {
		s.logger.Infof("Daily sweep found nothing to report")
		return
	}

	if err := s.dispatcher.Send(report); err != nil {
		// Logged and sinked by the dispatcher; the day key stays unmarked so
		// the next trigger retries.
		s.logger.Debugf("Daily digest dispatch failed: %v", err)
	}

	// Calendar-driven expiration conditions also go out live. The composer's
	// per-product cooldown keeps repeat sweeps quiet.
	if len(report.Expired) > 0 {
		s.alerter.NotifyExpired(report.Expired)
	}
	if len(report.ExpiringSoon) > 0 {
		s.alerter.NotifyExpiringSoon(report.ExpiringSoon)
	}

	s.logger.Infof("Daily sweep done: %d out of stock, %d low, %d expired, %d expiring",
		len(report.OutOfStock), len(report.LowStock), len(report.Expired), len(report.ExpiringSoon))
}

func (s *Scheduler) scanFailed(stage string, err error, at time.Time) {
	s.logger.Errorf("Daily sweep %s failed: %v", stage, err)
	s.sink.Report(models.FailureScan, err, at)
}

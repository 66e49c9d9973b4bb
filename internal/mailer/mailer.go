package mailer

import (
	"fmt"
	"time"

	"stock-alert-service/internal/clock"
	"stock-alert-service/internal/config"
	"stock-alert-service/internal/cooldown"
	"stock-alert-service/internal/digest"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/models"
	"stock-alert-service/pkg/email"
)

// DispatchError wraps a transport rejection. The cooldown key is deliberately
// not marked on this error, so the next trigger in the same day attempts
// delivery again.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("mail dispatch failed: %v", e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Transport sends one composed email. The production implementation is SMTP;
// tests inject a fake.
type Transport interface {
	Send(to, subject, htmlBody string) error
}

type htmlComposer interface {
	Compose(report models.DigestReport) (string, error)
}

type smtpTransport struct {
	cfg config.Config
}

func (t smtpTransport) Send(to, subject, htmlBody string) error {
	return email.Send(
		t.cfg.Email.SMTPServer,
		t.cfg.Email.SMTPPort,
		t.cfg.Email.Username,
		t.cfg.Email.Password,
		t.cfg.Email.FromName,
		to,
		subject,
		htmlBody,
	)
}

// Dispatcher sends digest emails to the operator inbox, gated per calendar
// day. Stock sections share one day key ("lowStock_<day>"); expiration
// sections share another ("expired_<day>"). When the batch contains any
// out-of-stock item the stock key is written with the shorter out-of-stock
// TTL instead of the default.
type Dispatcher struct {
	transport Transport
	composer  htmlComposer
	caches    *cooldown.Set
	clock     clock.Clock
	loc       *time.Location
	logger    *logging.Logger
	sink      models.FailureSink
	to        string
}

func New(cfg config.Config, caches *cooldown.Set, clk clock.Clock, loc *time.Location, logger *logging.Logger, sink models.FailureSink) *Dispatcher {
	return &Dispatcher{
		transport: smtpTransport{cfg: cfg},
		composer:  digest.New(),
		caches:    caches,
		clock:     clk,
		loc:       loc,
		logger:    logger,
		sink:      sink,
		to:        cfg.Email.To,
	}
}

// NewWithTransport builds a Dispatcher around an injected transport. For tests.
func NewWithTransport(t Transport, to string, caches *cooldown.Set, clk clock.Clock, loc *time.Location, logger *logging.Logger, sink models.FailureSink) *Dispatcher {
	return &Dispatcher{
		transport: t,
		composer:  digest.New(),
		caches:    caches,
		clock:     clk,
		loc:       loc,
		logger:    logger,
		sink:      sink,
		to:        to,
	}
}

// Send emails the report, dropping sections whose day key is still inside its
// suppression window. A fully suppressed or empty report is a silent no-op:
// "already sent today" is not a failure. Day keys are only marked after the
// transport accepts the message.
func (d *Dispatcher) Send(report models.DigestReport) error {
	if report.Empty() {
		return nil
	}

	now := d.clock.Now().In(d.loc)
	stockKey := cooldown.DayKey("lowStock", now)
	expiredKey := cooldown.DayKey("expired", now)

	sendStock := report.HasStock() && !d.caches.LowStock.ShouldSuppress(stockKey)
	sendExpiration := report.HasExpiration() && !d.caches.Expired.ShouldSuppress(expiredKey)

	trimmed := report
	if !sendStock {
		trimmed.OutOfStock = nil
		trimmed.LowStock = nil
		trimmed.RecentlyAffected = nil
	}
	if !sendExpiration {
		trimmed.Expired = nil
		trimmed.ExpiringSoon = nil
	}
	if trimmed.Empty() {
		d.logger.Infof("Digest suppressed for %s, already sent today", now.Format("2006-01-02"))
		return nil
	}

	body, err := d.composer.Compose(trimmed)
	if err != nil {
		d.logger.Errorf("Digest compose failed: %v", err)
		d.sink.Report(models.FailureCompose, err, now)
		return err
	}

	if err := d.transport.Send(d.to, digest.Subject(trimmed), body); err != nil {
		d.logger.Errorf("Digest email to %s rejected: %v", d.to, err)
		d.sink.Report(models.FailureDispatch, err, now)
		return &DispatchError{Err: err}
	}

	if sendStock {
		if trimmed.Urgent() {
			d.caches.LowStock.MarkSentFor(stockKey, d.caches.OutOfStock.TTL())
		} else {
			d.caches.LowStock.MarkSent(stockKey)
		}
	}
	if sendExpiration {
		d.caches.Expired.MarkSent(expiredKey)
	}

	d.logger.Infof("Digest email sent to %s (stock=%v expiration=%v urgent=%v)",
		d.to, sendStock, sendExpiration, trimmed.Urgent())
	return nil
}

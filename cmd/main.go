package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stock-alert-service/internal/alerts"
	"stock-alert-service/internal/api"
	"stock-alert-service/internal/clock"
	"stock-alert-service/internal/config"
	"stock-alert-service/internal/cooldown"
	"stock-alert-service/internal/db"
	"stock-alert-service/internal/kafka"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/mailer"
	"stock-alert-service/internal/providers"
	"stock-alert-service/internal/scheduler"
	"stock-alert-service/internal/ws"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		logger.Errorf("Invalid timezone %q: %v", cfg.Schedule.Timezone, err)
		log.Fatalf("Invalid timezone: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	// Shared suppression state, built once and injected everywhere
	clk := clock.System()
	caches := cooldown.NewSet(clk,
		cfg.Alerts.ExpiredTTL,
		cfg.Alerts.LowStockTTL,
		cfg.Alerts.OutOfStockTTL,
		cfg.Alerts.GeneralTTL,
	)

	dispatcher := mailer.New(cfg, caches, clk, loc, logger, nil)
	hub := ws.NewHub(logger)

	// Initialize alert service
	svc := alerts.New(alerts.Deps{
		Logger:     logger,
		Clock:      clk,
		Caches:     caches,
		Products:   dbConn,
		Dispatcher: dispatcher,
		Urgent:     providers.NewUrgentStockNotifier(cfg, logger),
		Location:   loc,
		QueueSize:  cfg.Alerts.QueueSize,
		MaxWorkers: cfg.Alerts.MaxWorkers,
	})
	var wg sync.WaitGroup
	svc.Start(&wg)
	svc.SetBroadcaster(hub)

	// Daily sweep
	sched := scheduler.New(logger, clk, dbConn, dispatcher, svc, nil, loc,
		cfg.Schedule.Hour, cfg.Schedule.Minute, cfg.Alerts.ExpiryLookaheadDays)
	sched.Start()

	// Sales-completion hook via Kafka, when a broker is configured
	ctx, cancel := context.WithCancel(context.Background())
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(cfg.Kafka.Broker, cfg.Kafka.Topic, cfg.Kafka.GroupID, svc, logger)
		consumer.Start(ctx, &wg)
	}

	// Start API server
	handler := api.NewHandler(logger, svc, sched, hub)
	router := api.NewRouter(logger, handler)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	if consumer != nil {
		consumer.Close()
	}
	sched.Stop()
	svc.Stop()
	wg.Wait()
	logger.Infof("Service stopped")
}

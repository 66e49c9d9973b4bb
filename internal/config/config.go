package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		FromName   string
		To         string
	}
	Telegram struct {
		BotToken      string
		ChatID        int64
		RatePerSecond int
	}
	API struct {
		Port string
	}
	Logging struct {
		Dir   string
		Level string
	}
	Alerts struct {
		QueueSize           int
		MaxWorkers          int
		ExpiredTTL          time.Duration
		LowStockTTL         time.Duration
		OutOfStockTTL       time.Duration
		GeneralTTL          time.Duration
		ExpiryLookaheadDays int
	}
	Schedule struct {
		Hour     int
		Minute   int
		Timezone string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Kafka settings; the consumer is only started when a broker is set
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.FromName = os.Getenv("EMAIL_FROM_NAME")
	cfg.Email.To = os.Getenv("ALERT_EMAIL_TO")

	// Telegram settings (optional channel)
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	cfg.Telegram.RatePerSecond = envInt("TELEGRAM_RATE_PER_SECOND", 1)

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Alert pipeline settings
	cfg.Alerts.QueueSize = envInt("QUEUE_SIZE", 500)
	cfg.Alerts.MaxWorkers = envInt("MAX_WORKERS", 4)
	cfg.Alerts.ExpiredTTL = time.Duration(envInt("EXPIRED_TTL_HOURS", 24)) * time.Hour
	cfg.Alerts.LowStockTTL = time.Duration(envInt("LOWSTOCK_TTL_HOURS", 24)) * time.Hour
	cfg.Alerts.OutOfStockTTL = time.Duration(envInt("OUTOFSTOCK_TTL_HOURS", 6)) * time.Hour
	cfg.Alerts.GeneralTTL = time.Duration(envInt("GENERAL_TTL_HOURS", 24)) * time.Hour
	cfg.Alerts.ExpiryLookaheadDays = envInt("EXPIRY_LOOKAHEAD_DAYS", 7)

	// Daily sweep schedule
	cfg.Schedule.Hour = envInt("DIGEST_HOUR", 9)
	cfg.Schedule.Minute = envInt("DIGEST_MINUTE", 0)
	cfg.Schedule.Timezone = os.Getenv("DIGEST_TIMEZONE")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Email.To == "" {
		missing = append(missing, "ALERT_EMAIL_TO")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "sale_completed"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "stock-alert-service"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "America/Lima"
	}
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = "Inventario"
	}

	return cfg, nil
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

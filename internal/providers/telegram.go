package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"
	"stock-alert-service/internal/config"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/models"
	"stock-alert-service/internal/utils"
)

// NewUrgentStockNotifier builds the optional telegram channel for urgent
// out-of-stock notices to the operator chat. Returns nil when the bot is not
// configured, which disables the channel.
func NewUrgentStockNotifier(cfg config.Config, logger *logging.Logger) func(context.Context, []models.Product) error {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
		return nil
	}

	limiter := rate.NewLimiter(rate.Limit(float64(cfg.Telegram.RatePerSecond)), cfg.Telegram.RatePerSecond)
	token := cfg.Telegram.BotToken
	chatID := cfg.Telegram.ChatID

	return func(ctx context.Context, products []models.Product) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("telegram rate limit exceeded: %w", err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "*SIN STOCK*: %d producto(s) agotados:\n", len(products))
		for _, p := range products {
			fmt.Fprintf(&b, "• %s", p.Name)
			if p.Barcode != "" {
				fmt.Fprintf(&b, " (%s)", p.Barcode)
			}
			b.WriteString("\n")
		}
		text := b.String()

		return utils.Retry(logger, 3, time.Second, func() error {
			tb, err := bot.New(token)
			if err != nil {
				return fmt.Errorf("failed to initialize telegram bot: %w", err)
			}
			params := &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      text,
				ParseMode: "Markdown",
			}
			if _, err := tb.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("failed to send telegram message to chat %d: %w", chatID, err)
			}
			return nil
		})
	}
}

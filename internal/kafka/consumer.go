package kafka

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"
	"stock-alert-service/internal/alerts"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/models"
)

// saleMessage is the payload published by the sales service after it commits
// a stock decrement. Stock carries the post-decrement quantity.
type saleMessage struct {
	SaleID   string           `json:"sale_id"`
	Products []models.Product `json:"products"`
}

// Consumer feeds sale-completed events into the alert service. This is the
// production sales-completion hook; the HTTP endpoint is the fallback for
// deployments without a broker.
type Consumer struct {
	reader *kafka.Reader
	svc    *alerts.Service
	logger *logging.Logger
}

func NewConsumer(broker, topic, groupID string, svc *alerts.Service, logger *logging.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: groupID,
	})
	return &Consumer{reader: r, svc: svc, logger: logger}
}

func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started on topic %s", c.reader.Config().Topic)
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Infof("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				continue
			}

			var sale saleMessage
			if err := json.Unmarshal(msg.Value, &sale); err != nil {
				c.logger.Errorf("Unmarshal sale message failed: %v", err)
				continue
			}
			if len(sale.Products) == 0 {
				c.logger.Debugf("Sale %s touched no products, skipping", sale.SaleID)
				continue
			}

			outOfStock, lowStock := alerts.SplitByStock(sale.Products)
			c.svc.NotifyOutOfStock(outOfStock)
			c.svc.NotifyLowStock(lowStock)
			c.logger.Infof("Processed sale %s: %d out of stock, %d low",
				sale.SaleID, len(outOfStock), len(lowStock))
		}
	}()
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}

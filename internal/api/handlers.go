package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"stock-alert-service/internal/alerts"
	"stock-alert-service/internal/logging"
	"stock-alert-service/internal/models"
	"stock-alert-service/internal/scheduler"
	"stock-alert-service/internal/ws"
)

type Handler struct {
	logger   *logging.Logger
	svc      *alerts.Service
	sched    *scheduler.Scheduler
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewHandler(logger *logging.Logger, svc *alerts.Service, sched *scheduler.Scheduler, hub *ws.Hub) *Handler {
	return &Handler{
		logger: logger,
		svc:    svc,
		sched:  sched,
		hub:    hub,
		upgrader: websocket.Upgrader{
			// Clients are the POS frontends on the local network.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": h.hub.Count()})
}

// SaleCompleted is the HTTP variant of the sales-completion hook, called by
// the sales service right after it commits a stock decrement. Stock carries
// the post-decrement quantity.
func (h *Handler) SaleCompleted(c *gin.Context) {
	var req struct {
		SaleID   string           `json:"sale_id"`
		Products []models.Product `json:"products" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid sale-completed request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	outOfStock, lowStock := alerts.SplitByStock(req.Products)
	h.svc.NotifyOutOfStock(outOfStock)
	h.svc.NotifyLowStock(lowStock)

	h.logger.Infof("Sale %s processed: %d out of stock, %d low", req.SaleID, len(outOfStock), len(lowStock))
	c.JSON(http.StatusOK, gin.H{
		"out_of_stock": len(outOfStock),
		"low_stock":    len(lowStock),
	})
}

// RunDigest triggers the daily sweep out of schedule.
func (h *Handler) RunDigest(c *gin.Context) {
	go h.sched.RunOnce(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"message": "Sweep started"})
}

// ServeWS upgrades the connection and registers it with the broadcast hub.
// The read loop only exists to notice the client going away.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	h.hub.Add(conn)

	go func() {
		defer func() {
			h.hub.Remove(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

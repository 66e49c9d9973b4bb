package api

import (
	"github.com/gin-gonic/gin"
	"stock-alert-service/internal/logging"
)

func NewRouter(logger *logging.Logger, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group("/api/v0")
	{
		api.POST("/sales/completed", h.SaleCompleted)
		api.POST("/digest/run", h.RunDigest)
	}

	r.GET("/ws", h.ServeWS)
	r.GET("/health", h.Health)
	return r
}

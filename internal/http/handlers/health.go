package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	pingDB    func() error
	pingCache func() error
}

func NewHealthHandler(pingDB, pingCache func() error) *HealthHandler {
	return &HealthHandler{pingDB: pingDB, pingCache: pingCache}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz checks the store (hard dependency) and the cache backend. A dead
// cache degrades latency, not correctness, so it only flips the reported
// cache status, never readiness.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.pingDB != nil {
		if err := h.pingDB(); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"db":     "down",
			})
			return
		}
	}

	cacheStatus := "ok"
	if h.pingCache != nil {
		if err := h.pingCache(); err != nil {
			cacheStatus = "down"
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "cache": cacheStatus})
}

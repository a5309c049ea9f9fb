// Package handler serves liveness and readiness for load balancers and CI.
package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler serves GET /health.
type Handler struct {
	db *sql.DB
}

// NewHandler returns a health handler that pings db for readiness.
func NewHandler(db *sql.DB) *Handler {
	return &Handler{db: db}
}

// Check reports ok when the process is up and the database answers a ping.
func (h *Handler) Check(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

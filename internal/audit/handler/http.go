// Package handler exposes the audit log to administrators.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	auditrepo "auth-starter/backend/internal/audit/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// AuditHandler serves GET /api/v1/admin/audit.
type AuditHandler struct {
	repo auditrepo.Repository
}

// NewAuditHandler returns an AuditHandler backed by repo.
func NewAuditHandler(repo auditrepo.Repository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

type eventResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns recent audit events, newest first. Query params: limit, offset.
func (h *AuditHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	events, err := h.repo.ListRecent(c.Request.Context(), int32(limit), int32(offset))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing audit events failed"})
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:        e.ID,
			UserID:    e.UserID,
			Action:    e.Action,
			Resource:  e.Resource,
			IP:        e.IP,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// Package handler exposes session management endpoints over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"auth-starter/backend/internal/server/middleware"
	"auth-starter/backend/internal/session/service"
)

// SessionHandler serves listing and revoking the caller's sessions.
type SessionHandler struct {
	sessions     *service.Store
	cookieSecure bool
}

// NewSessionHandler returns a SessionHandler.
func NewSessionHandler(sessions *service.Store, cookieSecure bool) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookieSecure: cookieSecure}
}

type sessionResponse struct {
	ID         string     `json:"id"`
	UserAgent  string     `json:"user_agent,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	IsCurrent  bool       `json:"is_current"`
}

// List handles GET /api/v1/sessions: the caller's live sessions, flagging
// the one backing this request.
func (h *SessionHandler) List(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.UnauthorizedMessage})
		return
	}
	sessions, err := h.sessions.ListForUser(c.Request.Context(), id.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing sessions failed"})
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:         s.ID,
			UserAgent:  s.UserAgent,
			IPAddress:  s.IPAddress,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
			LastSeenAt: s.LastSeenAt,
			IsCurrent:  s.Token == id.SessionToken,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// Revoke handles DELETE /api/v1/sessions/:id: revokes one of the caller's
// sessions. Revoking the session backing this request also clears the
// cookie and tells the client to log in again.
func (h *SessionHandler) Revoke(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.UnauthorizedMessage})
		return
	}
	sessionID := c.Param("id")

	err := h.sessions.Revoke(c.Request.Context(), sessionID, id.UserID)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoking session failed"})
		return
	}

	if sessionID == id.SessionID {
		h.clearSessionCookie(c)
		c.JSON(http.StatusOK, gin.H{"message": "current session revoked, please log in again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session revoked"})
}

// RevokeOthers handles DELETE /api/v1/sessions: revokes every session of
// the caller except the current one and returns the count.
func (h *SessionHandler) RevokeOthers(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.UnauthorizedMessage})
		return
	}
	n, err := h.sessions.RevokeOthers(c.Request.Context(), id.UserID, id.SessionToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoking sessions failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": n})
}

func (h *SessionHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", h.cookieSecure, true)
}

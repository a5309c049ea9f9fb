// Package handler exposes the auth endpoints over HTTP.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authservice "auth-starter/backend/internal/auth/service"
	"auth-starter/backend/internal/ratelimit"
	"auth-starter/backend/internal/role"
	"auth-starter/backend/internal/server/middleware"
	userdomain "auth-starter/backend/internal/user/domain"
)

// AuthHandler serves register, login, refresh, logout, and me.
type AuthHandler struct {
	auth         *authservice.AuthService
	sessionTTL   time.Duration
	cookieSecure bool
}

// NewAuthHandler returns an AuthHandler. sessionTTL bounds the session
// cookie's max age; cookieSecure marks the cookie Secure in production.
func NewAuthHandler(auth *authservice.AuthService, sessionTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, sessionTTL: sessionTTL, cookieSecure: cookieSecure}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required"`
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	IsActive     bool       `json:"is_active"`
	Roles        []string   `json:"roles"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoggedIn *time.Time `json:"last_logged_in,omitempty"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func toUserResponse(u *userdomain.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsActive:     u.IsActive,
		Roles:        u.RoleNames(),
		CreatedAt:    u.CreatedAt,
		LastLoggedIn: u.LastLoggedIn,
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.auth.Register(c.Request.Context(), authservice.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, authservice.ErrEmailAlreadyRegistered) || errors.Is(err, authservice.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login handles POST /api/v1/auth/login. On success it sets the session
// cookie and returns the user plus the token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password,
		c.Request.UserAgent(), ratelimit.ClientIP(c.Request))
	if err != nil {
		if errors.Is(err, authservice.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.UnauthorizedMessage})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	h.setSessionCookie(c, res.SessionToken, int(h.sessionTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"user": toUserResponse(res.User),
		"tokens": tokenResponse{
			AccessToken:  res.Tokens.AccessToken,
			RefreshToken: res.Tokens.RefreshToken,
			TokenType:    "bearer",
			ExpiresAt:    res.Tokens.AccessExpiresAt,
		},
	})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, ratelimit.ClientIP(c.Request))
	if err != nil {
		if errors.Is(err, authservice.ErrInvalidRefreshToken) || errors.Is(err, authservice.ErrRefreshTokenReuse) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.UnauthorizedMessage})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresAt:    pair.AccessExpiresAt,
	})
}

// Logout handles POST /api/v1/auth/logout. It revokes the cookie session
// when present, otherwise the session named by the body's refresh_token,
// and clears the cookie either way.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionToken, _ := c.Cookie(middleware.SessionCookieName)
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.auth.Logout(c.Request.Context(), sessionToken, req.RefreshToken,
		ratelimit.ClientIP(c.Request)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me handles GET /api/v1/auth/me: echoes the authenticated identity.
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.UnauthorizedMessage})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":    id.UserID,
		"email":      id.Email,
		"roles":      role.Names(id.Roles),
		"session_id": id.SessionID,
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, value, maxAge, "/", "", h.cookieSecure, true)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"auth-starter/backend/internal/audit"
	auditdomain "auth-starter/backend/internal/audit/domain"
	"auth-starter/backend/internal/role"
	"auth-starter/backend/internal/security"
	sessiondomain "auth-starter/backend/internal/session/domain"
	userdomain "auth-starter/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to HTTP statuses.
var (
	// ErrValidation wraps rejected register input.
	ErrValidation             = errors.New("validation failed")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReuse      = errors.New("refresh token reuse detected; session revoked")
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	AssignRole(ctx context.Context, userID string, r role.Role) error
	UpdateLastLoggedIn(ctx context.Context, userID string, at time.Time) error
}

// Sessions is the minimal session store needed by the auth service.
type Sessions interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	RevokeByID(ctx context.Context, id string) error
	RevokeByToken(ctx context.Context, token string) error
	SwapRefreshToken(ctx context.Context, sessionID, prevJTI, newJTI, newHash string) (bool, error)
	Touch(ctx context.Context, id string)
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// LoginResult holds the outcome of Login: the authenticated user, the token
// pair, and the opaque session cookie token.
type LoginResult struct {
	User         *userdomain.User
	Tokens       security.TokenPair
	SessionID    string
	SessionToken string
}

// AuthService implements register, login, refresh, and logout.
type AuthService struct {
	users    UserRepo
	sessions Sessions
	hasher   *security.Hasher
	tokens   *security.TokenProvider
	auditor  audit.Recorder
	now      func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// auditor may be nil to disable audit recording.
func NewAuthService(users UserRepo, sessions Sessions, hasher *security.Hasher, tokens *security.TokenProvider, auditor audit.Recorder) *AuthService {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		auditor:  auditor,
		now:      time.Now,
	}
}

// Register creates a user with the default role. Returns the created user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*userdomain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
		Roles:        []role.Role{role.User},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.users.AssignRole(ctx, user.ID, role.User); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates with email/password, creates a session bound to the
// caller's user agent and address, and returns tokens plus the session cookie
// token.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent, ip string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		s.auditor.Record(ctx, "", auditdomain.ActionLoginFailure, "auth", ip, email)
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.auditor.Record(ctx, user.ID, auditdomain.ActionLoginFailure, "auth", ip, "")
		return nil, ErrInvalidCredentials
	}

	sessionID := uuid.New().String()
	pair, err := s.tokens.IssuePair(user.ID, user.Email, user.RoleNames(), sessionID)
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		UserAgent:        userAgent,
		IPAddress:        ip,
		RefreshJti:       pair.RefreshJTI,
		RefreshTokenHash: security.HashRefreshToken(pair.RefreshToken),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	_ = s.users.UpdateLastLoggedIn(ctx, user.ID, s.now().UTC())
	s.auditor.Record(ctx, user.ID, auditdomain.ActionLogin, "auth", ip, "")

	return &LoginResult{
		User:         user,
		Tokens:       pair,
		SessionID:    sessionID,
		SessionToken: sess.Token,
	}, nil
}

// Refresh validates the refresh token against the session's registered jti
// and hash, rotates it, and returns the new pair. A jti mismatch on a live
// session, or losing the rotation swap to a concurrent request, is treated
// as reuse: the session is revoked and ErrRefreshTokenReuse returned.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ip string) (security.TokenPair, error) {
	var zero security.TokenPair
	if refreshToken == "" {
		return zero, ErrInvalidRefreshToken
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return zero, ErrInvalidRefreshToken
	}
	sess, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return zero, err
	}
	if !sess.Live(s.now().UTC()) {
		return zero, ErrInvalidRefreshToken
	}
	if sess.RefreshJti != claims.ID {
		_ = s.sessions.RevokeByID(ctx, sess.ID)
		s.auditor.Record(ctx, sess.UserID, auditdomain.ActionRefreshReuse, "session", ip, sess.ID)
		return zero, ErrRefreshTokenReuse
	}
	if !security.RefreshTokenHashEqual(refreshToken, sess.RefreshTokenHash) {
		return zero, ErrInvalidRefreshToken
	}
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return zero, err
	}
	if user == nil || !user.IsActive {
		return zero, ErrInvalidRefreshToken
	}
	pair, err := s.tokens.Rotate(claims, user.Email, user.RoleNames())
	if err != nil {
		return zero, err
	}
	swapped, err := s.sessions.SwapRefreshToken(ctx, sess.ID, claims.ID, pair.RefreshJTI, security.HashRefreshToken(pair.RefreshToken))
	if err != nil {
		return zero, err
	}
	if !swapped {
		// Another request rotated first; this token is now stale.
		_ = s.sessions.RevokeByID(ctx, sess.ID)
		s.auditor.Record(ctx, sess.UserID, auditdomain.ActionRefreshReuse, "session", ip, sess.ID)
		return zero, ErrRefreshTokenReuse
	}
	s.sessions.Touch(ctx, sess.ID)
	s.auditor.Record(ctx, sess.UserID, auditdomain.ActionRefresh, "session", ip, sess.ID)
	return pair, nil
}

// Logout revokes the session identified by the cookie token, falling back to
// the session named by the refresh token when no cookie is present.
// Logging out an already revoked or unknown session is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionToken, refreshToken, ip string) error {
	if sessionToken != "" {
		if err := s.sessions.RevokeByToken(ctx, sessionToken); err != nil {
			return err
		}
		s.auditor.Record(ctx, "", auditdomain.ActionLogout, "auth", ip, "")
		return nil
	}
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.sessions.RevokeByID(ctx, claims.SessionID); err != nil {
		return err
	}
	s.auditor.Record(ctx, claims.Subject, auditdomain.ActionLogout, "auth", ip, claims.SessionID)
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators embedded in the "type" claim. An access token is
// never accepted where a refresh token is expected and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrTokenMalformed is returned when a token's structure or signature is invalid.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned when a token's exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenTypeMismatch is returned when the type claim does not match the expected token type.
	ErrTokenTypeMismatch = errors.New("token type mismatch")
)

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	SessionID string   `json:"session_id"`
	TokenType string   `json:"type"`
}

// RefreshClaims holds JWT claims for the refresh token. The jti binds the
// token to the session row's current refresh slot for rotation.
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	TokenType string `json:"type"`
}

// TokenPair is one access/refresh issue. RefreshJTI is the jti of the
// refresh token; the caller stores it on the session for rotation checks.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	RefreshJTI      string
	AccessExpiresAt time.Time
}

// TokenProvider issues and verifies HMAC-SHA256 signed access and refresh
// tokens with embedded type discriminators. Issue and Rotate are pure:
// they touch no storage, only the clock and the signing secret.
type TokenProvider struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider signing with the given shared secret.
func NewTokenProvider(secret []byte, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// IssuePair issues an access/refresh token pair for the given user and session.
func (p *TokenProvider) IssuePair(userID, email string, roles []string, sessionID string) (TokenPair, error) {
	access, accessExp, err := p.issueAccess(userID, email, roles, sessionID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, jti, err := p.issueRefresh(userID, sessionID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		RefreshJTI:      jti,
		AccessExpiresAt: accessExp,
	}, nil
}

// Rotate re-issues a full pair preserving the old refresh token's subject and
// session id. Invalidating the old refresh token is the caller's job; Rotate
// itself is a pure transform.
func (p *TokenProvider) Rotate(old *RefreshClaims, email string, roles []string) (TokenPair, error) {
	return p.IssuePair(old.Subject, email, roles, old.SessionID)
}

func (p *TokenProvider) issueAccess(userID, email string, roles []string, sessionID string) (string, time.Time, error) {
	now := p.now()
	expiresAt := now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:     email,
		Roles:     roles,
		SessionID: sessionID,
		TokenType: TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, expiresAt, err
}

func (p *TokenProvider) issueRefresh(userID, sessionID string) (token, jti string, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", err
	}
	now := p.now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.refreshTTL)),
		},
		SessionID: sessionID,
		TokenType: TokenTypeRefresh,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, jti, err
}

// VerifyAccess parses and validates an access token (signature, exp, type).
// Returns ErrTokenExpired, ErrTokenTypeMismatch, or ErrTokenMalformed on failure.
func (p *TokenProvider) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := p.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrTokenTypeMismatch
	}
	return claims, nil
}

// VerifyRefresh parses and validates a refresh token (signature, exp, type).
// Returns ErrTokenExpired, ErrTokenTypeMismatch, or ErrTokenMalformed on failure.
func (p *TokenProvider) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := p.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrTokenTypeMismatch
	}
	return claims, nil
}

// parse validates signature and registered claims with zero leeway, so clock
// skew can only shorten a token's life, never extend it.
func (p *TokenProvider) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenMalformed
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenMalformed
	}
	if !token.Valid {
		return ErrTokenMalformed
	}
	return nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

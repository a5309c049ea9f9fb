package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"auth-starter/backend/internal/role"
	"auth-starter/backend/internal/security"
	sessiondomain "auth-starter/backend/internal/session/domain"
	userdomain "auth-starter/backend/internal/user/domain"
)

// fakeUserRepo is an in-memory UserRepo guarded by a mutex.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*userdomain.User // by id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*userdomain.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) AssignRole(ctx context.Context, userID string, rl role.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return errors.New("no such user")
	}
	for _, have := range u.Roles {
		if have == rl {
			return nil
		}
	}
	u.Roles = append(u.Roles, rl)
	return nil
}

func (r *fakeUserRepo) UpdateLastLoggedIn(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.LastLoggedIn = &at
	}
	return nil
}

// fakeSessions is an in-memory Sessions guarded by a mutex.
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session
	tokenSeq int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*sessiondomain.Session)}
}

func (f *fakeSessions) Create(ctx context.Context, s *sessiondomain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenSeq++
	s.Token = "tok-" + strconv.Itoa(f.tokenSeq)
	s.IsActive = true
	s.CreatedAt = time.Now().UTC()
	s.ExpiresAt = s.CreatedAt.Add(24 * time.Hour)
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessions) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) RevokeByID(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.IsActive = false
	}
	return nil
}

func (f *fakeSessions) RevokeByToken(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Token == token {
			s.IsActive = false
		}
	}
	return nil
}

func (f *fakeSessions) SwapRefreshToken(ctx context.Context, sessionID, prevJTI, newJTI, newHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || !s.IsActive || s.RefreshJti != prevJTI {
		return false, nil
	}
	s.RefreshJti = newJTI
	s.RefreshTokenHash = newHash
	return true, nil
}

func (f *fakeSessions) Touch(ctx context.Context, id string) {}

func newTestService(t *testing.T) (*AuthService, *fakeUserRepo, *fakeSessions) {
	t.Helper()
	users := newFakeUserRepo()
	sessions := newFakeSessions()
	hasher := security.NewHasher(4)
	tokens := security.NewTokenProvider([]byte("test-secret-0123456789abcdef0123"), 30*time.Minute, 168*time.Hour)
	return NewAuthService(users, sessions, hasher, tokens, nil), users, sessions
}

func registerAndLogin(t *testing.T, svc *AuthService) *LoginResult {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	res, err := svc.Login(ctx, "alice@example.com", "correct-horse", "ua-test", "203.0.113.7")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	return res
}

func TestRegister_AssignsDefaultRole(t *testing.T) {
	svc, users, _ := newTestService(t)

	u, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Alice@Example.COM",
		Username: "alice",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", u.Email)
	}
	stored, _ := users.GetByID(context.Background(), u.ID)
	if stored == nil || !stored.IsActive {
		t.Fatal("expected active stored user")
	}
	if len(stored.Roles) != 1 || stored.Roles[0] != role.User {
		t.Errorf("roles = %v, want [user]", stored.Roles)
	}
	if stored.PasswordHash == "correct-horse" || stored.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	in := RegisterInput{Email: "alice@example.com", Username: "alice", Password: "correct-horse"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	in.Username = "alice2"
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("expected ErrEmailAlreadyRegistered, got %v", err)
	}
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "not-an-email", Username: "x", Password: "correct-horse"},
		{Email: "", Username: "x", Password: "correct-horse"},
		{Email: "a@b.com", Username: "", Password: "correct-horse"},
		{Email: "a@b.com", Username: "x", Password: "short"},
	}
	for _, in := range cases {
		if _, err := svc.Register(ctx, in); err == nil {
			t.Errorf("Register(%+v) should fail", in)
		}
	}
}

func TestLogin_IssuesTokensAndSession(t *testing.T) {
	svc, users, sessions := newTestService(t)
	res := registerAndLogin(t, svc)

	if res.Tokens.AccessToken == "" || res.Tokens.RefreshToken == "" {
		t.Fatal("expected issued token pair")
	}
	if res.SessionToken == "" {
		t.Fatal("expected session cookie token")
	}
	sess, _ := sessions.GetByID(context.Background(), res.SessionID)
	if sess == nil || !sess.IsActive {
		t.Fatal("expected live session row")
	}
	if sess.RefreshJti != res.Tokens.RefreshJTI {
		t.Errorf("session jti = %q, want %q", sess.RefreshJti, res.Tokens.RefreshJTI)
	}
	if !security.RefreshTokenHashEqual(res.Tokens.RefreshToken, sess.RefreshTokenHash) {
		t.Error("session must register the refresh token hash")
	}
	if sess.UserAgent != "ua-test" || sess.IPAddress != "203.0.113.7" {
		t.Errorf("session ua/ip = %q/%q", sess.UserAgent, sess.IPAddress)
	}
	u, _ := users.GetByEmail(context.Background(), "alice@example.com")
	if u.LastLoggedIn == nil {
		t.Error("expected last_logged_in updated")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAndLogin(t, svc)

	if _, err := svc.Login(context.Background(), "alice@example.com", "wrong", "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownOrInactiveUser(t *testing.T) {
	svc, users, _ := newTestService(t)
	res := registerAndLogin(t, svc)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "bob@example.com", "whatever-pass", "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	users.mu.Lock()
	users.users[res.User.ID].IsActive = false
	users.mu.Unlock()
	if _, err := svc.Login(ctx, "alice@example.com", "correct-horse", "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for inactive user, got %v", err)
	}
}

func TestRefresh_RotatesPair(t *testing.T) {
	svc, _, sessions := newTestService(t)
	res := registerAndLogin(t, svc)
	ctx := context.Background()

	pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken, "")
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if pair.RefreshToken == res.Tokens.RefreshToken {
		t.Error("rotation must mint a new refresh token")
	}
	sess, _ := sessions.GetByID(ctx, res.SessionID)
	if sess.RefreshJti != pair.RefreshJTI {
		t.Errorf("session jti = %q, want rotated %q", sess.RefreshJti, pair.RefreshJTI)
	}
	if !security.RefreshTokenHashEqual(pair.RefreshToken, sess.RefreshTokenHash) {
		t.Error("session must register the new refresh token hash")
	}
}

func TestRefresh_ReuseRevokesSession(t *testing.T) {
	svc, _, sessions := newTestService(t)
	res := registerAndLogin(t, svc)
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, res.Tokens.RefreshToken, ""); err != nil {
		t.Fatalf("first Refresh returned error: %v", err)
	}
	// Replaying the superseded token is reuse: the session must die.
	if _, err := svc.Refresh(ctx, res.Tokens.RefreshToken, ""); !errors.Is(err, ErrRefreshTokenReuse) {
		t.Fatalf("expected ErrRefreshTokenReuse, got %v", err)
	}
	sess, _ := sessions.GetByID(ctx, res.SessionID)
	if sess.IsActive {
		t.Fatal("expected session revoked after reuse")
	}
}

func TestRefresh_RevokedSessionDenied(t *testing.T) {
	svc, _, sessions := newTestService(t)
	res := registerAndLogin(t, svc)
	ctx := context.Background()

	if err := sessions.RevokeByID(ctx, res.SessionID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Refresh(ctx, res.Tokens.RefreshToken, ""); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	res := registerAndLogin(t, svc)

	if _, err := svc.Refresh(context.Background(), res.Tokens.AccessToken, ""); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for access token, got %v", err)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Refresh(context.Background(), "not-a-jwt", ""); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), "", ""); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for empty token, got %v", err)
	}
}

func TestLogout_ByCookieToken(t *testing.T) {
	svc, _, sessions := newTestService(t)
	res := registerAndLogin(t, svc)
	ctx := context.Background()

	if err := svc.Logout(ctx, res.SessionToken, "", ""); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	sess, _ := sessions.GetByID(ctx, res.SessionID)
	if sess.IsActive {
		t.Fatal("expected session revoked")
	}
	// Logging out again is a no-op.
	if err := svc.Logout(ctx, res.SessionToken, "", ""); err != nil {
		t.Fatalf("second Logout returned error: %v", err)
	}
}

func TestLogout_ByRefreshToken(t *testing.T) {
	svc, _, sessions := newTestService(t)
	res := registerAndLogin(t, svc)
	ctx := context.Background()

	if err := svc.Logout(ctx, "", res.Tokens.RefreshToken, ""); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	sess, _ := sessions.GetByID(ctx, res.SessionID)
	if sess.IsActive {
		t.Fatal("expected session revoked via refresh token")
	}
}

func TestLogout_InvalidTokensNoop(t *testing.T) {
	svc, _, _ := newTestService(t)

	if err := svc.Logout(context.Background(), "", "garbage", ""); err != nil {
		t.Fatalf("Logout with garbage refresh token returned error: %v", err)
	}
	if err := svc.Logout(context.Background(), "", "", ""); err != nil {
		t.Fatalf("Logout with nothing returned error: %v", err)
	}
}

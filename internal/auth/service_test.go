package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/andinotravel/partner-portal/internal/user"
)

type memUsers struct {
	byEmail map[string]*user.Profile
	byID    map[uuid.UUID]*user.Profile
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*user.Profile, error) {
	return m.byEmail[email], nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*user.Profile, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return p, nil
}

type memSessions struct {
	byHash map[string]Session
}

func newMemSessions() *memSessions { return &memSessions{byHash: map[string]Session{}} }

func (m *memSessions) Create(_ context.Context, s Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.byHash[s.TokenHash] = s
	return nil
}

func (m *memSessions) GetByTokenHash(_ context.Context, hash string) (Session, error) {
	s, ok := m.byHash[hash]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessions) Rotate(_ context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	for oldHash, s := range m.byHash {
		if s.ID == id {
			delete(m.byHash, oldHash)
			s.TokenHash = hash
			s.ExpiresAt = expiresAt
			m.byHash[hash] = s
			return nil
		}
	}
	return ErrSessionNotFound
}

func (m *memSessions) DeleteByTokenHash(_ context.Context, hash string) error {
	delete(m.byHash, hash)
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	for hash, s := range m.byHash {
		if s.UserID == userID {
			delete(m.byHash, hash)
		}
	}
	return nil
}

func newTestService(t *testing.T, password string) (*Service, *user.Profile, *memSessions) {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	profile := &user.Profile{User: user.User{
		ID:           uuid.New(),
		Email:        "agent@partner.example",
		Name:         "Agent",
		PasswordHash: hash,
		Role:         user.RolePartnerAgency,
		Status:       user.StatusActive,
	}}
	users := &memUsers{
		byEmail: map[string]*user.Profile{profile.Email: profile},
		byID:    map[uuid.UUID]*user.Profile{profile.ID: profile},
	}
	sessions := newMemSessions()
	svc, err := NewService(Config{
		Users:    users,
		Sessions: sessions,
		Secret:   "test-secret-please-rotate",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, profile, sessions
}

func TestLoginAndParseAccessToken(t *testing.T) {
	svc, profile, _ := newTestService(t, "correct horse battery")

	result, err := svc.Login(context.Background(), " Agent@Partner.Example ", "correct horse battery", "ua", "1.2.3.4")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("login must return both tokens")
	}

	identity, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if identity.UserID != profile.ID {
		t.Fatalf("token subject = %s, want %s", identity.UserID, profile.ID)
	}
	if identity.Email != profile.Email {
		t.Fatalf("token email = %s, want %s", identity.Email, profile.Email)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t, "correct horse battery")
	if _, err := svc.Login(context.Background(), "agent@partner.example", "wrong", "", ""); err == nil {
		t.Fatal("wrong password must fail")
	}
}

func TestLoginInactiveUser(t *testing.T) {
	svc, profile, _ := newTestService(t, "correct horse battery")
	profile.Status = user.StatusInactive
	if _, err := svc.Login(context.Background(), profile.Email, "correct horse battery", "", ""); err == nil {
		t.Fatal("inactive user must not log in")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, sessions := newTestService(t, "correct horse battery")
	login, err := svc.Login(context.Background(), "agent@partner.example", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token must rotate")
	}
	if len(sessions.byHash) != 1 {
		t.Fatalf("rotation must keep one session, got %d", len(sessions.byHash))
	}
	// The old token is spent.
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); err == nil {
		t.Fatal("spent refresh token must be rejected")
	}
}

func TestRefreshExpiredSession(t *testing.T) {
	svc, _, _ := newTestService(t, "correct horse battery")
	login, err := svc.Login(context.Background(), "agent@partner.example", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	svc.WithNow(func() time.Time { return time.Now().Add(40 * 24 * time.Hour) })
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); err == nil {
		t.Fatal("expired session must be rejected")
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions := newTestService(t, "correct horse battery")
	login, err := svc.Login(context.Background(), "agent@partner.example", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), login.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.byHash) != 0 {
		t.Fatal("logout must drop the session")
	}
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); err == nil {
		t.Fatal("logged-out token must be rejected")
	}
}

func TestParseAccessTokenAlgorithmMismatch(t *testing.T) {
	svc, profile, _ := newTestService(t, "correct horse battery")
	fixed := time.Now()
	svc.WithNow(func() time.Time { return fixed })

	built, err := jwt.NewBuilder().
		Subject(profile.ID.String()).
		Issuer(svc.issuer).
		Audience([]string{svc.audience}).
		IssuedAt(fixed).
		Expiration(fixed.Add(svc.accessTTL)).
		Claim("email", profile.Email).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(built, jwt.WithKey(jwa.HS384, svc.secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.ParseAccessToken(string(signed)); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	svc, _, _ := newTestService(t, "correct horse battery")
	login, err := svc.Login(context.Background(), "agent@partner.example", "correct horse battery", "", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.WithNow(func() time.Time { return time.Now().Add(time.Hour) })
	if _, err := svc.ParseAccessToken(login.AccessToken); err == nil {
		t.Fatal("expired access token must be rejected")
	}
}

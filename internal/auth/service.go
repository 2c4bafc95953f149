package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/andinotravel/partner-portal/internal/common"
	"github.com/andinotravel/partner-portal/internal/user"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// UserSource is the user lookup surface the auth service depends on.
type UserSource interface {
	FindByEmail(ctx context.Context, email string) (*user.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.Profile, error)
}

// SessionStore persists refresh-token sessions.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	GetByTokenHash(ctx context.Context, hash string) (Session, error)
	Rotate(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
	DeleteByTokenHash(ctx context.Context, hash string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// Service coordinates credential verification and session persistence.
type Service struct {
	users      UserSource
	sessions   SessionStore
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	signer     jwa.SignatureAlgorithm
	validator  TokenValidator
	issuer     string
	audience   string
	clockSkew  time.Duration
}

// Config configures the auth service.
type Config struct {
	Users           UserSource
	Sessions        SessionStore
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
	Audience        string
	ClockSkew       time.Duration
}

// Identity is the token subject pair carried through the request context.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// LoginResult bundles token material returned after a successful login.
type LoginResult struct {
	User          user.User `json:"user"`
	AccessToken   string    `json:"access_token"`
	RefreshToken  string    `json:"refresh_token"`
	AccessExpiry  time.Time `json:"access_expires_at"`
	RefreshExpiry time.Time `json:"refresh_expires_at"`
}

// RefreshResult represents the outcome of a refresh operation.
type RefreshResult struct {
	AccessToken   string    `json:"access_token"`
	AccessExpiry  time.Time `json:"access_expires_at"`
	RefreshToken  string    `json:"refresh_token"`
	RefreshExpiry time.Time `json:"refresh_expires_at"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Users == nil {
		return nil, errors.New("auth: user source is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("auth: session store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "partner-portal"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "partner-portal-web"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}

	return &Service{
		users:      cfg.Users,
		sessions:   cfg.Sessions,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		signer:     jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func invalidCredentials() *common.AppError {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
}

func invalidToken(err error) *common.AppError {
	return common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
}

// Login verifies credentials and issues a new access/refresh token pair.
// Inactive accounts fail the same way as wrong passwords.
func (s *Service) Login(ctx context.Context, email, password, userAgent, ip string) (LoginResult, error) {
	normalized := common.NormalizeEmail(email)
	if normalized == "" || password == "" {
		return LoginResult{}, invalidCredentials()
	}
	profile, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		return LoginResult{}, common.ErrStorage(err)
	}
	if profile == nil || profile.Status != user.StatusActive {
		return LoginResult{}, invalidCredentials()
	}
	ok, err := argon2id.ComparePasswordAndHash(password, profile.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, invalidCredentials()
	}

	accessToken, accessExpiry, err := s.signAccessToken(profile.ID, profile.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, refreshExpiry, err := s.createSession(ctx, profile.ID, userAgent, ip)
	if err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}
	return LoginResult{
		User:          profile.User,
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpiry:  accessExpiry,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// Refresh validates and rotates a refresh token, issuing a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return RefreshResult{}, invalidToken(nil)
	}
	hashed := hashRefreshToken(token)
	session, err := s.sessions.GetByTokenHash(ctx, hashed)
	if err != nil {
		return RefreshResult{}, invalidToken(err)
	}
	if s.now().After(session.ExpiresAt) {
		_ = s.sessions.DeleteByTokenHash(ctx, hashed)
		return RefreshResult{}, invalidToken(nil)
	}
	profile, err := s.users.GetByID(ctx, session.UserID)
	if err != nil || profile == nil || profile.Status != user.StatusActive {
		_ = s.sessions.DeleteByTokenHash(ctx, hashed)
		return RefreshResult{}, invalidToken(err)
	}

	accessToken, accessExpiry, err := s.signAccessToken(profile.ID, profile.Email)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("sign access token: %w", err)
	}
	newToken, hashedNew, refreshExpiry, err := s.newRefreshToken()
	if err != nil {
		return RefreshResult{}, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.sessions.Rotate(ctx, session.ID, hashedNew, refreshExpiry); err != nil {
		_ = s.sessions.DeleteByTokenHash(ctx, hashed)
		return RefreshResult{}, fmt.Errorf("rotate session: %w", err)
	}
	return RefreshResult{
		AccessToken:   accessToken,
		AccessExpiry:  accessExpiry,
		RefreshToken:  newToken,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// Logout revokes the refresh token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return nil
	}
	return s.sessions.DeleteByTokenHash(ctx, hashRefreshToken(token))
}

// RevokeAll drops every session of one user, e.g. after a password reset.
func (s *Service) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.DeleteByUser(ctx, userID)
}

// ParseAccessToken validates an access token and returns the embedded identity.
func (s *Service) ParseAccessToken(token string) (Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Identity{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Identity{}, invalidToken(err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return Identity{}, invalidToken(fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret))
	if err != nil {
		return Identity{}, invalidToken(err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return Identity{}, invalidToken(err)
	}
	userID, err := uuid.Parse(parsed.Subject())
	if err != nil {
		return Identity{}, invalidToken(err)
	}
	email, _ := parsed.Get("email")
	emailStr, _ := email.(string)
	if emailStr == "" {
		return Identity{}, invalidToken(errors.New("auth: token missing email claim"))
	}
	return Identity{UserID: userID, Email: emailStr}, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func (s *Service) signAccessToken(userID uuid.UUID, email string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		Subject(userID.String()).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Claim("email", email).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func (s *Service) createSession(ctx context.Context, userID uuid.UUID, userAgent, ip string) (string, time.Time, error) {
	token, hashed, expiresAt, err := s.newRefreshToken()
	if err != nil {
		return "", time.Time{}, err
	}
	err = s.sessions.Create(ctx, Session{
		UserID:    userID,
		TokenHash: hashed,
		UserAgent: strings.TrimSpace(userAgent),
		IP:        strings.TrimSpace(ip),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (s *Service) newRefreshToken() (string, string, time.Time, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return "", "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, hashRefreshToken(token), s.now().Add(s.refreshTTL), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

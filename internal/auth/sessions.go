package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound signals the refresh token matches no stored session.
var ErrSessionNotFound = errors.New("auth: session not found")

// Session is a stored refresh-token session. TokenHash is a sha256 of the
// opaque token handed to the client; the clear token is never persisted.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	UserAgent string
	IP        string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionRepository provides pgxpool-backed access to refresh sessions.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository wires a pgxpool-backed session store.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, s Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	const query = `
		INSERT INTO sessions (id, user_id, token_hash, user_agent, ip, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
	`
	if _, err := r.pool.Exec(ctx, query, s.ID, s.UserID, s.TokenHash, s.UserAgent, s.IP, s.ExpiresAt); err != nil {
		return fmt.Errorf("auth: insert session: %w", err)
	}
	return nil
}

// GetByTokenHash fetches the session a hashed refresh token belongs to.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, hash string) (Session, error) {
	const query = `
		SELECT id, user_id, token_hash, user_agent, ip, expires_at, created_at
		FROM sessions WHERE token_hash = $1
	`
	var s Session
	err := r.pool.QueryRow(ctx, query, hash).Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.IP, &s.ExpiresAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("auth: get session: %w", err)
	}
	return s, nil
}

// Rotate replaces the session's token hash and expiry in place.
func (r *SessionRepository) Rotate(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET token_hash = $2, expires_at = $3 WHERE id = $1`,
		id, hash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("auth: rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteByTokenHash revokes the session matching a hashed refresh token.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, hash string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hash); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// DeleteByUser revokes every session of one user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("auth: delete user sessions: %w", err)
	}
	return nil
}

package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andinotravel/partner-portal/internal/common"
)

// ErrNotFound signals the requested user does not exist.
var ErrNotFound = errors.New("user: not found")

// Repository provides pgxpool-backed access to portal users.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileQuery = `
	SELECT u.id, u.email, u.name, u.password_hash, u.role, u.status, u.agency_id,
		u.can_reserve, u.can_access_mural, u.can_access_exchange,
		u.allowed_destinations, u.created_at, u.updated_at,
		COALESCE(a.commission_rate, 0), COALESCE(a.legal_name, '')
	FROM users u
	LEFT JOIN agencies a ON a.id = u.agency_id
`

// FindByEmail fetches the user joined with its agency commission context.
// Returns (nil, nil) when no user matches: callers must treat absence
// distinctly from storage failure.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	query := profileQuery + ` WHERE LOWER(u.email) = $1`

	profile, err := scanProfile(r.pool.QueryRow(ctx, query, common.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user: query by email: %w", err)
	}
	return &profile, nil
}

// GetByID fetches a user profile by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	query := profileQuery + ` WHERE u.id = $1`

	profile, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user: query by id: %w", err)
	}
	return &profile, nil
}

// List returns all users ordered by creation time, newest first.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	const query = `
		SELECT id, email, name, role, status, agency_id,
			can_reserve, can_access_mural, can_access_exchange,
			allowed_destinations, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("user: list: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0, 32)
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.Name, &u.Role, &u.Status, &u.AgencyID,
			&u.CanReserve, &u.CanAccessMural, &u.CanAccessExchange,
			&u.AllowedDestinations, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("user: scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user: iterate: %w", err)
	}
	return users, nil
}

// Create inserts a new user. Duplicate emails surface as a CONFLICT AppError.
func (r *Repository) Create(ctx context.Context, u User) (uuid.UUID, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	const query = `
		INSERT INTO users (
			id, email, name, password_hash, role, status, agency_id,
			can_reserve, can_access_mural, can_access_exchange,
			allowed_destinations, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
	`
	_, err := r.pool.Exec(ctx, query,
		u.ID, common.NormalizeEmail(u.Email), u.Name, u.PasswordHash, u.Role, u.Status, u.AgencyID,
		u.CanReserve, u.CanAccessMural, u.CanAccessExchange, u.AllowedDestinations,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, common.NewAppError("CONFLICT", "email already registered", http.StatusConflict, err)
		}
		return uuid.Nil, fmt.Errorf("user: insert: %w", err)
	}
	return u.ID, nil
}

// Update rewrites the mutable admin-managed fields of a user.
func (r *Repository) Update(ctx context.Context, u User) error {
	const query = `
		UPDATE users SET
			name = $2, role = $3, status = $4, agency_id = $5,
			can_reserve = $6, can_access_mural = $7, can_access_exchange = $8,
			allowed_destinations = $9, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		u.ID, u.Name, u.Role, u.Status, u.AgencyID,
		u.CanReserve, u.CanAccessMural, u.CanAccessExchange, u.AllowedDestinations,
	)
	if err != nil {
		return fmt.Errorf("user: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPassword replaces the stored password hash.
func (r *Repository) SetPassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("user: set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var (
		p         Profile
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&p.ID, &p.Email, &p.Name, &p.PasswordHash, &p.Role, &p.Status, &p.AgencyID,
		&p.CanReserve, &p.CanAccessMural, &p.CanAccessExchange,
		&p.AllowedDestinations, &createdAt, &updatedAt,
		&p.CommissionRate, &p.AgencyName,
	)
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return p, err
}

package agency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/common"
	"github.com/andinotravel/partner-portal/internal/user"
)

// ErrNotFound signals the requested agency does not exist.
var ErrNotFound = errors.New("agency: not found")

// Repository provides pgxpool-backed access to partner agencies.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const agencyColumns = `id, legal_name, tax_id, contact_email, phone, address,
	status, commission_rate, requested_users, created_at, updated_at`

// Register inserts a pending agency. Duplicate legal names surface as a
// CONFLICT AppError.
func (r *Repository) Register(ctx context.Context, a Agency) (uuid.UUID, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	requested, err := json.Marshal(a.RequestedUsers)
	if err != nil {
		return uuid.Nil, fmt.Errorf("agency: encode requested users: %w", err)
	}
	const query = `
		INSERT INTO agencies (
			id, legal_name, tax_id, contact_email, phone, address,
			status, commission_rate, requested_users, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
	`
	_, err = r.pool.Exec(ctx, query,
		a.ID, a.LegalName, a.TaxID, common.NormalizeEmail(a.ContactEmail), a.Phone, a.Address,
		StatusPending, decimal.Zero, requested,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, common.NewAppError("CONFLICT", "agency already registered", http.StatusConflict, err)
		}
		return uuid.Nil, fmt.Errorf("agency: insert: %w", err)
	}
	return a.ID, nil
}

// GetByID fetches an agency by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Agency, error) {
	query := `SELECT ` + agencyColumns + ` FROM agencies WHERE id = $1`
	a, err := scanAgency(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Agency{}, ErrNotFound
		}
		return Agency{}, fmt.Errorf("agency: get: %w", err)
	}
	return a, nil
}

// List returns agencies filtered by status, or all when status is empty.
func (r *Repository) List(ctx context.Context, status Status) ([]Agency, error) {
	query := `SELECT ` + agencyColumns + ` FROM agencies`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("agency: list: %w", err)
	}
	defer rows.Close()

	agencies := make([]Agency, 0, 16)
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, fmt.Errorf("agency: scan: %w", err)
		}
		agencies = append(agencies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agency: iterate: %w", err)
	}
	return agencies, nil
}

// ApproveAndProvision flips the agency to approved, assigns its commission
// rate, and creates the provisioned user accounts in the same transaction.
// Either everything lands or nothing does.
func (r *Repository) ApproveAndProvision(ctx context.Context, id uuid.UUID, rate decimal.Decimal, users []user.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("agency: begin approve tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE agencies SET status = $2, commission_rate = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, StatusApproved, rate, StatusPending)
	if err != nil {
		return fmt.Errorf("agency: approve: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	const insertUser = `
		INSERT INTO users (
			id, email, name, password_hash, role, status, agency_id,
			can_reserve, can_access_mural, can_access_exchange,
			allowed_destinations, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
	`
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		_, err := tx.Exec(ctx, insertUser,
			u.ID, common.NormalizeEmail(u.Email), u.Name, u.PasswordHash, u.Role, u.Status, id,
			u.CanReserve, u.CanAccessMural, u.CanAccessExchange, u.AllowedDestinations,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return common.NewAppError("CONFLICT", fmt.Sprintf("email %s already registered", u.Email), http.StatusConflict, err)
			}
			return fmt.Errorf("agency: provision user: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Reject marks a pending agency as rejected.
func (r *Repository) Reject(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agencies SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, StatusRejected, StatusPending)
	if err != nil {
		return fmt.Errorf("agency: reject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCommission changes the commission rate of an approved agency.
func (r *Repository) UpdateCommission(ctx context.Context, id uuid.UUID, rate decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agencies SET commission_rate = $2, updated_at = now() WHERE id = $1
	`, id, rate)
	if err != nil {
		return fmt.Errorf("agency: update commission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAgency(row pgx.Row) (Agency, error) {
	var (
		a         Agency
		requested []byte
	)
	err := row.Scan(
		&a.ID, &a.LegalName, &a.TaxID, &a.ContactEmail, &a.Phone, &a.Address,
		&a.Status, &a.CommissionRate, &requested, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return Agency{}, err
	}
	if len(requested) > 0 {
		if err := json.Unmarshal(requested, &a.RequestedUsers); err != nil {
			return Agency{}, fmt.Errorf("decode requested users: %w", err)
		}
	}
	return a, nil
}

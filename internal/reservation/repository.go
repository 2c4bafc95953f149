package reservation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides pgxpool-backed access to reservations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create persists a new reservation and returns its id.
func (r *Repository) Create(ctx context.Context, res Reservation) (uuid.UUID, error) {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	const query = `
		INSERT INTO reservations (
			id, product_name, destination, agent_name, agent_email, agency_id,
			travel_date, adults, children, infants, pax_names,
			total, commission, status, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now())
	`
	_, err := r.pool.Exec(ctx, query,
		res.ID, res.ProductName, res.Destination, res.AgentName, res.AgentEmail, res.AgencyID,
		res.TravelDate, res.Adults, res.Children, res.Infants, res.PaxNames,
		res.Total, res.Commission, res.Status,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("reservation: insert: %w", err)
	}
	return res.ID, nil
}

// ListByAgency returns reservations submitted on behalf of one agency.
func (r *Repository) ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]Reservation, error) {
	const query = reservationSelect + ` WHERE agency_id = $1 ORDER BY created_at DESC`
	return r.query(ctx, query, agencyID)
}

// ListAll returns every reservation, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Reservation, error) {
	const query = reservationSelect + ` ORDER BY created_at DESC`
	return r.query(ctx, query)
}

const reservationSelect = `
	SELECT id, product_name, destination, agent_name, agent_email, agency_id,
		travel_date, adults, children, infants, pax_names,
		total, commission, status, created_at
	FROM reservations`

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reservation: list: %w", err)
	}
	defer rows.Close()

	reservations := make([]Reservation, 0, 16)
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(
			&res.ID, &res.ProductName, &res.Destination, &res.AgentName, &res.AgentEmail, &res.AgencyID,
			&res.TravelDate, &res.Adults, &res.Children, &res.Infants, &res.PaxNames,
			&res.Total, &res.Commission, &res.Status, &res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("reservation: scan: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reservation: iterate: %w", err)
	}
	return reservations, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested product does not exist.
var ErrNotFound = errors.New("catalog: product not found")

const productColumns = `id, code, destination, name, category, subcategory,
		pickup_time, return_time, weekdays, restrictions,
		adult_summer, child_summer, infant_summer,
		adult_winter, child_winter, infant_winter, synced_at`

// Repository provides read access to the synced catalog plus the wholesale
// replace path used by the import job. The core treats it as read-only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns the full catalog ordered by destination then name.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY destination ASC, name ASC`, productColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0, 64)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate products: %w", err)
	}
	return products, nil
}

// GetByID fetches a single product by its primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	row := r.pool.QueryRow(ctx, query, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("catalog: query by id: %w", err)
	}
	return product, nil
}

// ReplaceAll overwrites the catalog wholesale inside a single transaction.
// The sync job is the only caller.
func (r *Repository) ReplaceAll(ctx context.Context, products []Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("catalog: begin replace: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("catalog: clear products: %w", err)
	}

	const insert = `
		INSERT INTO products (
			id, code, destination, name, category, subcategory,
			pickup_time, return_time, weekdays, restrictions,
			adult_summer, child_summer, infant_summer,
			adult_winter, child_winter, infant_winter, synced_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`
	for _, p := range products {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if _, err := tx.Exec(ctx, insert,
			p.ID, p.Code, p.Destination, p.Name, p.Category, p.Subcategory,
			p.PickupTime, p.ReturnTime, p.Weekdays, p.Restrictions,
			p.AdultSummer, p.ChildSummer, p.InfantSummer,
			p.AdultWinter, p.ChildWinter, p.InfantWinter, p.SyncedAt,
		); err != nil {
			return fmt.Errorf("catalog: insert product %s: %w", p.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("catalog: commit replace: %w", err)
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Code, &p.Destination, &p.Name, &p.Category, &p.Subcategory,
		&p.PickupTime, &p.ReturnTime, &p.Weekdays, &p.Restrictions,
		&p.AdultSummer, &p.ChildSummer, &p.InfantSummer,
		&p.AdultWinter, &p.ChildWinter, &p.InfantWinter, &p.SyncedAt,
	)
	return p, err
}

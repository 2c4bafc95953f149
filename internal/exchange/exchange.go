package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/common"
)

// Rate is a reference exchange rate row on the daily board. Buy and Sell are
// quoted against the base currency of the rate's currency pair.
type Rate struct {
	Currency  string          `json:"currency"`
	Buy       decimal.Decimal `json:"buy"`
	Sell      decimal.Decimal `json:"sell"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Repository provides pgxpool-backed access to the exchange board.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all board rates ordered by currency code.
func (r *Repository) List(ctx context.Context) ([]Rate, error) {
	const query = `SELECT currency, buy, sell, updated_at FROM exchange_rates ORDER BY currency`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("exchange: list: %w", err)
	}
	defer rows.Close()

	rates := make([]Rate, 0, 8)
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.Currency, &rate.Buy, &rate.Sell, &rate.UpdatedAt); err != nil {
			return nil, fmt.Errorf("exchange: scan: %w", err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("exchange: iterate: %w", err)
	}
	return rates, nil
}

// Upsert writes a board rate keyed by currency code.
func (r *Repository) Upsert(ctx context.Context, rate Rate) error {
	const query = `
		INSERT INTO exchange_rates (currency, buy, sell, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (currency)
		DO UPDATE SET buy = EXCLUDED.buy, sell = EXCLUDED.sell, updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, strings.ToUpper(rate.Currency), rate.Buy, rate.Sell); err != nil {
		return fmt.Errorf("exchange: upsert: %w", err)
	}
	return nil
}

// Store is the persistence surface the handlers depend on.
type Store interface {
	List(ctx context.Context) ([]Rate, error)
	Upsert(ctx context.Context, rate Rate) error
}

// Handler serves the board to entitled callers. The exchange gate itself is
// enforced at the router.
type Handler struct {
	Store Store
}

// List returns the current board.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rates, err := h.Store.List(r.Context())
	if err != nil {
		common.WriteError(w, common.ErrStorage(err))
		return
	}
	common.JSONData(w, http.StatusOK, rates)
}

// Upsert writes one board rate (admin only, enforced at the router).
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var rate Rate
	if err := json.NewDecoder(r.Body).Decode(&rate); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	if err := validateRate(rate); err != nil {
		common.WriteError(w, common.ErrValidation(err.Error(), nil))
		return
	}
	if err := h.Store.Upsert(r.Context(), rate); err != nil {
		common.WriteError(w, common.ErrStorage(err))
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"updated": true})
}

func validateRate(rate Rate) error {
	code := strings.TrimSpace(rate.Currency)
	if len(code) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	if rate.Buy.IsNegative() || rate.Sell.IsNegative() {
		return errors.New("rates must not be negative")
	}
	return nil
}

package tariff

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andinotravel/partner-portal/internal/capability"
	"github.com/andinotravel/partner-portal/internal/catalog"
	"github.com/andinotravel/partner-portal/internal/common"
)

// productProvider is the catalog read surface the service depends on.
type productProvider interface {
	List(ctx context.Context) ([]catalog.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

// Service assembles the priced tariff for a caller: raw snapshot from cache
// or Postgres, destination filtering, then per-caller projection.
type Service struct {
	Products productProvider
	Cache    *catalog.Cache
	Logger   zerolog.Logger
}

// ListForCaller returns the tariff visible to the caller, each product
// projected against the caller's commission rate.
func (s *Service) ListForCaller(ctx context.Context, caps *capability.Capabilities) ([]AgencyProduct, error) {
	if caps == nil {
		return nil, common.ErrUnauthenticated()
	}
	products, err := s.loadProducts(ctx)
	if err != nil {
		return nil, common.ErrStorage(err)
	}
	products = FilterDestinations(products, caps.AllowedDestinations)

	projected := make([]AgencyProduct, 0, len(products))
	for _, p := range products {
		projected = append(projected, Project(p, caps.CommissionRate))
	}
	return projected, nil
}

// GetForCaller returns one projected product, honouring the caller's
// destination allow list.
func (s *Service) GetForCaller(ctx context.Context, caps *capability.Capabilities, id uuid.UUID) (AgencyProduct, error) {
	if caps == nil {
		return AgencyProduct{}, common.ErrUnauthenticated()
	}
	product, err := s.Products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return AgencyProduct{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, err)
		}
		return AgencyProduct{}, common.ErrStorage(err)
	}
	if visible := FilterDestinations([]catalog.Product{product}, caps.AllowedDestinations); len(visible) == 0 {
		return AgencyProduct{}, common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, nil)
	}
	return Project(product, caps.CommissionRate), nil
}

func (s *Service) loadProducts(ctx context.Context) ([]catalog.Product, error) {
	if s.Cache != nil {
		var cached []catalog.Product
		ok, err := s.Cache.GetJSON(ctx, catalog.ListCacheKey, &cached)
		if err != nil {
			s.Logger.Warn().Err(err).Msg("tariff cache read failed")
		}
		if err == nil && ok {
			return cached, nil
		}
	}
	products, err := s.Products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tariff: %w", err)
	}
	if s.Cache != nil {
		if err := s.Cache.SetJSON(ctx, catalog.ListCacheKey, products); err != nil {
			s.Logger.Warn().Err(err).Msg("tariff cache write failed")
		}
	}
	return products, nil
}

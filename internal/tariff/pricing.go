package tariff

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/catalog"
)

var one = decimal.NewFromInt(1)

// NetPrice derives the agency-cost price from a gross sale price and a
// commission rate: round(sale * (1 - rate), 2), half up. The rate is expected
// in [0, 1] but is not validated here; the formula is a pure arithmetic
// contract and callers own input validation.
func NetPrice(sale, commissionRate decimal.Decimal) decimal.Decimal {
	return sale.Mul(one.Sub(commissionRate)).Round(2)
}

// AgencyProduct is the caller-facing projection of a catalog product: every
// gross price is paired with its net counterpart for the caller's commission
// rate. Recomputed on every read, never persisted.
type AgencyProduct struct {
	catalog.Product
	NetAdultSummer  decimal.Decimal `json:"netAdultSummer"`
	NetChildSummer  decimal.Decimal `json:"netChildSummer"`
	NetInfantSummer decimal.Decimal `json:"netInfantSummer"`
	NetAdultWinter  decimal.Decimal `json:"netAdultWinter"`
	NetChildWinter  decimal.Decimal `json:"netChildWinter"`
	NetInfantWinter decimal.Decimal `json:"netInfantWinter"`
}

// Project derives the full agency view of a product for one commission rate.
// The source product is shared across callers and is never mutated.
func Project(p catalog.Product, commissionRate decimal.Decimal) AgencyProduct {
	return AgencyProduct{
		Product:         p,
		NetAdultSummer:  NetPrice(p.AdultSummer, commissionRate),
		NetChildSummer:  NetPrice(p.ChildSummer, commissionRate),
		NetInfantSummer: NetPrice(p.InfantSummer, commissionRate),
		NetAdultWinter:  NetPrice(p.AdultWinter, commissionRate),
		NetChildWinter:  NetPrice(p.ChildWinter, commissionRate),
		NetInfantWinter: NetPrice(p.InfantWinter, commissionRate),
	}
}

// FilterDestinations keeps only products whose destination is in the allow
// list, compared trimmed and case-insensitively. An empty allow list means
// every destination is visible.
func FilterDestinations(products []catalog.Product, allowed []string) []catalog.Product {
	if len(allowed) == 0 {
		return products
	}
	allowSet := make(map[string]struct{}, len(allowed))
	for _, destination := range allowed {
		key := strings.ToLower(strings.TrimSpace(destination))
		if key != "" {
			allowSet[key] = struct{}{}
		}
	}
	if len(allowSet) == 0 {
		return products
	}
	filtered := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if _, ok := allowSet[strings.ToLower(strings.TrimSpace(p.Destination))]; ok {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineItem is one cart entry: a product reference with season-resolved sale
// prices and pax counts. Callers pick summer or winter prices before building
// the line item; aggregation is season-agnostic.
type LineItem struct {
	ProductID   string          `json:"productId,omitempty"`
	ProductName string          `json:"productName"`
	Destination string          `json:"destination,omitempty"`
	SaleAdult   decimal.Decimal `json:"saleAdult"`
	SaleChild   decimal.Decimal `json:"saleChild"`
	SaleInfant  decimal.Decimal `json:"saleInfant"`
	Adults      int             `json:"adults"`
	Children    int             `json:"children"`
	Infants     int             `json:"infants"`
}

// Validate enforces the line item invariants. All-zero pax counts are allowed
// and simply contribute nothing.
func (li LineItem) Validate() error {
	if li.Adults < 0 || li.Children < 0 || li.Infants < 0 {
		return fmt.Errorf("pax counts must not be negative")
	}
	return nil
}

// Subtotal is the gross amount this line contributes.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.SaleAdult.Mul(decimal.NewFromInt(int64(li.Adults))).
		Add(li.SaleChild.Mul(decimal.NewFromInt(int64(li.Children)))).
		Add(li.SaleInfant.Mul(decimal.NewFromInt(int64(li.Infants))))
}

// Totals aggregates a cart into gross, commission, and net amounts.
type Totals struct {
	Total      decimal.Decimal `json:"total"`
	Commission decimal.Decimal `json:"commission"`
	Net        decimal.Decimal `json:"net"`
}

// Aggregate computes cart totals for a commission rate. Commission and net
// are each rounded to cents independently from the exact total, so
// commission + net may drift from total by at most one cent; that slack is
// expected and never auto-corrected. An empty cart yields exact zeros.
func Aggregate(items []LineItem, commissionRate decimal.Decimal) Totals {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	rawCommission := total.Mul(commissionRate)
	return Totals{
		Total:      total.Round(2),
		Commission: rawCommission.Round(2),
		Net:        total.Sub(rawCommission).Round(2),
	}
}

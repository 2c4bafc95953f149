package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is an immutable-per-sync snapshot of a tour as delivered by the
// external feed. Prices are gross sale prices per pax category and season;
// commission-adjusted views are derived per caller and never stored here.
type Product struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Destination  string          `json:"destination"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Subcategory  string          `json:"subcategory,omitempty"`
	PickupTime   string          `json:"pickupTime,omitempty"`
	ReturnTime   string          `json:"returnTime,omitempty"`
	Weekdays     []string        `json:"weekdays,omitempty"`
	Restrictions string          `json:"restrictions,omitempty"`
	AdultSummer  decimal.Decimal `json:"adultSummer"`
	ChildSummer  decimal.Decimal `json:"childSummer"`
	InfantSummer decimal.Decimal `json:"infantSummer"`
	AdultWinter  decimal.Decimal `json:"adultWinter"`
	ChildWinter  decimal.Decimal `json:"childWinter"`
	InfantWinter decimal.Decimal `json:"infantWinter"`
	SyncedAt     time.Time       `json:"syncedAt"`
}

package reservation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusPreReservation is the fixed initial status of every intake. Later
// lifecycle transitions are handled by the back office, outside the portal.
const StatusPreReservation = "pre_reservation"

// Reservation is a persisted reservation request. Agent identity is injected
// server-side from the resolved caller; it is never client-supplied.
type Reservation struct {
	ID          uuid.UUID       `json:"id"`
	ProductName string          `json:"productName"`
	Destination string          `json:"destination"`
	AgentName   string          `json:"agentName"`
	AgentEmail  string          `json:"agentEmail"`
	AgencyID    *uuid.UUID      `json:"agencyId,omitempty"`
	TravelDate  time.Time       `json:"travelDate"`
	Adults      int             `json:"adults"`
	Children    int             `json:"children"`
	Infants     int             `json:"infants"`
	PaxNames    []string        `json:"paxNames,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Commission  decimal.Decimal `json:"commission"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

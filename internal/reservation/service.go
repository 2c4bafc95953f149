package reservation

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andinotravel/partner-portal/internal/capability"
	"github.com/andinotravel/partner-portal/internal/cart"
	"github.com/andinotravel/partner-portal/internal/common"
)

// Store is the persistence surface the reservation service depends on.
type Store interface {
	Create(ctx context.Context, res Reservation) (uuid.UUID, error)
	ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]Reservation, error)
	ListAll(ctx context.Context) ([]Reservation, error)
}

// Input is the client-supplied part of a reservation request. Agent identity
// and commission are never taken from the payload.
type Input struct {
	ProductName string          `json:"productName" validate:"required"`
	Destination string          `json:"destination"`
	TravelDate  time.Time       `json:"travelDate" validate:"required"`
	Adults      int             `json:"adults" validate:"gte=0"`
	Children    int             `json:"children" validate:"gte=0"`
	Infants     int             `json:"infants" validate:"gte=0"`
	PaxNames    []string        `json:"paxNames"`
	Items       []cart.LineItem `json:"items" validate:"required,min=1,dive"`
}

// Service handles pre-reservation intake.
type Service struct {
	Store    Store
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// Create validates the payload, prices it against the caller's commission
// rate, and persists a pre-reservation attributed to the caller.
func (s *Service) Create(ctx context.Context, caps *capability.Capabilities, input Input) (Reservation, error) {
	if caps == nil {
		return Reservation{}, common.ErrUnauthenticated()
	}
	if !caps.CanReserve {
		return Reservation{}, common.ErrForbidden("reservations are not enabled for this account")
	}
	if err := s.Validate.Struct(input); err != nil {
		return Reservation{}, common.ErrValidation("invalid reservation payload", map[string]string{"error": err.Error()})
	}
	for i, item := range input.Items {
		if err := item.Validate(); err != nil {
			return Reservation{}, common.ErrValidation("invalid cart item", map[string]string{
				"index": strconv.Itoa(i),
				"error": err.Error(),
			})
		}
	}

	totals := cart.Aggregate(input.Items, caps.CommissionRate)
	res := Reservation{
		ProductName: input.ProductName,
		Destination: input.Destination,
		AgentName:   caps.Name,
		AgentEmail:  caps.Email,
		AgencyID:    caps.AgencyID,
		TravelDate:  input.TravelDate,
		Adults:      input.Adults,
		Children:    input.Children,
		Infants:     input.Infants,
		PaxNames:    input.PaxNames,
		Total:       totals.Total,
		Commission:  totals.Commission,
		Status:      StatusPreReservation,
	}
	id, err := s.Store.Create(ctx, res)
	if err != nil {
		return Reservation{}, common.ErrStorage(err)
	}
	res.ID = id
	s.Logger.Info().
		Str("reservation_id", id.String()).
		Str("agent_email", caps.Email).
		Str("total", totals.Total.String()).
		Msg("pre-reservation created")
	return res, nil
}

// ListForCaller returns the caller's agency reservations, or everything for
// internal users.
func (s *Service) ListForCaller(ctx context.Context, caps *capability.Capabilities) ([]Reservation, error) {
	if caps == nil {
		return nil, common.ErrUnauthenticated()
	}
	var (
		rows []Reservation
		err  error
	)
	switch {
	case caps.IsInternal:
		rows, err = s.Store.ListAll(ctx)
	case caps.AgencyID != nil:
		rows, err = s.Store.ListByAgency(ctx, *caps.AgencyID)
	default:
		return []Reservation{}, nil
	}
	if err != nil {
		return nil, common.ErrStorage(err)
	}
	return rows, nil
}

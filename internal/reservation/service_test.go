package reservation

import (
	"context"
	"testing"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/capability"
	"github.com/andinotravel/partner-portal/internal/cart"
)

type stubStore struct {
	created []Reservation
	all     []Reservation
}

func (s *stubStore) Create(_ context.Context, res Reservation) (uuid.UUID, error) {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	s.created = append(s.created, res)
	return res.ID, nil
}

func (s *stubStore) ListByAgency(_ context.Context, agencyID uuid.UUID) ([]Reservation, error) {
	out := []Reservation{}
	for _, r := range s.all {
		if r.AgencyID != nil && *r.AgencyID == agencyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubStore) ListAll(context.Context) ([]Reservation, error) {
	return s.all, nil
}

func testCaps(canReserve bool) *capability.Capabilities {
	agencyID := uuid.New()
	return &capability.Capabilities{
		UserID:         uuid.New(),
		Email:          "agent@partner.example",
		Name:           "Agent Smith",
		AgencyID:       &agencyID,
		AgencyName:     "Patagonia Travel",
		CommissionRate: decimal.RequireFromString("0.10"),
		CanReserve:     canReserve,
	}
}

func validInput() Input {
	return Input{
		ProductName: "Beagle Channel Navigation",
		Destination: "Ushuaia",
		TravelDate:  time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC),
		Adults:      2,
		Items: []cart.LineItem{{
			ProductName: "Beagle Channel Navigation",
			SaleAdult:   decimal.RequireFromString("75.00"),
			Adults:      2,
		}},
	}
}

func newService(store *stubStore) *Service {
	return &Service{Store: store, Validate: validator.New(), Logger: zerolog.Nop()}
}

func TestCreateInjectsCallerIdentity(t *testing.T) {
	store := &stubStore{}
	svc := newService(store)
	caps := testCaps(true)

	res, err := svc.Create(context.Background(), caps, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.AgentName != "Agent Smith" || res.AgentEmail != "agent@partner.example" {
		t.Fatalf("caller identity not injected: %+v", res)
	}
	if res.AgencyID == nil || *res.AgencyID != *caps.AgencyID {
		t.Fatal("agency attribution missing")
	}
	if res.Status != StatusPreReservation {
		t.Fatalf("status = %q, want %q", res.Status, StatusPreReservation)
	}
	if !res.Total.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("total = %s, want 150.00", res.Total)
	}
	if !res.Commission.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("commission = %s, want 15.00", res.Commission)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 persisted reservation, got %d", len(store.created))
	}
}

func TestCreateRequiresReserveCapability(t *testing.T) {
	svc := newService(&stubStore{})
	if _, err := svc.Create(context.Background(), testCaps(false), validInput()); err == nil {
		t.Fatal("caller without reserve capability must be rejected")
	}
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	svc := newService(&stubStore{})
	input := validInput()
	input.Items = nil
	if _, err := svc.Create(context.Background(), testCaps(true), input); err == nil {
		t.Fatal("empty cart must fail validation")
	}
}

func TestCreateRejectsNegativePax(t *testing.T) {
	svc := newService(&stubStore{})
	input := validInput()
	input.Items[0].Adults = -1
	if _, err := svc.Create(context.Background(), testCaps(true), input); err == nil {
		t.Fatal("negative pax must fail validation")
	}
}

func TestListForCallerScoping(t *testing.T) {
	agencyID := uuid.New()
	otherID := uuid.New()
	store := &stubStore{all: []Reservation{
		{ID: uuid.New(), AgencyID: &agencyID},
		{ID: uuid.New(), AgencyID: &otherID},
	}}
	svc := newService(store)

	caps := testCaps(true)
	caps.AgencyID = &agencyID
	mine, err := svc.ListForCaller(context.Background(), caps)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("agency caller should see 1 reservation, got %d", len(mine))
	}

	internal := testCaps(true)
	internal.IsInternal = true
	all, err := svc.ListForCaller(context.Background(), internal)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("internal caller should see everything, got %d", len(all))
	}
}

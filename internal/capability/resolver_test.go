package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/user"
)

type stubUsers struct {
	profile  *user.Profile
	err      error
	gotEmail string
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (*user.Profile, error) {
	s.gotEmail = email
	return s.profile, s.err
}

func activeProfile(role user.Role) *user.Profile {
	agencyID := uuid.New()
	return &user.Profile{
		User: user.User{
			ID:                  uuid.New(),
			Email:               "agent@partner.example",
			Name:                "Agent",
			Role:                role,
			Status:              user.StatusActive,
			AgencyID:            &agencyID,
			CanReserve:          false,
			CanAccessMural:      true,
			CanAccessExchange:   false,
			AllowedDestinations: []string{"Bariloche"},
		},
		CommissionRate: decimal.RequireFromString("0.10"),
		AgencyName:     "Patagonia Travel",
	}
}

func TestResolveUnknownEmailIsNilNil(t *testing.T) {
	r := Resolver{Users: &stubUsers{profile: nil}}
	caps, err := r.Resolve(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caps != nil {
		t.Fatalf("unknown user must resolve to nil capabilities, got %+v", caps)
	}
}

func TestResolveInactiveUserIsNilNil(t *testing.T) {
	profile := activeProfile(user.RolePartnerAgency)
	profile.Status = user.StatusInactive
	r := Resolver{Users: &stubUsers{profile: profile}}

	caps, err := r.Resolve(context.Background(), profile.Email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caps != nil {
		t.Fatal("inactive user must resolve to nil capabilities")
	}
}

func TestResolveStorageErrorIsNotNilNil(t *testing.T) {
	r := Resolver{Users: &stubUsers{err: errors.New("connection refused")}}
	caps, err := r.Resolve(context.Background(), "agent@partner.example")
	if err == nil {
		t.Fatal("storage failure must surface as an error, not as absence")
	}
	if caps != nil {
		t.Fatal("no capabilities on storage failure")
	}
}

func TestResolvePartnerFlagsRespected(t *testing.T) {
	profile := activeProfile(user.RolePartnerAgency)
	r := Resolver{Users: &stubUsers{profile: profile}}

	caps, err := r.Resolve(context.Background(), profile.Email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caps.CanReserve {
		t.Fatal("partner without reserve flag must not reserve")
	}
	if !caps.CanAccessMural {
		t.Fatal("mural flag lost in resolution")
	}
	if caps.CanAccessExchange {
		t.Fatal("exchange flag invented in resolution")
	}
	if caps.IsInternal || caps.IsAdmin {
		t.Fatal("partner agency resolved as internal")
	}
	if !caps.CommissionRate.Equal(decimal.RequireFromString("0.10")) {
		t.Fatalf("commission rate = %s, want 0.10", caps.CommissionRate)
	}
	if caps.AgencyName != "Patagonia Travel" {
		t.Fatalf("agency name = %q", caps.AgencyName)
	}
}

func TestResolveInternalRolesOverrideFlags(t *testing.T) {
	for _, role := range []user.Role{user.RoleAdmin, user.RoleInternalSeller} {
		profile := activeProfile(role)
		profile.CanReserve = false
		profile.CanAccessMural = false
		profile.CanAccessExchange = false
		r := Resolver{Users: &stubUsers{profile: profile}}

		caps, err := r.Resolve(context.Background(), profile.Email)
		if err != nil {
			t.Fatalf("role %s: unexpected error: %v", role, err)
		}
		if !caps.CanReserve || !caps.CanAccessMural || !caps.CanAccessExchange {
			t.Fatalf("role %s: internal override missing: %+v", role, caps)
		}
		if !caps.IsInternal {
			t.Fatalf("role %s: not marked internal", role)
		}
		if wantAdmin := role == user.RoleAdmin; caps.IsAdmin != wantAdmin {
			t.Fatalf("role %s: IsAdmin = %v", role, caps.IsAdmin)
		}
	}
}

func TestResolveNormalizesEmail(t *testing.T) {
	stub := &stubUsers{profile: activeProfile(user.RolePartnerAgency)}
	r := Resolver{Users: stub}

	if _, err := r.Resolve(context.Background(), "  Agent@Partner.Example  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.gotEmail != "agent@partner.example" {
		t.Fatalf("lookup email = %q, want normalized form", stub.gotEmail)
	}
}

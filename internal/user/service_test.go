package user

import (
	"context"
	"testing"

	"github.com/alexedwards/argon2id"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type stubStore struct {
	users map[uuid.UUID]User
}

func newStubStore() *stubStore {
	return &stubStore{users: map[uuid.UUID]User{}}
}

func (s *stubStore) List(context.Context) ([]User, error) {
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *stubStore) GetByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Profile{User: u}, nil
}

func (s *stubStore) Create(_ context.Context, u User) (uuid.UUID, error) {
	u.ID = uuid.New()
	s.users[u.ID] = u
	return u.ID, nil
}

func (s *stubStore) Update(_ context.Context, u User) error {
	existing, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	u.Email = existing.Email
	u.PasswordHash = existing.PasswordHash
	s.users[u.ID] = u
	return nil
}

func (s *stubStore) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func newService(store Store) *Service {
	return &Service{Store: store, Validate: validator.New(), Logger: zerolog.Nop()}
}

func TestCreateHashesPassword(t *testing.T) {
	store := newStubStore()
	svc := newService(store)

	id, err := svc.Create(context.Background(), CreateInput{
		Email:    "seller@andino.example",
		Name:     "Seller",
		Password: "hunter2hunter2",
		Role:     RoleInternalSeller,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	u := store.users[id]
	if u.PasswordHash == "hunter2hunter2" {
		t.Fatal("password stored in clear")
	}
	ok, err := argon2id.ComparePasswordAndHash("hunter2hunter2", u.PasswordHash)
	if err != nil || !ok {
		t.Fatal("stored hash does not verify")
	}
	if u.Status != StatusActive {
		t.Fatalf("new user status = %s, want active", u.Status)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc := newService(newStubStore())

	cases := map[string]CreateInput{
		"missing email": {Name: "x", Password: "longenough", Role: RoleAdmin},
		"bad email":     {Email: "nope", Name: "x", Password: "longenough", Role: RoleAdmin},
		"short pass":    {Email: "a@b.example", Name: "x", Password: "short", Role: RoleAdmin},
		"unknown role":  {Email: "a@b.example", Name: "x", Password: "longenough", Role: Role("superuser")},
	}
	for name, input := range cases {
		if _, err := svc.Create(context.Background(), input); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCreateRejectsMalformedAgencyID(t *testing.T) {
	svc := newService(newStubStore())
	bad := "not-a-uuid"
	_, err := svc.Create(context.Background(), CreateInput{
		Email:    "a@b.example",
		Name:     "x",
		Password: "longenough",
		Role:     RolePartnerAgency,
		AgencyID: &bad,
	})
	if err == nil {
		t.Fatal("malformed agency id must fail")
	}
}

func TestUpdateUnknownUser(t *testing.T) {
	svc := newService(newStubStore())
	err := svc.Update(context.Background(), uuid.New(), UpdateInput{
		Name:   "x",
		Role:   RoleAdmin,
		Status: StatusActive,
	})
	if err == nil {
		t.Fatal("updating a missing user must fail")
	}
}

func TestUpdateRewritesCapabilityFlags(t *testing.T) {
	store := newStubStore()
	svc := newService(store)
	id, err := svc.Create(context.Background(), CreateInput{
		Email:      "agent@partner.example",
		Name:       "Agent",
		Password:   "longenough",
		Role:       RolePartnerAgency,
		CanReserve: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.Update(context.Background(), id, UpdateInput{
		Name:                "Agent",
		Role:                RolePartnerAgency,
		Status:              StatusInactive,
		CanAccessMural:      true,
		AllowedDestinations: []string{"Bariloche"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	u := store.users[id]
	if u.CanReserve {
		t.Fatal("reserve flag must be cleared by rewrite")
	}
	if !u.CanAccessMural || u.Status != StatusInactive {
		t.Fatalf("update not applied: %+v", u)
	}
	if len(u.AllowedDestinations) != 1 || u.AllowedDestinations[0] != "Bariloche" {
		t.Fatalf("destinations not applied: %v", u.AllowedDestinations)
	}
}

func TestResetPasswordLength(t *testing.T) {
	store := newStubStore()
	svc := newService(store)
	id, err := svc.Create(context.Background(), CreateInput{
		Email:    "agent@partner.example",
		Name:     "Agent",
		Password: "longenough",
		Role:     RolePartnerAgency,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.ResetPassword(context.Background(), id, "short"); err == nil {
		t.Fatal("short password must be rejected")
	}
	if err := svc.ResetPassword(context.Background(), id, "a fresh passphrase"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	ok, err := argon2id.ComparePasswordAndHash("a fresh passphrase", store.users[id].PasswordHash)
	if err != nil || !ok {
		t.Fatal("new password does not verify")
	}
}

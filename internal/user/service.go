package user

import (
	"context"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andinotravel/partner-portal/internal/common"
)

// Store is the persistence surface the user admin service depends on.
type Store interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Create(ctx context.Context, u User) (uuid.UUID, error)
	Update(ctx context.Context, u User) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
}

// CreateInput is the admin payload for creating a user directly, outside the
// agency approval flow.
type CreateInput struct {
	Email               string   `json:"email" validate:"required,email"`
	Name                string   `json:"name" validate:"required"`
	Password            string   `json:"password" validate:"required,min=8"`
	Role                Role     `json:"role" validate:"required"`
	AgencyID            *string  `json:"agencyId"`
	CanReserve          bool     `json:"canReserve"`
	CanAccessMural      bool     `json:"canAccessMural"`
	CanAccessExchange   bool     `json:"canAccessExchange"`
	AllowedDestinations []string `json:"allowedDestinations"`
}

// UpdateInput is the admin payload for rewriting a user's mutable fields.
type UpdateInput struct {
	Name                string   `json:"name" validate:"required"`
	Role                Role     `json:"role" validate:"required"`
	Status              Status   `json:"status" validate:"required"`
	AgencyID            *string  `json:"agencyId"`
	CanReserve          bool     `json:"canReserve"`
	CanAccessMural      bool     `json:"canAccessMural"`
	CanAccessExchange   bool     `json:"canAccessExchange"`
	AllowedDestinations []string `json:"allowedDestinations"`
}

// Service handles admin-side user management.
type Service struct {
	Store    Store
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.Store.List(ctx)
	if err != nil {
		return nil, common.ErrStorage(err)
	}
	return users, nil
}

// Create provisions a user with an admin-chosen password.
func (s *Service) Create(ctx context.Context, input CreateInput) (uuid.UUID, error) {
	if err := s.Validate.Struct(input); err != nil {
		return uuid.Nil, common.ErrValidation("invalid user payload", map[string]string{"error": err.Error()})
	}
	if !input.Role.Valid() {
		return uuid.Nil, common.ErrValidation("unknown role", nil)
	}
	agencyID, err := parseOptionalID(input.AgencyID)
	if err != nil {
		return uuid.Nil, common.ErrValidation("invalid agency id", nil)
	}
	hash, err := argon2id.CreateHash(input.Password, argon2id.DefaultParams)
	if err != nil {
		return uuid.Nil, common.ErrStorage(err)
	}
	id, err := s.Store.Create(ctx, User{
		Email:               input.Email,
		Name:                input.Name,
		PasswordHash:        hash,
		Role:                input.Role,
		Status:              StatusActive,
		AgencyID:            agencyID,
		CanReserve:          input.CanReserve,
		CanAccessMural:      input.CanAccessMural,
		CanAccessExchange:   input.CanAccessExchange,
		AllowedDestinations: input.AllowedDestinations,
	})
	if err != nil {
		if common.IsAppError(err) {
			return uuid.Nil, err
		}
		return uuid.Nil, common.ErrStorage(err)
	}
	s.Logger.Info().Str("user_id", id.String()).Str("role", string(input.Role)).Msg("user created")
	return id, nil
}

// Update rewrites a user's admin-managed fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) error {
	if err := s.Validate.Struct(input); err != nil {
		return common.ErrValidation("invalid user payload", map[string]string{"error": err.Error()})
	}
	if !input.Role.Valid() {
		return common.ErrValidation("unknown role", nil)
	}
	agencyID, err := parseOptionalID(input.AgencyID)
	if err != nil {
		return common.ErrValidation("invalid agency id", nil)
	}
	err = s.Store.Update(ctx, User{
		ID:                  id,
		Name:                input.Name,
		Role:                input.Role,
		Status:              input.Status,
		AgencyID:            agencyID,
		CanReserve:          input.CanReserve,
		CanAccessMural:      input.CanAccessMural,
		CanAccessExchange:   input.CanAccessExchange,
		AllowedDestinations: input.AllowedDestinations,
	})
	if err != nil {
		if err == ErrNotFound {
			return common.ErrValidation("user does not exist", nil)
		}
		return common.ErrStorage(err)
	}
	return nil
}

// ResetPassword replaces a user's password.
func (s *Service) ResetPassword(ctx context.Context, id uuid.UUID, password string) error {
	if len(password) < 8 {
		return common.ErrValidation("password must be at least 8 characters", nil)
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return common.ErrStorage(err)
	}
	if err := s.Store.SetPassword(ctx, id, hash); err != nil {
		if err == ErrNotFound {
			return common.ErrValidation("user does not exist", nil)
		}
		return common.ErrStorage(err)
	}
	return nil
}

func parseOptionalID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

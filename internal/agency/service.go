package agency

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/common"
	"github.com/andinotravel/partner-portal/internal/user"
)

// Store is the persistence surface the agency service depends on.
type Store interface {
	Register(ctx context.Context, a Agency) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (Agency, error)
	List(ctx context.Context, status Status) ([]Agency, error)
	ApproveAndProvision(ctx context.Context, id uuid.UUID, rate decimal.Decimal, users []user.User) error
	Reject(ctx context.Context, id uuid.UUID) error
	UpdateCommission(ctx context.Context, id uuid.UUID, rate decimal.Decimal) error
}

// RegisterInput is the public registration payload.
type RegisterInput struct {
	LegalName      string          `json:"legalName" validate:"required"`
	TaxID          string          `json:"taxId" validate:"required"`
	ContactEmail   string          `json:"contactEmail" validate:"required,email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	RequestedUsers []RequestedUser `json:"requestedUsers" validate:"required,min=1,dive"`
}

// Credential is a provisioned account with its one-time password. It is
// returned to the approving admin exactly once and never stored in clear.
type Credential struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service handles agency onboarding and commission management.
type Service struct {
	Store    Store
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// Register files a pending agency application.
func (s *Service) Register(ctx context.Context, input RegisterInput) (uuid.UUID, error) {
	if err := s.Validate.Struct(input); err != nil {
		return uuid.Nil, common.ErrValidation("invalid registration payload", map[string]string{"error": err.Error()})
	}
	id, err := s.Store.Register(ctx, Agency{
		LegalName:      input.LegalName,
		TaxID:          input.TaxID,
		ContactEmail:   input.ContactEmail,
		Phone:          input.Phone,
		Address:        input.Address,
		RequestedUsers: input.RequestedUsers,
	})
	if err != nil {
		if common.IsAppError(err) {
			return uuid.Nil, err
		}
		return uuid.Nil, common.ErrStorage(err)
	}
	s.Logger.Info().Str("agency_id", id.String()).Str("legal_name", input.LegalName).Msg("agency registration received")
	return id, nil
}

// Approve flips a pending agency to approved, assigns its commission rate,
// and provisions the requested user accounts with one-time passwords.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, rate decimal.Decimal) ([]Credential, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, common.ErrValidation("commission rate must be in [0, 1)", nil)
	}
	a, err := s.Store.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, common.ErrValidation("agency does not exist", nil)
		}
		return nil, common.ErrStorage(err)
	}
	if a.Status != StatusPending {
		return nil, common.ErrValidation("agency is not pending approval", nil)
	}

	credentials := make([]Credential, 0, len(a.RequestedUsers))
	users := make([]user.User, 0, len(a.RequestedUsers))
	for _, requested := range a.RequestedUsers {
		password, err := generatePassword()
		if err != nil {
			return nil, fmt.Errorf("agency: generate password: %w", err)
		}
		hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
		if err != nil {
			return nil, fmt.Errorf("agency: hash password: %w", err)
		}
		users = append(users, user.User{
			Email:          requested.Email,
			Name:           requested.Name,
			PasswordHash:   hash,
			Role:           user.RolePartnerAgency,
			Status:         user.StatusActive,
			CanReserve:     true,
			CanAccessMural: true,
		})
		credentials = append(credentials, Credential{
			Name:     requested.Name,
			Email:    common.NormalizeEmail(requested.Email),
			Password: password,
		})
	}

	if err := s.Store.ApproveAndProvision(ctx, id, rate, users); err != nil {
		if common.IsAppError(err) {
			return nil, err
		}
		return nil, common.ErrStorage(err)
	}
	s.Logger.Info().
		Str("agency_id", id.String()).
		Int("users", len(users)).
		Str("commission_rate", rate.String()).
		Msg("agency approved")
	return credentials, nil
}

// Reject declines a pending application.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) error {
	if err := s.Store.Reject(ctx, id); err != nil {
		if err == ErrNotFound {
			return common.ErrValidation("agency is not pending approval", nil)
		}
		return common.ErrStorage(err)
	}
	return nil
}

// SetCommission changes an agency's commission rate. Takes effect on the next
// capability resolution; already-issued quotes are not recomputed.
func (s *Service) SetCommission(ctx context.Context, id uuid.UUID, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return common.ErrValidation("commission rate must be in [0, 1)", nil)
	}
	if err := s.Store.UpdateCommission(ctx, id, rate); err != nil {
		if err == ErrNotFound {
			return common.ErrValidation("agency does not exist", nil)
		}
		return common.ErrStorage(err)
	}
	return nil
}

// List returns agencies, optionally filtered by status.
func (s *Service) List(ctx context.Context, status Status) ([]Agency, error) {
	agencies, err := s.Store.List(ctx, status)
	if err != nil {
		return nil, common.ErrStorage(err)
	}
	return agencies, nil
}

// Get fetches one agency.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Agency, error) {
	a, err := s.Store.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return Agency{}, common.NewAppError("NOT_FOUND", "agency not found", 404, err)
		}
		return Agency{}, common.ErrStorage(err)
	}
	return a, nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package capability

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/common"
	"github.com/andinotravel/partner-portal/internal/user"
)

// Capabilities is the effective permission set resolved for a verified email.
// It is derived fresh on every request and never persisted.
type Capabilities struct {
	UserID              uuid.UUID       `json:"userId"`
	Email               string          `json:"email"`
	Name                string          `json:"name"`
	AgencyID            *uuid.UUID      `json:"agencyId,omitempty"`
	AgencyName          string          `json:"agencyName,omitempty"`
	CommissionRate      decimal.Decimal `json:"commissionRate"`
	CanReserve          bool            `json:"canReserve"`
	CanAccessMural      bool            `json:"canAccessMural"`
	CanAccessExchange   bool            `json:"canAccessExchange"`
	IsInternal          bool            `json:"isInternal"`
	IsAdmin             bool            `json:"isAdmin"`
	AllowedDestinations []string        `json:"allowedDestinations,omitempty"`
}

// UserSource is the single lookup collaborator the resolver depends on.
// Implementations return (nil, nil) when no user matches.
type UserSource interface {
	FindByEmail(ctx context.Context, email string) (*user.Profile, error)
}

// Resolver derives effective capabilities from the stored user record.
type Resolver struct {
	Users UserSource
}

// Resolve returns the caller's capabilities, or (nil, nil) when the email is
// unknown or the user is not active. Absence means access denied; it is never
// collapsed into a zero-permission capability set. The override for internal
// roles is deliberate: stored flags only gate partner agency users.
func (r Resolver) Resolve(ctx context.Context, email string) (*Capabilities, error) {
	if r.Users == nil {
		return nil, fmt.Errorf("capability: user source not configured")
	}
	profile, err := r.Users.FindByEmail(ctx, common.NormalizeEmail(email))
	if err != nil {
		return nil, common.ErrStorage(err)
	}
	if profile == nil || profile.Status != user.StatusActive {
		return nil, nil
	}

	isInternal := profile.Role == user.RoleAdmin || profile.Role == user.RoleInternalSeller
	caps := &Capabilities{
		UserID:              profile.ID,
		Email:               profile.Email,
		Name:                profile.Name,
		AgencyID:            profile.AgencyID,
		AgencyName:          profile.AgencyName,
		CommissionRate:      profile.CommissionRate,
		CanReserve:          isInternal || profile.CanReserve,
		CanAccessMural:      isInternal || profile.CanAccessMural,
		CanAccessExchange:   isInternal || profile.CanAccessExchange,
		IsInternal:          isInternal,
		IsAdmin:             profile.Role == user.RoleAdmin,
		AllowedDestinations: profile.AllowedDestinations,
	}
	return caps, nil
}

package user

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role enumerates the portal roles. Internal roles (admin, internal seller)
// bypass the per-flag gates partner agency users are subject to.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleInternalSeller Role = "internal_seller"
	RolePartnerAgency  Role = "partner_agency"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInternalSeller, RolePartnerAgency:
		return true
	}
	return false
}

// Status enumerates user lifecycle states.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User is the persisted portal user record. Email is unique and compared
// case-insensitively everywhere.
type User struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	PasswordHash        string     `json:"-"`
	Role                Role       `json:"role"`
	Status              Status     `json:"status"`
	AgencyID            *uuid.UUID `json:"agencyId,omitempty"`
	CanReserve          bool       `json:"canReserve"`
	CanAccessMural      bool       `json:"canAccessMural"`
	CanAccessExchange   bool       `json:"canAccessExchange"`
	AllowedDestinations []string   `json:"allowedDestinations,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Profile joins the user with the commission context of its agency. It is the
// record shape capability resolution consumes: one lookup, one canonical form.
type Profile struct {
	User
	CommissionRate decimal.Decimal
	AgencyName     string
}

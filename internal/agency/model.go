package agency

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status enumerates the onboarding lifecycle of a partner agency.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// RequestedUser is an account the agency asked for during registration. The
// list is held as jsonb until approval provisions real user rows from it.
type RequestedUser struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Agency is a partner agency record. CommissionRate is a fraction (0.10 means
// ten percent) and only becomes meaningful once the agency is approved.
type Agency struct {
	ID             uuid.UUID       `json:"id"`
	LegalName      string          `json:"legalName"`
	TaxID          string          `json:"taxId"`
	ContactEmail   string          `json:"contactEmail"`
	Phone          string          `json:"phone,omitempty"`
	Address        string          `json:"address,omitempty"`
	Status         Status          `json:"status"`
	CommissionRate decimal.Decimal `json:"commissionRate"`
	RequestedUsers []RequestedUser `json:"requestedUsers,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

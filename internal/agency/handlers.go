package agency

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andinotravel/partner-portal/internal/common"
)

// Handler exposes the public registration endpoint.
type Handler struct {
	Svc *Service
}

// Register accepts a new agency application. Unauthenticated by design.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	id, err := h.Svc.Register(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, map[string]any{"id": id, "status": StatusPending})
}

// AdminHandler exposes onboarding management to back-office users.
type AdminHandler struct {
	Svc *Service
}

// List returns agencies, filtered by ?status= when present.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.Svc.List(r.Context(), Status(r.URL.Query().Get("status")))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, agencies)
}

// Get returns one agency.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrValidation("invalid agency id", nil))
		return
	}
	a, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, a)
}

type approveRequest struct {
	CommissionRate decimal.Decimal `json:"commissionRate"`
}

// Approve approves a pending agency and returns the provisioned credentials.
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrValidation("invalid agency id", nil))
		return
	}
	var payload approveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	credentials, err := h.Svc.Approve(r.Context(), id, payload.CommissionRate)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"credentials": credentials})
}

// Reject declines a pending agency.
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrValidation("invalid agency id", nil))
		return
	}
	if err := h.Svc.Reject(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"status": StatusRejected})
}

// SetCommission updates an agency's commission rate.
func (h *AdminHandler) SetCommission(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrValidation("invalid agency id", nil))
		return
	}
	var payload approveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	if err := h.Svc.SetCommission(r.Context(), id, payload.CommissionRate); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"commissionRate": payload.CommissionRate})
}

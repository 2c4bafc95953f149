package reservation

import (
	"encoding/json"
	"net/http"

	"github.com/andinotravel/partner-portal/internal/capability"
	"github.com/andinotravel/partner-portal/internal/common"
)

// Handler wires the reservation service to HTTP.
type Handler struct {
	Svc *Service
}

// Create accepts a pre-reservation request from the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caps, ok := capability.FromContext(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated())
		return
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	res, err := h.Svc.Create(r.Context(), caps, input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, res)
}

// List returns reservations visible to the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caps, ok := capability.FromContext(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated())
		return
	}
	rows, err := h.Svc.ListForCaller(r.Context(), caps)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, rows)
}

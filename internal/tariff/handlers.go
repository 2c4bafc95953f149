package tariff

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/andinotravel/partner-portal/internal/capability"
	"github.com/andinotravel/partner-portal/internal/common"
)

// Handler wires the tariff service to HTTP.
type Handler struct {
	Svc *Service
}

// List returns the tariff priced for the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caps, ok := capability.FromContext(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated())
		return
	}
	products, err := h.Svc.ListForCaller(r.Context(), caps)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, products)
}

// Get returns a single priced product.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caps, ok := capability.FromContext(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated())
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrValidation("invalid product id", nil))
		return
	}
	product, err := h.Svc.GetForCaller(r.Context(), caps, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, product)
}

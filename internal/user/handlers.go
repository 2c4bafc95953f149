package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/andinotravel/partner-portal/internal/common"
)

// AdminHandler exposes user management to back-office users.
type AdminHandler struct {
	Svc *Service
}

// List returns all users.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Svc.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, users)
}

// Create provisions a new user.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	id, err := h.Svc.Create(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, map[string]any{"id": id})
}

// Update rewrites a user's admin-managed fields.
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrValidation("invalid user id", nil))
		return
	}
	var input UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	if err := h.Svc.Update(r.Context(), id, input); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"updated": true})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetPassword replaces a user's password.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrValidation("invalid user id", nil))
		return
	}
	var payload resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	if err := h.Svc.ResetPassword(r.Context(), id, payload.Password); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"updated": true})
}

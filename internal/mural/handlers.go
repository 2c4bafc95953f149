package mural

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/andinotravel/partner-portal/internal/capability"
	"github.com/andinotravel/partner-portal/internal/common"
)

// Handler wires the mural service to HTTP.
type Handler struct {
	Svc *Service
}

// List returns all notices with the caller's read state.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caps, ok := capability.FromContext(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated())
		return
	}
	notices, err := h.Svc.ListForUser(r.Context(), caps.UserID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, notices)
}

// Confirm records a read receipt for the caller.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	caps, ok := capability.FromContext(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated())
		return
	}
	noticeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrValidation("invalid notice id", nil))
		return
	}
	if err := h.Svc.Confirm(r.Context(), caps, noticeID); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"confirmed": true})
}

// Readers lists confirmations for a notice, scoped to the caller's agency
// unless the caller is an admin.
func (h *Handler) Readers(w http.ResponseWriter, r *http.Request) {
	caps, ok := capability.FromContext(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated())
		return
	}
	noticeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrValidation("invalid notice id", nil))
		return
	}
	readers := h.Svc.ReadersOf(r.Context(), noticeID, caps.AgencyID, caps.AgencyName, caps.IsAdmin)
	common.JSONData(w, http.StatusOK, readers)
}

// AdminHandler exposes notice management to back-office users.
type AdminHandler struct {
	Svc *Service
}

type publishRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Pinned bool   `json:"pinned"`
}

// Publish creates a notice.
func (h *AdminHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var payload publishRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	id, err := h.Svc.Publish(r.Context(), payload.Title, payload.Body, payload.Pinned)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, map[string]any{"id": id})
}

// Delete removes a notice.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.ErrValidation("invalid notice id", nil))
		return
	}
	if err := h.Svc.Remove(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"deleted": true})
}

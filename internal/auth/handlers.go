package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/andinotravel/partner-portal/internal/capability"
	"github.com/andinotravel/partner-portal/internal/common"
)

// CapabilityResolver resolves the effective permission set for an email.
type CapabilityResolver interface {
	Resolve(ctx context.Context, email string) (*capability.Capabilities, error)
}

// Handler wires the auth service to HTTP.
type Handler struct {
	Svc      *Service
	Resolver CapabilityResolver
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	result, err := h.Svc.Login(r.Context(), payload.Email, payload.Password, r.UserAgent(), common.ClientIP(r))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, result)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates a refresh token and issues a fresh access token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	result, err := h.Svc.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, result)
}

// Logout revokes the supplied refresh token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var payload refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.ErrValidation("invalid payload", nil))
		return
	}
	if err := h.Svc.Logout(r.Context(), payload.RefreshToken); err != nil {
		common.WriteError(w, common.ErrStorage(err))
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"logged_out": true})
}

// Me returns the caller's resolved capability set. The frontend drives its
// menu and pricing display off this response.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	email, ok := common.Identity(r.Context())
	if !ok {
		common.WriteError(w, common.ErrUnauthenticated())
		return
	}
	caps, err := h.Resolver.Resolve(r.Context(), email)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if caps == nil {
		common.WriteError(w, common.ErrForbidden("account not found or inactive"))
		return
	}
	common.JSONData(w, http.StatusOK, caps)
}

// Package http provides the HTTPS API: certificate registration and login
// plus the profile and todo endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/GophTodo/internal/certgen"
	"github.com/atinyakov/GophTodo/internal/middleware"
	"github.com/atinyakov/GophTodo/internal/models"
	"github.com/atinyakov/GophTodo/internal/service"
)

// ProfileReader looks up the caller's profile.
type ProfileReader interface {
	GetProfile(ctx context.Context, owner models.Identity) (service.ProfileRef, error)
}

// AuthHandler issues client certificates and reports who a certificate belongs to.
type AuthHandler struct {
	// Profiles tells Login whether the caller has initialized a profile.
	Profiles ProfileReader
	// CACertPath and CAKeyPath locate the CA that signs client certificates.
	CACertPath string
	CAKeyPath  string
}

// RegisterRequest represents the JSON payload for certificate registration.
type RegisterRequest struct {
	// Login labels the certificate. It does not determine the identity.
	Login string `json:"login"`
}

// RegisterResponse carries the issued certificate, its key and the identity it maps to.
type RegisterResponse struct {
	Cert     string          `json:"cert"`
	Key      string          `json:"key"`
	Identity models.Identity `json:"identity"`
}

// Register handles POST /api/register. It signs a fresh client certificate
// with the CA; every call yields a new key and therefore a new identity.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Login == "" {
		writeBadRequest(w, "invalid_body", "invalid request")
		return
	}

	ca, err := certgen.LoadAuthority(h.CACertPath, h.CAKeyPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "failed to load CA"})
		return
	}

	issued, err := ca.IssueClient(req.Login)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "failed to generate certificate"})
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{
		Cert:     string(issued.CertPEM),
		Key:      string(issued.KeyPEM),
		Identity: issued.Identity,
	})
}

// LoginResponse reports the authenticated identity.
type LoginResponse struct {
	Status      string          `json:"status"`
	Identity    models.Identity `json:"identity"`
	Initialized bool            `json:"initialized"`
}

// Login handles POST /api/login for a caller presenting a client certificate.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	_, err := h.Profiles.GetProfile(r.Context(), id)
	if err != nil && !errors.Is(err, service.ErrProfileNotFound) {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Status: "ok", Identity: id, Initialized: err == nil})
}

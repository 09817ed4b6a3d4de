package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/facescan/internal/identity"
	"github.com/kozaktomas/facescan/internal/logger"
	"github.com/kozaktomas/facescan/internal/web/middleware"
	"go.uber.org/zap"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	store          identity.Store
	sessionManager *middleware.SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(store identity.Store, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		store:          store,
		sessionManager: sm,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a login or registration response
type LoginResponse struct {
	Success   bool              `json:"success"`
	Account   *identity.Account `json:"account,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	ExpiresAt string            `json:"expires_at,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Register creates an account and logs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	acc, err := h.store.CreateAccount(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, identity.ErrAccountExists):
		respondError(w, http.StatusConflict, "account already exists")
		return
	case errors.Is(err, identity.ErrInvalidAccount):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		respondInternal(w, r, "failed to create account", err)
		return
	}

	logger.FromContext(r.Context()).Info("account registered", zap.String("account_id", acc.ID))
	h.startSession(w, r, http.StatusCreated, acc)
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	acc, err := h.store.VerifyCredential(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		logger.FromContext(r.Context()).Info("login rejected", zap.String("email", sanitizeForLog(req.Email)))
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Error:   "invalid credentials",
		})
		return
	}
	if err != nil {
		respondInternal(w, r, "failed to verify credentials", err)
		return
	}

	h.startSession(w, r, http.StatusOK, acc)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, acc *identity.Account) {
	session, err := h.sessionManager.CreateSession(r.Context(), acc.ID, acc.Email)
	if err != nil {
		respondInternal(w, r, "failed to create session", err)
		return
	}

	h.sessionManager.SetSessionCookie(w, session)

	respondJSON(w, status, LoginResponse{
		Success:   true,
		Account:   acc,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(r.Context(), session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status checks if the user is authenticated by validating the session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Email:         session.Email,
		ExpiresAt:     session.ExpiresAt.Format(time.RFC3339),
	})
}

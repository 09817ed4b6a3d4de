package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/facescan/internal/database/mock"
	"github.com/kozaktomas/facescan/internal/web/middleware"
)

func newAuthHandler() (*AuthHandler, *mock.MockSessionRepository) {
	repo := mock.NewMockSessionRepository()
	return NewAuthHandler(newMockStore(), middleware.NewSessionManager("test-secret", repo)), repo
}

func TestAuthHandler_Register(t *testing.T) {
	h, repo := newAuthHandler()

	recorder := httptest.NewRecorder()
	h.Register(recorder, jsonRequest(t, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"email": "ana@example.com", "password": "password123"}))

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp LoginResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Success || resp.SessionID == "" || resp.Account == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if repo.Len() != 1 {
		t.Errorf("expected session persisted, got %d", repo.Len())
	}
	if len(recorder.Result().Cookies()) == 0 {
		t.Error("expected session cookie")
	}

	// Duplicate email.
	recorder = httptest.NewRecorder()
	h.Register(recorder, jsonRequest(t, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"email": "ANA@example.com", "password": "password456"}))
	assertStatusCode(t, recorder, http.StatusConflict)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		wantMsg string
	}{
		{"missing email", map[string]string{"password": "password123"}, "email is required"},
		{"bad email", map[string]string{"email": "nope", "password": "password123"}, "email must be a valid email address"},
		{"short password", map[string]string{"email": "a@example.com", "password": "short"}, "password must be at least 8 characters long"},
		{"long password", map[string]string{"email": "a@example.com", "password": strings.Repeat("x", 73)}, "password must be at most 72 characters long"},
		{"long multibyte password", map[string]string{"email": "a@example.com", "password": strings.Repeat("ž", 40)}, "invalid account data: password must be at most 72 bytes long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newAuthHandler()
			recorder := httptest.NewRecorder()
			h.Register(recorder, jsonRequest(t, http.MethodPost, "/api/v1/auth/register", tt.body))
			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, tt.wantMsg)
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		h, _ := newAuthHandler()
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
		h.Register(recorder, req)
		assertStatusCode(t, recorder, http.StatusBadRequest)
		assertJSONError(t, recorder, errInvalidRequestBody)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	h, _ := newAuthHandler()
	newAccount(t, h.store, "bob@example.com")

	t.Run("valid", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		h.Login(recorder, jsonRequest(t, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"email": "bob@example.com", "password": "password123"}))
		assertStatusCode(t, recorder, http.StatusOK)

		var resp LoginResponse
		parseJSONResponse(t, recorder, &resp)
		if !resp.Success || resp.SessionID == "" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		h.Login(recorder, jsonRequest(t, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"email": "bob@example.com", "password": "wrong-password"}))
		assertStatusCode(t, recorder, http.StatusUnauthorized)

		var resp LoginResponse
		parseJSONResponse(t, recorder, &resp)
		if resp.Success || resp.Error != "invalid credentials" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})
}

func TestAuthHandler_StatusAndLogout(t *testing.T) {
	h, repo := newAuthHandler()

	recorder := httptest.NewRecorder()
	h.Status(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil))
	var status StatusResponse
	parseJSONResponse(t, recorder, &status)
	if status.Authenticated {
		t.Error("expected unauthenticated status without session")
	}

	acc, _ := h.store.CreateAccount(t.Context(), "cy@example.com", "password123")
	session, err := h.sessionManager.CreateSession(t.Context(), acc.ID, acc.Email)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder = httptest.NewRecorder()
	h.Status(recorder, req)
	parseJSONResponse(t, recorder, &status)
	if !status.Authenticated || status.Email != "cy@example.com" {
		t.Errorf("unexpected status: %+v", status)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder = httptest.NewRecorder()
	h.Logout(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)
	if repo.Len() != 0 {
		t.Error("logout should remove the persisted session")
	}
}

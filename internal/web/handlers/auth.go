package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/facegallery/facegallery/internal/config"
	"github.com/facegallery/facegallery/internal/web/middleware"
)

// AuthHandler gates the gallery behind a shared access code. Weddings hand
// the code out on place cards, so there are no per-user accounts.
type AuthHandler struct {
	config         *config.Config
	sessionManager *middleware.SessionManager
}

func NewAuthHandler(cfg *config.Config, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		config:         cfg,
		sessionManager: sm,
	}
}

type loginRequest struct {
	code string
}

func (l *loginRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal login request: %w", err)
	}
	l.code = raw["code"]
	return nil
}

// LoginResponse represents a login response.
type LoginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Login exchanges the access code for a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.config.Web.AccessCode == "" {
		respondError(w, http.StatusBadRequest, "gallery is open, no login required")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.code == "" {
		respondError(w, http.StatusBadRequest, "access code is required")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.code), []byte(h.config.Web.AccessCode)) != 1 {
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Error:   "invalid access code",
		})
		return
	}

	session, err := h.sessionManager.CreateSession()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.sessionManager.SetSessionCookie(w, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout drops the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response.
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Required      bool   `json:"required"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status reports whether the visitor holds a valid session and whether the
// gallery requires one at all.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Required: h.config.Web.AccessCode != ""}
	if !resp.Required {
		resp.Authenticated = true
		respondJSON(w, http.StatusOK, resp)
		return
	}

	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		resp.Authenticated = true
		resp.ExpiresAt = session.ExpiresAt.Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, resp)
}

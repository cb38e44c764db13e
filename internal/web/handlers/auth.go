package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/web/middleware"
	"go.uber.org/zap"
)

// AuthHandler handles session endpoints
type AuthHandler struct {
	sessionManager *middleware.SessionManager
	profiles       database.ProfileReader
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sm *middleware.SessionManager, profiles database.ProfileReader) *AuthHandler {
	return &AuthHandler{
		sessionManager: sm,
		profiles:       profiles,
	}
}

// ProfileResponse is the public part of a profile. The captured image and
// the descriptor never leave the server.
type ProfileResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Status      string     `json:"verificationStatus,omitempty"`
	VerifiedAt  *time.Time `json:"verifiedAt,omitempty"`
	HasFaceData bool       `json:"hasFaceData"`
}

func newProfileResponse(p *database.UserProfile) *ProfileResponse {
	if p == nil {
		return nil
	}
	resp := &ProfileResponse{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		Status:      p.Status,
		HasFaceData: p.Descriptor() != "",
	}
	if !p.VerifiedAt.IsZero() {
		verified := p.VerifiedAt
		resp.VerifiedAt = &verified
	}
	return resp
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
	ProfileID     string `json:"profile_id,omitempty"`
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
		ProfileID:     session.ProfileID,
		ExpiresAt:     middleware.ToSessionData(session).ExpiresAt,
	})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.ProfileIDFromContext(r.Context())
	if profileID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), profileID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "profile not found")
		return
	case err != nil:
		zap.L().Error("failed to load profile", zap.String("profile_id", sanitizeForLog(profileID)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	respondJSON(w, http.StatusOK, newProfileResponse(profile))
}

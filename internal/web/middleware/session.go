package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/suraksha/internal/constants"
	"github.com/kozaktomas/suraksha/internal/database"
	"go.uber.org/zap"
)

// SessionManager issues signed session cookies backed by a session store.
type SessionManager struct {
	secret []byte
	store  database.SessionStore
	secure bool
	now    func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewSessionManager creates a new session manager
func NewSessionManager(secret string, store database.SessionStore, secure bool) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		zap.L().Warn("WEB_SESSION_SECRET is not set, using the development secret")
		secret = "suraksha-dev-secret-change-in-production"
	}
	return &SessionManager{
		secret: []byte(secret),
		store:  store,
		secure: secure,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
}

// CreateSession creates and stores a new session for a profile
func (sm *SessionManager) CreateSession(ctx context.Context, profileID string) (*database.Session, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := sm.now()
	session := &database.Session{
		ID:        base64.RawURLEncoding.EncodeToString(idBytes),
		ProfileID: profileID,
		CreatedAt: now,
		ExpiresAt: now.Add(constants.SessionDuration),
	}
	if err := sm.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a live session by ID
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) *database.Session {
	session, err := sm.store.GetSession(ctx, sessionID)
	if err != nil {
		zap.L().Warn("session lookup failed", zap.Error(err))
		return nil
	}
	if session == nil || session.Expired(sm.now()) {
		return nil
	}
	return session
}

// DeleteSession removes a session
func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) {
	if err := sm.store.DeleteSession(ctx, sessionID); err != nil {
		zap.L().Warn("session delete failed", zap.Error(err))
	}
}

// SetSessionCookie sets the session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, session *database.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionKey,
		Value:    session.ID + "." + sm.signData(session.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(session.ExpiresAt.Sub(sm.now()).Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SessionKey,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from the signed cookie or,
// failing that, from a bearer token.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *database.Session {
	if cookie, err := r.Cookie(constants.SessionKey); err == nil {
		if sessionID, signature, ok := strings.Cut(cookie.Value, "."); ok && sm.verifySignature(sessionID, signature) {
			if session := sm.GetSession(r.Context(), sessionID); session != nil {
				return session
			}
		}
	}

	if sessionID, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && sessionID != "" {
		return sm.GetSession(r.Context(), sessionID)
	}

	return nil
}

// StartCleanup removes expired sessions every interval until Stop is called.
func (sm *SessionManager) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sm.stop:
				return
			case <-ticker.C:
				n, err := sm.store.DeleteExpiredSessions(context.Background())
				if err != nil {
					zap.L().Warn("expired session cleanup failed", zap.Error(err))
					continue
				}
				if n > 0 {
					zap.L().Debug("removed expired sessions", zap.Int64("count", n))
				}
			}
		}
	}()
}

// Stop ends the cleanup goroutine.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

// signData creates an HMAC signature for data
func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature
func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// SessionData is the public part of a session.
type SessionData struct {
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

// ToSessionData returns the session data for JSON responses
func ToSessionData(s *database.Session) SessionData {
	return SessionData{
		SessionID: s.ID,
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

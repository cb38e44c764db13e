package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/suraksha/internal/constants"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/database/mock"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *mock.MockSessionStore) {
	t.Helper()
	store := mock.NewMockSessionStore()
	sm := NewSessionManager("test-secret", store, false)
	t.Cleanup(sm.Stop)
	return sm, store
}

func TestSessionManager_CreateSession(t *testing.T) {
	sm, store := newTestSessionManager(t)

	session, err := sm.CreateSession(context.Background(), "profile-1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if session.ID == "" {
		t.Error("session ID is empty")
	}
	if session.ProfileID != "profile-1" {
		t.Errorf("ProfileID = %s, want profile-1", session.ProfileID)
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Error("session expires in the past")
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 stored session, got %d", store.Count())
	}

	other, _ := sm.CreateSession(context.Background(), "profile-1")
	if other.ID == session.ID {
		t.Error("session IDs must be unique")
	}
}

func TestSessionManager_CreateSessionStoreError(t *testing.T) {
	sm, store := newTestSessionManager(t)
	store.SaveError = errors.New("db down")

	if _, err := sm.CreateSession(context.Background(), "profile-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSessionManager_GetAndDeleteSession(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	session, _ := sm.CreateSession(ctx, "profile-1")

	retrieved := sm.GetSession(ctx, session.ID)
	if retrieved == nil {
		t.Fatal("GetSession() returned nil for existing session")
	}
	if retrieved.ProfileID != "profile-1" {
		t.Errorf("ProfileID = %s, want profile-1", retrieved.ProfileID)
	}

	if sm.GetSession(ctx, "nonexistent-id") != nil {
		t.Error("GetSession() should return nil for non-existing session")
	}

	sm.DeleteSession(ctx, session.ID)
	if sm.GetSession(ctx, session.ID) != nil {
		t.Error("GetSession() should return nil after deletion")
	}
}

func TestSessionManager_ExpiredSession(t *testing.T) {
	sm, store := newTestSessionManager(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	store.SaveSession(ctx, &database.Session{ID: "old", ProfileID: "p", CreatedAt: past.Add(-time.Hour), ExpiresAt: past})

	if sm.GetSession(ctx, "old") != nil {
		t.Error("expired session must not be returned")
	}
}

func TestSessionManager_Cookie(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	session, _ := sm.CreateSession(context.Background(), "profile-1")

	w := httptest.NewRecorder()
	sm.SetSessionCookie(w, session)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != constants.SessionKey {
		t.Errorf("cookie name = %s, want %s", cookie.Name, constants.SessionKey)
	}
	if !cookie.HttpOnly {
		t.Error("cookie must be HttpOnly")
	}
	if cookie.Value == session.ID {
		t.Error("cookie value must be signed")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	got := sm.GetSessionFromRequest(req)
	if got == nil || got.ID != session.ID {
		t.Fatalf("GetSessionFromRequest() = %+v, want session %s", got, session.ID)
	}
}

func TestSessionManager_TamperedCookie(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	session, _ := sm.CreateSession(context.Background(), "profile-1")

	tests := []struct {
		name  string
		value string
	}{
		{"unsigned", session.ID},
		{"wrong signature", session.ID + ".invalid"},
		{"empty", ""},
		{"signed by another secret", session.ID + "." + NewSessionManager("other", nil, false).signData(session.ID)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: constants.SessionKey, Value: tt.value})
			if sm.GetSessionFromRequest(req) != nil {
				t.Error("tampered cookie must not authenticate")
			}
		})
	}
}

func TestSessionManager_BearerToken(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	session, _ := sm.CreateSession(context.Background(), "profile-1")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	if got := sm.GetSessionFromRequest(req); got == nil || got.ID != session.ID {
		t.Errorf("bearer token should resolve the session, got %+v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer unknown")
	if sm.GetSessionFromRequest(req) != nil {
		t.Error("unknown bearer token must not authenticate")
	}
}

func TestSessionManager_ClearCookie(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	w := httptest.NewRecorder()
	sm.ClearSessionCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cookies)
	}
}

func TestSessionManager_Cleanup(t *testing.T) {
	sm, store := newTestSessionManager(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	store.SaveSession(ctx, &database.Session{ID: "old", ProfileID: "p", ExpiresAt: past})
	sm.CreateSession(ctx, "p")

	sm.StartCleanup(10 * time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for store.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expired session was not cleaned up, %d sessions left", store.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	sm.Stop()
	sm.Stop()
}

func TestRequireAuth(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	session, _ := sm.CreateSession(context.Background(), "profile-1")

	var seen *database.Session
	handler := RequireAuth(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("without session", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("with session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+session.ID)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
		if seen == nil || seen.ProfileID != "profile-1" {
			t.Errorf("session not stored in context: %+v", seen)
		}
	})
}

func TestSessionContext(t *testing.T) {
	if GetSessionFromContext(context.Background()) != nil {
		t.Error("empty context should have no session")
	}
	if ProfileIDFromContext(context.Background()) != "" {
		t.Error("empty context should have no profile id")
	}
	s := &database.Session{ID: "abc", ProfileID: "profile-1"}
	ctx := SetSessionInContext(context.Background(), s)
	if ProfileIDFromContext(ctx) != s.ProfileID {
		t.Errorf("ProfileIDFromContext = %q", ProfileIDFromContext(ctx))
	}
	if GetSessionFromContext(ctx) != s {
		t.Error("session not returned from context")
	}
}

func TestToSessionData(t *testing.T) {
	s := &database.Session{ID: "abc", ExpiresAt: time.Date(2026, 3, 8, 9, 0, 0, 0, time.FixedZone("IST", 19800))}
	data := ToSessionData(s)
	if data.SessionID != "abc" || data.ExpiresAt != "2026-03-08T03:30:00Z" {
		t.Errorf("unexpected session data %+v", data)
	}
}

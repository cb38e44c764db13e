// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/facematch"
)

// MockProfileStore is a mock implementation of database.ProfileWriter.
// Profiles are kept in insertion order.
type MockProfileStore struct {
	mu       sync.RWMutex
	profiles []database.UserProfile

	// Error injection
	ListError  error
	GetError   error
	CountError error
	SaveError  error

	// Call tracking
	ListCalls int
	SaveCalls []database.UserProfile
}

// NewMockProfileStore creates a new mock profile store
func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{}
}

// AddProfile appends a profile without recording a SaveProfile call
func (m *MockProfileStore) AddProfile(p database.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles = append(m.profiles, p)
}

// ListProfiles returns all profiles in insertion order
func (m *MockProfileStore) ListProfiles(ctx context.Context) ([]database.UserProfile, error) {
	m.mu.Lock()
	m.ListCalls++
	m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.UserProfile, len(m.profiles))
	copy(out, m.profiles)
	return out, nil
}

// GetProfile returns the profile with the given id
func (m *MockProfileStore) GetProfile(ctx context.Context, id string) (*database.UserProfile, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.profiles {
		if m.profiles[i].ID == id {
			p := m.profiles[i]
			return &p, nil
		}
	}
	return nil, database.ErrNotFound
}

// CountProfiles returns the number of profiles
func (m *MockProfileStore) CountProfiles(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles), nil
}

// SaveProfile records the call and inserts the profile
func (m *MockProfileStore) SaveProfile(ctx context.Context, profile *database.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls = append(m.SaveCalls, *profile)
	if m.SaveError != nil {
		return m.SaveError
	}
	for _, p := range m.profiles {
		if p.ID == profile.ID {
			return database.ErrProfileExists
		}
	}
	m.profiles = append(m.profiles, *profile)
	return nil
}

// SaveCount returns the number of SaveProfile calls
func (m *MockProfileStore) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SaveCalls)
}

type account struct {
	identity database.Identity
	password string
}

// MockIdentityProvider is a mock implementation of database.IdentityProvider
type MockIdentityProvider struct {
	mu       sync.Mutex
	accounts map[string]account

	// Error injection
	SignInError error
	SignUpError error

	// Call tracking
	SignInCalls int
	SignUpCalls int
}

// NewMockIdentityProvider creates a new mock identity provider
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{accounts: make(map[string]account)}
}

// AddAccount registers an account and returns its identity
func (m *MockIdentityProvider) AddAccount(id, email, password string) database.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity := database.Identity{ID: id, Email: facematch.NormalizeEmail(email), CreatedAt: time.Now()}
	m.accounts[identity.Email] = account{identity: identity, password: password}
	return identity
}

// SignIn checks the stored password
func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*database.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignInCalls++
	if m.SignInError != nil {
		return nil, m.SignInError
	}
	acc, ok := m.accounts[facematch.NormalizeEmail(email)]
	if !ok || acc.password != password {
		return nil, database.ErrInvalidCredentials
	}
	identity := acc.identity
	return &identity, nil
}

// SignUp creates an account with a random id
func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string) (*database.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignUpCalls++
	if m.SignUpError != nil {
		return nil, m.SignUpError
	}
	email = facematch.NormalizeEmail(email)
	if !strings.Contains(email, "@") || len(password) < 6 {
		return nil, database.ErrInvalidInput
	}
	if _, ok := m.accounts[email]; ok {
		return nil, database.ErrEmailTaken
	}
	identity := database.Identity{ID: uuid.NewString(), Email: email, CreatedAt: time.Now()}
	m.accounts[email] = account{identity: identity, password: password}
	return &identity, nil
}

// Calls returns the number of SignIn and SignUp calls
func (m *MockIdentityProvider) Calls() (signIn, signUp int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SignInCalls, m.SignUpCalls
}

// MockSessionStore is a mock implementation of database.SessionStore
type MockSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]database.Session

	// Error injection
	SaveError error
}

// NewMockSessionStore creates a new mock session store
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{sessions: make(map[string]database.Session)}
}

// SaveSession stores a session
func (m *MockSessionStore) SaveSession(ctx context.Context, session *database.Session) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = *session
	return nil
}

// GetSession returns a live session or nil
func (m *MockSessionStore) GetSession(ctx context.Context, id string) (*database.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || s.Expired(time.Now()) {
		return nil, nil
	}
	return &s, nil
}

// DeleteSession removes a session
func (m *MockSessionStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// DeleteExpiredSessions removes expired sessions
func (m *MockSessionStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored sessions, expired ones included
func (m *MockSessionStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

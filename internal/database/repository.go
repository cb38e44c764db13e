package database

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials is returned by SignIn for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrEmailTaken is returned by SignUp when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidInput is returned by SignUp for a malformed email or weak password.
	ErrInvalidInput = errors.New("invalid email or password")
	// ErrProfileExists is returned by SaveProfile when the id is already stored.
	ErrProfileExists = errors.New("profile already exists")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// IsAuthError reports whether err came from credential handling.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrInvalidInput)
}

// ProfileReader provides read-only access to user profiles
type ProfileReader interface {
	// ListProfiles returns every profile in creation order.
	ListProfiles(ctx context.Context) ([]UserProfile, error)
	// GetProfile returns the profile with the given id, or ErrNotFound.
	GetProfile(ctx context.Context, id string) (*UserProfile, error)
	// CountProfiles returns the number of stored profiles.
	CountProfiles(ctx context.Context) (int, error)
}

// ProfileWriter provides write access to user profiles
type ProfileWriter interface {
	ProfileReader

	// SaveProfile inserts a new profile. Existing profiles are never
	// overwritten; a duplicate id yields ErrProfileExists.
	SaveProfile(ctx context.Context, profile *UserProfile) error
}

// IdentityProvider authenticates accounts by email and password.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password string) (*Identity, error)
}

// SessionStore persists web sessions.
type SessionStore interface {
	SaveSession(ctx context.Context, session *Session) error
	// GetSession returns nil when the session does not exist or has expired.
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

package database

import (
	"context"
	"errors"
)

var errNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

var (
	postgresProfileWriter    func() ProfileWriter
	postgresIdentityProvider func() IdentityProvider
	postgresSessionStore     func() SessionStore
	postgresInitialized      bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	profiles func() ProfileWriter,
	identities func() IdentityProvider,
	sessions func() SessionStore,
) {
	postgresProfileWriter = profiles
	postgresIdentityProvider = identities
	postgresSessionStore = sessions
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetProfileReader returns a ProfileReader from the PostgreSQL backend
func GetProfileReader(ctx context.Context) (ProfileReader, error) {
	return GetProfileWriter(ctx)
}

// GetProfileWriter returns a ProfileWriter from the PostgreSQL backend
func GetProfileWriter(_ context.Context) (ProfileWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresProfileWriter == nil {
		return nil, errors.New("PostgreSQL profile writer not registered")
	}
	return postgresProfileWriter(), nil
}

// GetIdentityProvider returns an IdentityProvider from the PostgreSQL backend
func GetIdentityProvider(_ context.Context) (IdentityProvider, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresIdentityProvider == nil {
		return nil, errors.New("PostgreSQL identity provider not registered")
	}
	return postgresIdentityProvider(), nil
}

// GetSessionStore returns a SessionStore from the PostgreSQL backend
func GetSessionStore(_ context.Context) (SessionStore, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresSessionStore == nil {
		return nil, errors.New("PostgreSQL session store not registered")
	}
	return postgresSessionStore(), nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/suraksha/internal/config"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/database/postgres"
)

// backends are the PostgreSQL repositories a command works against.
type backends struct {
	profiles   database.ProfileWriter
	identities database.IdentityProvider
	sessions   database.SessionStore
}

// openBackends connects to PostgreSQL, runs migrations and resolves the repositories.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	profiles, err := database.GetProfileWriter(ctx)
	if err != nil {
		return nil, err
	}
	identities, err := database.GetIdentityProvider(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := database.GetSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	return &backends{profiles: profiles, identities: identities, sessions: sessions}, nil
}

func closeBackends() {
	if pool := postgres.GetGlobalPool(); pool != nil {
		pool.Close()
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/suraksha/internal/database"
)

const (
	upsertSessionSQL = `
		INSERT INTO sessions (id, profile_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET profile_id = EXCLUDED.profile_id,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at`

	liveSessionSQL = `
		SELECT id, profile_id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2`

	deleteSessionSQL = `DELETE FROM sessions WHERE id = $1`
	purgeSessionsSQL = `DELETE FROM sessions WHERE expires_at <= $1`
)

// SessionRepository keeps login sessions in the sessions table. Expiry is
// judged against the application clock so a skewed database host cannot
// keep a session alive.
type SessionRepository struct {
	pool *Pool
	now  func() time.Time
}

func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool, now: time.Now}
}

// SaveSession inserts s or replaces the row with the same id.
func (r *SessionRepository) SaveSession(ctx context.Context, s *database.Session) error {
	if s == nil || s.ID == "" {
		return errors.New("save session: missing id")
	}
	if _, err := r.pool.Exec(ctx, upsertSessionSQL, s.ID, s.ProfileID, s.CreatedAt.UTC(), s.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// GetSession returns the live session with the given id. Unknown and
// expired sessions both yield (nil, nil).
func (r *SessionRepository) GetSession(ctx context.Context, id string) (*database.Session, error) {
	s := new(database.Session)
	err := r.pool.QueryRow(ctx, liveSessionSQL, id, r.now().UTC()).
		Scan(&s.ID, &s.ProfileID, &s.CreatedAt, &s.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, deleteSessionSQL, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions purges every expired row and reports how many went.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.pool.Exec(ctx, purgeSessionsSQL, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

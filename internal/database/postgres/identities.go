package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/kozaktomas/suraksha/internal/facematch"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

// IdentityRepository authenticates accounts stored in PostgreSQL.
// Passwords are stored as bcrypt hashes only.
type IdentityRepository struct {
	pool *Pool
	cost int

	// dummyHash is compared against for unknown emails so they cost as much
	// as a wrong password.
	dummyHash func() []byte
}

// NewIdentityRepository creates a new identity repository with the given
// bcrypt cost, clamped to the range bcrypt accepts.
func NewIdentityRepository(pool *Pool, cost int) *IdentityRepository {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	cost = min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)
	return &IdentityRepository{
		pool: pool,
		cost: cost,
		dummyHash: sync.OnceValue(func() []byte {
			hash, _ := bcrypt.GenerateFromPassword([]byte("suraksha-unknown-identity"), cost)
			return hash
		}),
	}
}

// SignUp creates a new identity
func (r *IdentityRepository) SignUp(ctx context.Context, email, password string) (*database.Identity, error) {
	email = facematch.NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	identity := database.Identity{ID: uuid.NewString(), Email: email}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO identities (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, identity.ID, identity.Email, string(hash)).Scan(&identity.CreatedAt)
	if isUniqueViolation(err) {
		return nil, database.ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return &identity, nil
}

// SignIn verifies email and password. Unknown emails and wrong passwords
// produce the same error.
func (r *IdentityRepository) SignIn(ctx context.Context, email, password string) (*database.Identity, error) {
	var (
		identity database.Identity
		hash     string
	)
	err := r.pool.QueryRow(ctx,
		"SELECT id, email, password_hash, created_at FROM identities WHERE email = $1",
		facematch.NormalizeEmail(email),
	).Scan(&identity.ID, &identity.Email, &hash, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.rejectUnknown(password)
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, database.ErrInvalidCredentials
	}
	return &identity, nil
}

// rejectUnknown burns one bcrypt comparison and returns the same error as a
// wrong password.
func (r *IdentityRepository) rejectUnknown(password string) error {
	_ = bcrypt.CompareHashAndPassword(r.dummyHash(), []byte(password))
	return database.ErrInvalidCredentials
}

// validateCredentials accepts a bare address only; display-name forms such
// as "Asha <a@b.com>" are rejected so the stored email is the address.
func validateCredentials(email, password string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("%w: %w", database.ErrInvalidInput, err)
	}
	if addr.Address != email {
		return fmt.Errorf("%w: email must be a bare address", database.ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", database.ErrInvalidInput, MinPasswordLength)
	}
	return nil
}

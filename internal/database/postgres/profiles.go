package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/suraksha/internal/database"
	"github.com/lib/pq"
)

// ProfileRepository provides PostgreSQL-backed profile storage
type ProfileRepository struct {
	pool *Pool
}

// NewProfileRepository creates a new PostgreSQL profile repository
func NewProfileRepository(pool *Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

const profileColumns = `id, name, email, is_female, status, verified_at,
	face_descriptor, face_image, face_registered_at, face_confidence, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*database.UserProfile, error) {
	var (
		p              database.UserProfile
		descriptor     sql.NullString
		image          []byte
		registeredAt   sql.NullTime
		faceConfidence sql.NullFloat64
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Eligible, &p.Status, &p.VerifiedAt,
		&descriptor, &image, &registeredAt, &faceConfidence, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	if descriptor.Valid {
		p.Face = &database.FaceRecord{
			Descriptor:    descriptor.String,
			CapturedImage: image,
			RegisteredAt:  registeredAt.Time,
			Confidence:    faceConfidence.Float64,
		}
	}
	return &p, nil
}

// ListProfiles returns all profiles in creation order
func (r *ProfileRepository) ListProfiles(ctx context.Context) ([]database.UserProfile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []database.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

// GetProfile returns a profile by id or database.ErrNotFound
func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (*database.UserProfile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// CountProfiles returns the number of stored profiles
func (r *ProfileRepository) CountProfiles(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM profiles").Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

// SaveProfile inserts a profile. Existing rows are never updated.
func (r *ProfileRepository) SaveProfile(ctx context.Context, p *database.UserProfile) error {
	var (
		descriptor     sql.NullString
		image          []byte
		registeredAt   sql.NullTime
		faceConfidence sql.NullFloat64
	)
	if p.Face != nil {
		descriptor = sql.NullString{String: p.Face.Descriptor, Valid: true}
		image = p.Face.CapturedImage
		registeredAt = sql.NullTime{Time: p.Face.RegisteredAt, Valid: true}
		faceConfidence = sql.NullFloat64{Float64: p.Face.Confidence, Valid: true}
	}

	query := `
		INSERT INTO profiles (id, name, email, is_female, status, verified_at,
			face_descriptor, face_image, face_registered_at, face_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		p.ID, p.Name, p.Email, p.Eligible, p.Status, p.VerifiedAt,
		descriptor, image, registeredAt, faceConfidence,
	).Scan(&p.CreatedAt)
	if isUniqueViolation(err) {
		return database.ErrProfileExists
	}
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// isUniqueViolation reports a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

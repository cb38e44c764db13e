package database

import (
	"time"

	"github.com/kozaktomas/suraksha/internal/facematch"
)

// StatusVerified is the only status the service assigns to a profile.
const StatusVerified = "verified"

// UserProfile is the stored record of an admitted user. A profile is written
// once at signup and never mutated afterwards.
type UserProfile struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Eligible   bool        `json:"isFemale"`
	Status     string      `json:"verificationStatus"`
	VerifiedAt time.Time   `json:"verifiedAt"`
	CreatedAt  time.Time   `json:"createdAt"`
	Face       *FaceRecord `json:"faceData,omitempty"`
}

// FaceRecord holds the enrollment artifacts of a profile.
type FaceRecord struct {
	// Descriptor is opaque oracle output. It is only ever handed back to the
	// comparison oracle.
	Descriptor    string    `json:"embedding"`
	CapturedImage []byte    `json:"capturedImage"`
	RegisteredAt  time.Time `json:"registeredAt"`
	Confidence    float64   `json:"confidence"`
}

// Descriptor returns the profile's face descriptor, or "" without one.
func (p *UserProfile) Descriptor() string {
	if p == nil || p.Face == nil {
		return ""
	}
	return p.Face.Descriptor
}

// Identity is an authenticated account.
type Identity struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Session binds a session id to the authenticated profile.
type Session struct {
	ID        string
	ProfileID string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// DefaultProfile is used for identities that have no stored profile.
// The name is derived from the email local part.
func DefaultProfile(identity *Identity, now time.Time) *UserProfile {
	return &UserProfile{
		ID:         identity.ID,
		Name:       facematch.NameFromEmail(identity.Email),
		Email:      identity.Email,
		Eligible:   true,
		Status:     StatusVerified,
		VerifiedAt: now,
		CreatedAt:  now,
	}
}

// Package faceauth drives the face scan, match and enrollment flow for one
// browser session, plus the manual email/password paths that share its
// retained face data.
package faceauth

import (
	"context"
	"time"

	"github.com/kozaktomas/suraksha/internal/ai"
	"github.com/kozaktomas/suraksha/internal/constants"
	"github.com/kozaktomas/suraksha/internal/database"
	"go.uber.org/zap"
)

// State is the scan state.
type State string

const (
	StateIdle      State = "idle"
	StateDetecting State = "detecting"
	StateVerifying State = "verifying"
	StateMatching  State = "matching"
	StateSuccess   State = "success"
	StateFailed    State = "failed"
)

// View is the screen the user is on. Views gate which actions are reachable.
type View string

const (
	ViewScanEntry    View = "scan-entry"
	ViewFaceSignup   View = "face-signup"
	ViewManualLogin  View = "manual-login"
	ViewManualSignup View = "manual-signup"
	ViewDenied       View = "denied"
)

// RequiresCamera reports whether the view keeps a frame source open.
func (v View) RequiresCamera() bool {
	switch v {
	case ViewScanEntry, ViewFaceSignup, ViewManualLogin, ViewManualSignup:
		return true
	}
	return false
}

// ParseView validates a view name.
func ParseView(s string) (View, bool) {
	v := View(s)
	switch v {
	case ViewScanEntry, ViewFaceSignup, ViewManualLogin, ViewManualSignup, ViewDenied:
		return v, true
	}
	return "", false
}

// Status is a point-in-time snapshot of a flow.
type Status struct {
	Seq         uint64 `json:"seq"`
	View        View   `json:"view"`
	State       State  `json:"state"`
	Message     string `json:"message"`
	Error       string `json:"error,omitempty"`
	HasFaceData bool   `json:"hasFaceData"`
	Completed   bool   `json:"completed"`
	ProfileID   string `json:"profileId,omitempty"`
	ProfileName string `json:"profileName,omitempty"`

	// Err is the classified error behind Error.
	Err error `json:"-"`
}

// Camera acquires a frame source.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open frame source.
type Stream interface {
	// Snapshot returns the current frame, or nil when none is available yet.
	Snapshot() []byte
	Close()
}

// Oracle is the vision backend. ai.Provider satisfies it.
type Oracle interface {
	VerifyFace(ctx context.Context, imageData []byte) (*ai.FaceVerification, error)
	CompareFace(ctx context.Context, imageData []byte, descriptor string) (*ai.FaceComparison, error)
	DescribeFace(ctx context.Context, imageData []byte) (string, error)
}

// ProfileStore is the subset of database.ProfileWriter the flow uses.
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]database.UserProfile, error)
	GetProfile(ctx context.Context, id string) (*database.UserProfile, error)
	SaveProfile(ctx context.Context, profile *database.UserProfile) error
}

// SessionStore persists the authenticated profile id under key.
type SessionStore interface {
	SetSession(ctx context.Context, key, profileID string) error
}

// SessionFunc adapts a function to SessionStore.
type SessionFunc func(ctx context.Context, key, profileID string) error

func (f SessionFunc) SetSession(ctx context.Context, key, profileID string) error {
	return f(ctx, key, profileID)
}

// Settings are the flow timings and budgets.
type Settings struct {
	CaptureDelay    time.Duration
	RetryDelay      time.Duration
	DisplayDelay    time.Duration
	MatchBudget     int
	MaxFrameRetries int
}

// DefaultSettings returns the production timings.
func DefaultSettings() Settings {
	return Settings{
		CaptureDelay:    constants.DefaultCaptureDelay,
		RetryDelay:      constants.DefaultRetryDelay,
		DisplayDelay:    constants.DefaultDisplayDelay,
		MatchBudget:     constants.DefaultMatchBudget,
		MaxFrameRetries: constants.DefaultMaxFrameRetries,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.CaptureDelay <= 0 {
		s.CaptureDelay = d.CaptureDelay
	}
	if s.RetryDelay <= 0 {
		s.RetryDelay = d.RetryDelay
	}
	if s.DisplayDelay <= 0 {
		s.DisplayDelay = d.DisplayDelay
	}
	if s.MatchBudget <= 0 {
		s.MatchBudget = d.MatchBudget
	}
	if s.MaxFrameRetries <= 0 {
		s.MaxFrameRetries = d.MaxFrameRetries
	}
	return s
}

// Config wires an Orchestrator to its collaborators.
type Config struct {
	Camera     Camera
	Oracle     Oracle
	Profiles   ProfileStore
	Identities database.IdentityProvider
	Sessions   SessionStore

	Settings  Settings
	Scheduler Scheduler // nil uses real timers
	Logger    *zap.Logger
	Now       func() time.Time

	// OnSuccess is called exactly once with the authenticated profile.
	OnSuccess func(*database.UserProfile)
	// OnStatus receives every status change.
	OnStatus func(Status)
}

// SignupRequest carries the registration form.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face scan constants
const (
	// DefaultCaptureDelay is the wait before each automatic frame capture
	DefaultCaptureDelay = 2 * time.Second

	// DefaultRetryDelay is the backoff after a transient oracle failure
	DefaultRetryDelay = 3 * time.Second

	// DefaultDisplayDelay keeps a success message on screen before acting on it
	DefaultDisplayDelay = 1500 * time.Millisecond

	// DefaultMatchBudget is the number of comparison calls allowed per sweep
	DefaultMatchBudget = 3

	// DefaultMaxFrameRetries bounds consecutive captures that yield no frame
	DefaultMaxFrameRetries = 30
)

// Session constants
const (
	// SessionKey is the key the authenticated profile id is stored under
	SessionKey = "suraksha_sid"

	// SessionDuration is how long a browser session stays valid
	SessionDuration = 7 * 24 * time.Hour
)

// Image constants
const (
	// DefaultMaxImageSize is the maximum dimension (width or height) sent to the oracle
	DefaultMaxImageSize = 800

	// MaxFrameBytes caps a single uploaded camera frame
	MaxFrameBytes = 8 << 20
)

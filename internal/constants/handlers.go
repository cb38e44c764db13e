// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Handler constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100

	// DefaultFlowTTL is how long an idle browser flow is kept
	DefaultFlowTTL = 10 * time.Minute

	// FlowSweepInterval is how often expired flows are collected
	FlowSweepInterval = time.Minute

	// SessionCleanupInterval is how often expired sessions are deleted
	SessionCleanupInterval = time.Hour
)

// Package facematch holds the face-login matching policy: the fixed
// confidence threshold and the bounded comparison sweep over stored profiles.
package facematch

// MatchThreshold is the minimum comparison confidence (0-100) that counts as
// the same person. It is a fixed security parameter and is applied locally;
// the oracle's own match verdict is never trusted.
const MatchThreshold = 85.0

// IsMatch reports whether a comparison confidence clears MatchThreshold.
func IsMatch(confidence float64) bool {
	return confidence >= MatchThreshold
}

// SweepResult describes the outcome of one matching sweep.
type SweepResult[T any] struct {
	Matched    bool
	Match      T       // the matching candidate, zero value if none
	Confidence float64 // confidence of the match, or of the best attempt when none matched
	Attempts   int     // comparison oracle calls made
	Skipped    int     // candidates without a descriptor
	// BudgetExhausted is set when candidates with descriptors remained
	// after the budget was spent. Those accounts cannot log in by face.
	BudgetExhausted bool
}

package facematch

import (
	"context"
	"fmt"
)

// CompareFunc scores a captured frame against one stored descriptor and
// returns the confidence (0-100).
type CompareFunc func(ctx context.Context, descriptor string) (float64, error)

// Sweep compares candidates one at a time, in the given order, until the
// first confidence that clears MatchThreshold. Candidates whose descriptor is
// empty are skipped without a call. At most budget comparisons are made.
// A comparison error aborts the sweep and is returned with the partial result.
func Sweep[T any](ctx context.Context, candidates []T, descriptor func(T) string, budget int, compare CompareFunc) (SweepResult[T], error) {
	var res SweepResult[T]
	if budget <= 0 {
		return res, fmt.Errorf("match budget must be positive, got %d", budget)
	}

	for _, c := range candidates {
		d := descriptor(c)
		if d == "" {
			res.Skipped++
			continue
		}

		if res.Attempts >= budget {
			res.BudgetExhausted = true
			break
		}

		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("sweep cancelled: %w", err)
		}

		res.Attempts++
		confidence, err := compare(ctx, d)
		if err != nil {
			return res, fmt.Errorf("compare candidate %d: %w", res.Attempts, err)
		}

		if IsMatch(confidence) {
			res.Matched = true
			res.Match = c
			res.Confidence = confidence
			return res, nil
		}
		if confidence > res.Confidence {
			res.Confidence = confidence
		}
	}

	return res, nil
}

package ai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Throttled limits the request rate to a wrapped provider. The free tiers of
// both backends reject bursts, so every flow shares one limiter.
type Throttled struct {
	Provider
	limiter *rate.Limiter
}

// NewThrottled wraps p with a limiter of requestsPerMinute. A non-positive
// rate returns p unchanged.
func NewThrottled(p Provider, requestsPerMinute int) Provider {
	if requestsPerMinute <= 0 {
		return p
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &Throttled{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Every(every), 1),
	}
}

func (t *Throttled) wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}
	return nil
}

func (t *Throttled) VerifyFace(ctx context.Context, imageData []byte) (*FaceVerification, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.Provider.VerifyFace(ctx, imageData)
}

func (t *Throttled) CompareFace(ctx context.Context, imageData []byte, descriptor string) (*FaceComparison, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.Provider.CompareFace(ctx, imageData, descriptor)
}

func (t *Throttled) DescribeFace(ctx context.Context, imageData []byte) (string, error) {
	if err := t.wait(ctx); err != nil {
		return "", err
	}
	return t.Provider.DescribeFace(ctx, imageData)
}

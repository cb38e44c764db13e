package ai

import (
	"context"
	"sync"
)

// FaceVerification is the eligibility gate verdict for one frame.
type FaceVerification struct {
	FaceDetected bool `json:"faceDetected"`
	// Eligible is the gate outcome. The oracle contract names it isFemale.
	Eligible   bool    `json:"isFemale"`
	Confidence float64 `json:"confidence"` // 0-100
}

// FaceComparison is the oracle's judgement of a frame against a stored descriptor.
type FaceComparison struct {
	// Match is the oracle's own verdict. It is informational only; callers
	// decide with facematch.IsMatch on Confidence.
	Match      bool    `json:"match"`
	Confidence float64 `json:"confidence"` // 0-100
	Reasoning  string  `json:"reasoning"`
}

// Provider defines the interface for vision oracle backends.
type Provider interface {
	Name() string

	// VerifyFace checks that a face is present and passes the eligibility gate.
	VerifyFace(ctx context.Context, imageData []byte) (*FaceVerification, error)
	// CompareFace scores a frame against an opaque stored descriptor.
	CompareFace(ctx context.Context, imageData []byte, descriptor string) (*FaceComparison, error)
	// DescribeFace produces an opaque descriptor for later comparisons.
	DescribeFace(ctx context.Context, imageData []byte) (string, error)

	// Usage tracking.
	GetUsage() Usage
	ResetUsage()
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	Calls        int
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens
type RequestPricing struct {
	Input  float64
	Output float64
}

// usageTracker is embedded by providers. Providers are shared by every
// browser flow so the counters are guarded.
type usageTracker struct {
	mu      sync.Mutex
	usage   Usage
	pricing RequestPricing
}

func (u *usageTracker) GetUsage() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.usage
}

func (u *usageTracker) ResetUsage() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage = Usage{}
}

func (u *usageTracker) trackUsage(inputTokens, outputTokens int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage.Calls++
	u.usage.InputTokens += int(inputTokens)
	u.usage.OutputTokens += int(outputTokens)
	u.usage.TotalCost += float64(inputTokens) / 1_000_000 * u.pricing.Input
	u.usage.TotalCost += float64(outputTokens) / 1_000_000 * u.pricing.Output
}

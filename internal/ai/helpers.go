package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed prompts/face_verification.txt
var faceVerificationPrompt string

//go:embed prompts/face_comparison.txt
var faceComparisonPrompt string

//go:embed prompts/face_descriptor.txt
var faceDescriptorPrompt string

// maxJSONAttempts bounds how often a model is asked to repair malformed JSON.
const maxJSONAttempts = 3

// buildComparisonPrompt embeds the stored descriptor into the comparison prompt.
// This is shared across all AI providers.
func buildComparisonPrompt(descriptor string) string {
	return strings.Replace(faceComparisonPrompt, "{{descriptor}}", descriptor, 1)
}

// jsonRepairMessage is sent back to the model after a parse failure.
func jsonRepairMessage(err error) string {
	return fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Return the JSON object only.", err)
}

// stripCodeFence removes a markdown code fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// clampConfidence keeps a model-reported confidence within 0-100.
func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

func parseVerification(content string) (*FaceVerification, error) {
	var v FaceVerification
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &v); err != nil {
		return nil, fmt.Errorf("parse verification: %w", err)
	}
	v.Confidence = clampConfidence(v.Confidence)
	// Eligibility without a detected face is meaningless.
	if !v.FaceDetected {
		v.Eligible = false
	}
	return &v, nil
}

func parseComparison(content string) (*FaceComparison, error) {
	var c FaceComparison
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &c); err != nil {
		return nil, fmt.Errorf("parse comparison: %w", err)
	}
	c.Confidence = clampConfidence(c.Confidence)
	return &c, nil
}

// cleanDescriptor validates descriptor text returned by a model.
func cleanDescriptor(content string) (string, error) {
	d := strings.TrimSpace(content)
	if d == "" {
		return "", ErrEmptyResponse
	}
	return d, nil
}

package ai

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// rateLimitText matches a 429 only where an SDK renders it as a status:
// "Error 429", "status: 429", "code=429" or "429 Too Many Requests".
var rateLimitText = regexp.MustCompile(`(?i)\b(?:error|status|code)\b[\s:=]*429\b|\b429 too many requests\b`)

var (
	// ErrRateLimited marks oracle failures caused by quota or rate limits.
	// They must not be retried automatically.
	ErrRateLimited = errors.New("oracle rate limit reached")

	// ErrEmptyResponse is returned when the model produced no content.
	ErrEmptyResponse = errors.New("empty response from model")
)

// IsRateLimit reports whether err is a rate limit or quota error from any
// supported backend.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var geminiErr *genai.APIError
	if errors.As(err, &geminiErr) && geminiErr != nil {
		if geminiErr.Code == http.StatusTooManyRequests || geminiErr.Status == "RESOURCE_EXHAUSTED" {
			return true
		}
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) && openaiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	// SDK errors are not always typed; both render the status code.
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || rateLimitText.MatchString(msg)
}

// classifyError wraps a backend error, adding ErrRateLimited to the chain
// when it is a rate limit.
func classifyError(backend string, err error) error {
	if IsRateLimit(err) {
		return fmt.Errorf("%s API error: %w: %w", backend, ErrRateLimited, err)
	}
	return fmt.Errorf("%s API error: %w", backend, err)
}

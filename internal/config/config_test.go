package config

import (
	"os"
	"testing"
	"time"
)

func TestGetModelPricing_KnownModel(t *testing.T) {
	cfg := Load() // Load actual config with embedded prices

	pricing := cfg.GetModelPricing("gpt-4.1-mini")

	if pricing.Standard.Input != 0.40 {
		t.Errorf("expected standard input price 0.40, got %f", pricing.Standard.Input)
	}

	if pricing.Standard.Output != 1.60 {
		t.Errorf("expected standard output price 1.60, got %f", pricing.Standard.Output)
	}
}

func TestGetModelPricing_GeminiModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("gemini-2.5-flash")

	if pricing.Standard.Input != 0.30 {
		t.Errorf("expected gemini standard input 0.30, got %f", pricing.Standard.Input)
	}

	if pricing.Standard.Output != 2.50 {
		t.Errorf("expected gemini standard output 2.50, got %f", pricing.Standard.Output)
	}
}

func TestGetModelPricing_LocalModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("llava")

	// Local models should have zero pricing
	if pricing.Standard.Input != 0 || pricing.Standard.Output != 0 {
		t.Errorf("expected zero pricing for local model, got input=%f output=%f",
			pricing.Standard.Input, pricing.Standard.Output)
	}
}

func TestGetModelPricing_UnknownModel(t *testing.T) {
	cfg := Load()

	pricing := cfg.GetModelPricing("unknown-model-xyz")

	if pricing.Standard.Input != 0 || pricing.Standard.Output != 0 {
		t.Errorf("expected zero pricing for unknown model, got input=%f output=%f",
			pricing.Standard.Input, pricing.Standard.Output)
	}
}

func TestLoad_AuthDefaults(t *testing.T) {
	for _, key := range []string{
		"AUTH_CAPTURE_DELAY", "AUTH_RETRY_DELAY", "AUTH_DISPLAY_DELAY",
		"AUTH_MATCH_BUDGET", "AUTH_MAX_FRAME_RETRIES",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Auth.CaptureDelay != 2*time.Second {
		t.Errorf("expected capture delay 2s, got %v", cfg.Auth.CaptureDelay)
	}
	if cfg.Auth.RetryDelay != 3*time.Second {
		t.Errorf("expected retry delay 3s, got %v", cfg.Auth.RetryDelay)
	}
	if cfg.Auth.DisplayDelay != 1500*time.Millisecond {
		t.Errorf("expected display delay 1.5s, got %v", cfg.Auth.DisplayDelay)
	}
	if cfg.Auth.MatchBudget != 3 {
		t.Errorf("expected match budget 3, got %d", cfg.Auth.MatchBudget)
	}
	if cfg.Auth.MaxFrameRetries != 30 {
		t.Errorf("expected max frame retries 30, got %d", cfg.Auth.MaxFrameRetries)
	}
}

func TestLoad_CustomMatchBudget(t *testing.T) {
	t.Setenv("AUTH_MATCH_BUDGET", "5")

	cfg := Load()

	if cfg.Auth.MatchBudget != 5 {
		t.Errorf("expected match budget 5, got %d", cfg.Auth.MatchBudget)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric budget", "AUTH_MATCH_BUDGET", "many"},
		{"zero budget", "AUTH_MATCH_BUDGET", "0"},
		{"negative budget", "AUTH_MATCH_BUDGET", "-2"},
		{"bad duration", "AUTH_CAPTURE_DELAY", "soon"},
		{"negative duration", "AUTH_CAPTURE_DELAY", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg := Load()

			if cfg.Auth.MatchBudget != 3 {
				t.Errorf("expected default match budget 3, got %d", cfg.Auth.MatchBudget)
			}
			if cfg.Auth.CaptureDelay != 2*time.Second {
				t.Errorf("expected default capture delay 2s, got %v", cfg.Auth.CaptureDelay)
			}
		})
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg := Load()

	if len(cfg.Web.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Web.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("unexpected second origin %q", cfg.Web.AllowedOrigins[1])
	}
}

func TestLoad_PSIDefaultURL(t *testing.T) {
	os.Unsetenv("PSI_URL")

	cfg := Load()

	if cfg.PSI.URL != "http://localhost:8000" {
		t.Errorf("expected default PSI URL, got %q", cfg.PSI.URL)
	}
}

func TestOracleProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"gemini preferred", Config{Gemini: GeminiConfig{APIKey: "g"}, OpenAI: OpenAIConfig{Token: "o"}}, "gemini", false},
		{"openai only", Config{OpenAI: OpenAIConfig{Token: "o"}}, "openai", false},
		{"local openai compatible", Config{OpenAI: OpenAIConfig{BaseURL: "http://localhost:8080/v1"}}, "openai", false},
		{"explicit openai", Config{Oracle: OracleConfig{Provider: "openai"}, Gemini: GeminiConfig{APIKey: "g"}, OpenAI: OpenAIConfig{Token: "o"}}, "openai", false},
		{"explicit gemini without key", Config{Oracle: OracleConfig{Provider: "gemini"}}, "", true},
		{"unknown provider", Config{Oracle: OracleConfig{Provider: "bard"}}, "", true},
		{"nothing configured", Config{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.OracleProvider()
			if (err != nil) != tt.wantErr {
				t.Fatalf("OracleProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("OracleProvider() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	if _, err := InitLogger(LogConfig{Level: "chatty"}); err == nil {
		t.Error("expected error for invalid log level")
	}
}

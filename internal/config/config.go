package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

type Config struct {
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
	Oracle   OracleConfig
	Auth     AuthConfig
	Database DatabaseConfig
	PSI      PSIConfig
	Web      WebConfig
	Log      LogConfig
	Prices   PricesConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string // defaults to gemini-2.5-flash
}

// OpenAIConfig also covers OpenAI-compatible servers such as llama.cpp
// when BaseURL is set.
type OpenAIConfig struct {
	Token   string
	BaseURL string
	Model   string // defaults to gpt-4.1-mini
}

type OracleConfig struct {
	Provider          string // "gemini" or "openai"; empty picks whichever has a key
	RequestsPerMinute int    // outbound call ceiling shared by all flows, 0 disables throttling
	MaxImageSize      int    // frames are downscaled to this many pixels on the long side
}

// AuthConfig controls the face scan state machine timings and budgets.
type AuthConfig struct {
	CaptureDelay    time.Duration // delay before each capture attempt
	RetryDelay      time.Duration // delay after a transient oracle failure
	DisplayDelay    time.Duration // how long a success message stays up before acting on it
	MatchBudget     int           // comparison calls allowed per matching sweep
	MaxFrameRetries int           // consecutive empty captures tolerated before giving up
	FlowTTL         time.Duration // idle browser flows are dropped after this long
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
	BcryptCost   int    // password hashing cost (default 12)
}

type PSIConfig struct {
	URL     string // route-safety engine base URL, defaults to http://localhost:8000
	Timeout time.Duration
}

type WebConfig struct {
	SessionSecret  string
	AllowedOrigins []string
	SecureCookies  bool
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

type ModelPricing struct {
	Standard RequestPricing `yaml:"standard"`
	Batch    RequestPricing `yaml:"batch"`
}

type RequestPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads a Go duration string ("2s", "1500ms").
// Returns the default value if the env var is unset, invalid or not positive.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

// envList splits a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	return &Config{
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		OpenAI: OpenAIConfig{
			Token:   os.Getenv("OPENAI_TOKEN"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   envString("OPENAI_MODEL", "gpt-4.1-mini"),
		},
		Oracle: OracleConfig{
			Provider:          os.Getenv("ORACLE_PROVIDER"),
			RequestsPerMinute: envInt("ORACLE_REQUESTS_PER_MINUTE", 30),
			MaxImageSize:      envInt("ORACLE_MAX_IMAGE_SIZE", 800),
		},
		Auth: AuthConfig{
			CaptureDelay:    envDuration("AUTH_CAPTURE_DELAY", 2*time.Second),
			RetryDelay:      envDuration("AUTH_RETRY_DELAY", 3*time.Second),
			DisplayDelay:    envDuration("AUTH_DISPLAY_DELAY", 1500*time.Millisecond),
			MatchBudget:     envInt("AUTH_MATCH_BUDGET", 3),
			MaxFrameRetries: envInt("AUTH_MAX_FRAME_RETRIES", 30),
			FlowTTL:         envDuration("AUTH_FLOW_TTL", 10*time.Minute),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			BcryptCost:   envInt("DATABASE_BCRYPT_COST", 12),
		},
		PSI: PSIConfig{
			URL:     envString("PSI_URL", "http://localhost:8000"),
			Timeout: envDuration("PSI_TIMEOUT", 30*time.Second),
		},
		Web: WebConfig{
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
			SecureCookies:  envBool("WEB_SECURE_COOKIES"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "console"),
		},
		Prices: prices,
	}
}

// GetModelPricing returns pricing for a specific model, with fallback defaults
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	// Return zero pricing if model not found
	return ModelPricing{}
}

// OracleProvider resolves which vision provider to use. An explicit
// ORACLE_PROVIDER wins, otherwise Gemini is preferred over OpenAI.
func (c *Config) OracleProvider() (string, error) {
	switch c.Oracle.Provider {
	case "gemini":
		if c.Gemini.APIKey == "" {
			return "", fmt.Errorf("GEMINI_API_KEY is required for provider %q", c.Oracle.Provider)
		}
		return "gemini", nil
	case "openai":
		if c.OpenAI.Token == "" && c.OpenAI.BaseURL == "" {
			return "", fmt.Errorf("OPENAI_TOKEN or OPENAI_BASE_URL is required for provider %q", c.Oracle.Provider)
		}
		return "openai", nil
	case "":
	default:
		return "", fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider)
	}

	switch {
	case c.Gemini.APIKey != "":
		return "gemini", nil
	case c.OpenAI.Token != "", c.OpenAI.BaseURL != "":
		return "openai", nil
	}
	return "", fmt.Errorf("no vision provider configured: set GEMINI_API_KEY or OPENAI_TOKEN")
}

// InitLogger builds the global zap logger.
func InitLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	return logger, nil
}

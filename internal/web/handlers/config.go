package handlers

import (
	"net/http"

	"github.com/kozaktomas/suraksha/internal/config"
	"github.com/kozaktomas/suraksha/internal/database"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Providers      []ProviderInfo `json:"providers"`
	ActiveProvider string         `json:"active_provider,omitempty"`
	Database       bool           `json:"database"`
	Scan           ScanTimings    `json:"scan"`
}

// ProviderInfo represents information about a vision provider
type ProviderInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// ScanTimings tells the browser how often to push frames.
type ScanTimings struct {
	CaptureDelayMs int64 `json:"capture_delay_ms"`
	RetryDelayMs   int64 `json:"retry_delay_ms"`
	DisplayDelayMs int64 `json:"display_delay_ms"`
}

// Get returns the available configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	providers := []ProviderInfo{
		{
			Name:      "gemini",
			Available: h.config.Gemini.APIKey != "",
		},
		{
			Name:      "openai",
			Available: h.config.OpenAI.Token != "" || h.config.OpenAI.BaseURL != "",
		},
	}

	active, _ := h.config.OracleProvider()

	response := ConfigResponse{
		Providers:      providers,
		ActiveProvider: active,
		Database:       database.IsInitialized(),
		Scan: ScanTimings{
			CaptureDelayMs: h.config.Auth.CaptureDelay.Milliseconds(),
			RetryDelayMs:   h.config.Auth.RetryDelay.Milliseconds(),
			DisplayDelayMs: h.config.Auth.DisplayDelay.Milliseconds(),
		},
	}

	respondJSON(w, http.StatusOK, response)
}

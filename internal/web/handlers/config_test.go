package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/suraksha/internal/config"
)

func TestConfigHandler_Get(t *testing.T) {
	cfg := &config.Config{}
	cfg.Gemini.APIKey = "test-key"
	cfg.Auth.CaptureDelay = 1500 * time.Millisecond
	cfg.Auth.RetryDelay = time.Second
	cfg.Auth.DisplayDelay = 3 * time.Second

	recorder := httptest.NewRecorder()
	NewConfigHandler(cfg).Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var resp ConfigResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.ActiveProvider != "gemini" {
		t.Errorf("ActiveProvider = %q, want gemini", resp.ActiveProvider)
	}
	available := map[string]bool{}
	for _, p := range resp.Providers {
		available[p.Name] = p.Available
	}
	if !available["gemini"] || available["openai"] {
		t.Errorf("unexpected providers %+v", resp.Providers)
	}
	if resp.Scan.CaptureDelayMs != 1500 || resp.Scan.RetryDelayMs != 1000 || resp.Scan.DisplayDelayMs != 3000 {
		t.Errorf("unexpected scan timings %+v", resp.Scan)
	}
}

func TestConfigHandler_GetNoProvider(t *testing.T) {
	recorder := httptest.NewRecorder()
	NewConfigHandler(&config.Config{}).Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))

	var resp ConfigResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.ActiveProvider != "" {
		t.Errorf("ActiveProvider = %q, want empty", resp.ActiveProvider)
	}
	if resp.Database {
		t.Error("database should not be reported as initialized")
	}
}

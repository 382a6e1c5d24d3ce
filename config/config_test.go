package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Popup.Endpoint != "http://localhost:5000/predict" {
		t.Errorf("Popup.Endpoint = %q", cfg.Popup.Endpoint)
	}
	if cfg.Popup.TickInterval != time.Second {
		t.Errorf("Popup.TickInterval = %v, want 1s", cfg.Popup.TickInterval)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.LLM.Model != "llama3.1:8b" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.Auth.Enabled {
		t.Error("auth should be disabled by default")
	}
	if cfg.Scraper.AcceptLanguage != "en-US,en;q=0.9" {
		t.Errorf("Scraper.AcceptLanguage = %q", cfg.Scraper.AcceptLanguage)
	}
	if cfg.Verify.PassThreshold != 60 {
		t.Errorf("Verify.PassThreshold = %v, want 60", cfg.Verify.PassThreshold)
	}
	want := []time.Duration{0, 2 * time.Second, 5 * time.Second}
	if !reflect.DeepEqual(cfg.Engine.EscalationDelays, want) {
		t.Errorf("Engine.EscalationDelays = %v, want %v", cfg.Engine.EscalationDelays, want)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRUTHLENS_ENDPOINT", "http://verifier:9000/predict")
	t.Setenv("TRUTHLENS_REQUEST_TIMEOUT", "5s")
	t.Setenv("TRUTHLENS_PORT", "7000")
	t.Setenv("TRUTHLENS_AUTH_ENABLED", "true")
	t.Setenv("TRUTHLENS_API_KEYS", " a , b ,,")
	t.Setenv("TRUTHLENS_ESCALATION_DELAYS", "0s, 1s")
	t.Setenv("TRUTHLENS_RATE_RPS", "2.5")
	t.Setenv("TRUTHLENS_ACCEPT_LANGUAGE", "de-DE,de;q=0.9")

	cfg := Load()

	if cfg.Popup.Endpoint != "http://verifier:9000/predict" {
		t.Errorf("Popup.Endpoint = %q", cfg.Popup.Endpoint)
	}
	if cfg.Popup.RequestTimeout != 5*time.Second {
		t.Errorf("Popup.RequestTimeout = %v", cfg.Popup.RequestTimeout)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled {
		t.Error("auth should be enabled")
	}
	if !reflect.DeepEqual(cfg.Auth.APIKeys, []string{"a", "b"}) {
		t.Errorf("Auth.APIKeys = %v", cfg.Auth.APIKeys)
	}
	if !reflect.DeepEqual(cfg.Engine.EscalationDelays, []time.Duration{0, time.Second}) {
		t.Errorf("Engine.EscalationDelays = %v", cfg.Engine.EscalationDelays)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("RateLimit.RequestsPerSecond = %v", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.Scraper.AcceptLanguage != "de-DE,de;q=0.9" {
		t.Errorf("Scraper.AcceptLanguage = %q", cfg.Scraper.AcceptLanguage)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TRUTHLENS_PORT", "not-a-port")
	t.Setenv("TRUTHLENS_TICK_INTERVAL", "soon")
	t.Setenv("TRUTHLENS_ESCALATION_DELAYS", "x,y")

	cfg := Load()

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want fallback 5000", cfg.Server.Port)
	}
	if cfg.Popup.TickInterval != time.Second {
		t.Errorf("Popup.TickInterval = %v, want fallback 1s", cfg.Popup.TickInterval)
	}
	if len(cfg.Engine.EscalationDelays) != 3 {
		t.Errorf("Engine.EscalationDelays = %v, want default", cfg.Engine.EscalationDelays)
	}
}

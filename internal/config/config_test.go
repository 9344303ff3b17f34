package config

import (
	"testing"
	"time"
)

// mapBackend is a test double for ConfigBackend.
type mapBackend struct {
	data map[string]any
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return "", false, nil
	}
	return s, true, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, isInt := v.(int)
	if !isInt {
		return 0, false, nil
	}
	return i, true, nil
}

func (b *mapBackend) SetString(key, val string) error { b.data[key] = val; return nil }
func (b *mapBackend) SetInt(key string, val int) error { b.data[key] = val; return nil }
func (b *mapBackend) Delete(key string) error          { delete(b.data, key); return nil }

func emptyBackend() *mapBackend {
	return &mapBackend{data: make(map[string]any)}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		if s.env != "" {
			t.Setenv(s.env, "")
		}
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 7870 {
		t.Errorf("Server.Port = %d, want 7870", cfg.Server.Port)
	}
	if cfg.Provider.Name != "ollama" {
		t.Errorf("Provider.Name = %q, want ollama", cfg.Provider.Name)
	}
	if cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("Provider.Timeout = %v, want 30s", cfg.Provider.Timeout)
	}
	if cfg.Provider.MaxRetries != 3 {
		t.Errorf("Provider.MaxRetries = %d, want 3", cfg.Provider.MaxRetries)
	}
	if cfg.Provider.InitialBackoff != 500*time.Millisecond {
		t.Errorf("Provider.InitialBackoff = %v, want 500ms", cfg.Provider.InitialBackoff)
	}
	if cfg.RateLimit.MaxTokens != 20 {
		t.Errorf("RateLimit.MaxTokens = %v, want 20", cfg.RateLimit.MaxTokens)
	}
	if cfg.RateLimit.RefillRate != 0.5 {
		t.Errorf("RateLimit.RefillRate = %v, want 0.5", cfg.RateLimit.RefillRate)
	}
	if cfg.RateLimit.Window != time.Minute {
		t.Errorf("RateLimit.Window = %v, want 1m", cfg.RateLimit.Window)
	}
	if cfg.Prompt.MaxContextEntries != 3 {
		t.Errorf("Prompt.MaxContextEntries = %d, want 3", cfg.Prompt.MaxContextEntries)
	}
	if cfg.Prompt.RelevanceThreshold != 2.0 {
		t.Errorf("Prompt.RelevanceThreshold = %v, want 2.0", cfg.Prompt.RelevanceThreshold)
	}
	if cfg.Prompt.MaxMessageLength != 4000 {
		t.Errorf("Prompt.MaxMessageLength = %d, want 4000", cfg.Prompt.MaxMessageLength)
	}
	if !cfg.Prompt.IncludeGuardrails {
		t.Error("Prompt.IncludeGuardrails = false, want true")
	}
	if cfg.Prompt.Language != "en" {
		t.Errorf("Prompt.Language = %q, want en", cfg.Prompt.Language)
	}
	if cfg.Persona.Name != "Nadia Moreau" {
		t.Errorf("Persona.Name = %q", cfg.Persona.Name)
	}
	if cfg.Knowledge.Source != "" {
		t.Errorf("Knowledge.Source = %q, want empty (embedded)", cfg.Knowledge.Source)
	}
	if cfg.Knowledge.MinEntries != 10 {
		t.Errorf("Knowledge.MinEntries = %d, want 10", cfg.Knowledge.MinEntries)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := &mapBackend{data: map[string]any{
		"server.port":                5000,
		"provider.name":              "groq",
		"provider.timeout":           "45s",
		"ratelimit.refill_rate":      "1.5",
		"prompt.include_guardrails":  "false",
		"prompt.language":            "fr",
		"knowledge.source":           "/var/lib/askme/entries.db",
	}}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Provider.Name != "groq" {
		t.Errorf("Provider.Name = %q, want groq", cfg.Provider.Name)
	}
	if cfg.Provider.Timeout != 45*time.Second {
		t.Errorf("Provider.Timeout = %v, want 45s", cfg.Provider.Timeout)
	}
	if cfg.RateLimit.RefillRate != 1.5 {
		t.Errorf("RateLimit.RefillRate = %v, want 1.5", cfg.RateLimit.RefillRate)
	}
	if cfg.Prompt.IncludeGuardrails {
		t.Error("Prompt.IncludeGuardrails = true, want false")
	}
	if cfg.Prompt.Language != "fr" {
		t.Errorf("Prompt.Language = %q, want fr", cfg.Prompt.Language)
	}
	if cfg.Knowledge.Source != "/var/lib/askme/entries.db" {
		t.Errorf("Knowledge.Source = %q", cfg.Knowledge.Source)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	clearEnv(t)

	b := &mapBackend{data: map[string]any{
		"provider.name": "groq",
		"server.port":   5000,
	}}

	t.Setenv("ASKME_PROVIDER_NAME", "gemini")
	t.Setenv("ASKME_SERVER_PORT", "6000")
	t.Setenv("ASKME_PROVIDER_INITIAL_BACKOFF", "250ms")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider.Name != "gemini" {
		t.Errorf("Provider.Name = %q, want gemini", cfg.Provider.Name)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Provider.InitialBackoff != 250*time.Millisecond {
		t.Errorf("Provider.InitialBackoff = %v, want 250ms", cfg.Provider.InitialBackoff)
	}
}

func TestSecretsComeFromEnvOnly(t *testing.T) {
	clearEnv(t)

	// A key placed in the backend must be ignored.
	b := &mapBackend{data: map[string]any{
		"groq.api_key": "backend-key",
	}}

	t.Setenv("ASKME_GEMINI_API_KEY", "env-gemini-key")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider.GroqAPIKey != "" {
		t.Errorf("GroqAPIKey = %q, want empty (backend secrets ignored)", cfg.Provider.GroqAPIKey)
	}
	if cfg.Provider.GeminiAPIKey != "env-gemini-key" {
		t.Errorf("GeminiAPIKey = %q, want env-gemini-key", cfg.Provider.GeminiAPIKey)
	}
}

func TestInvalidProviderName(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASKME_PROVIDER_NAME", "openai")

	if _, err := loadWith(emptyBackend()); err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
}

func TestInvalidLanguage(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASKME_PROMPT_LANGUAGE", "de")

	if _, err := loadWith(emptyBackend()); err == nil {
		t.Fatal("expected error for unsupported language, got nil")
	}
}

func TestMalformedValueFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASKME_SERVER_PORT", "not-a-number")
	t.Setenv("ASKME_PROVIDER_TIMEOUT", "yesterday")

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 7870 {
		t.Errorf("Server.Port = %d, want default 7870", cfg.Server.Port)
	}
	if cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("Provider.Timeout = %v, want default 30s", cfg.Provider.Timeout)
	}
}

func TestShowAllRedactsSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Provider.GroqAPIKey = "sk-secret"

	for _, info := range ShowAll(cfg) {
		if info.Key == "groq.api_key" {
			if info.Value != "(set)" {
				t.Errorf("groq.api_key value = %q, want (set)", info.Value)
			}
		}
		if info.Key == "gemini.api_key" {
			if info.Value != "(unset)" {
				t.Errorf("gemini.api_key value = %q, want (unset)", info.Value)
			}
		}
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if k == "groq.api_key" || k == "gemini.api_key" {
			t.Errorf("secret key %q listed as settable", k)
		}
	}
}

package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig
	Provider  ProviderConfig
	RateLimit RateLimitConfig
	Prompt    PromptConfig
	Persona   PersonaConfig
	Knowledge KnowledgeConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type ProviderConfig struct {
	Name           string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	GroqAPIKey     string
	GeminiAPIKey   string
}

type RateLimitConfig struct {
	MaxTokens  float64
	RefillRate float64
	Window     time.Duration
}

type PromptConfig struct {
	MaxContextEntries  int
	RelevanceThreshold float64
	MaxHistoryTurns    int
	MaxMessageLength   int
	IncludeGuardrails  bool
	Language           string
}

type PersonaConfig struct {
	Name  string
	Title string
}

type KnowledgeConfig struct {
	Source     string
	MinEntries int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 7870,
		},
		Provider: ProviderConfig{
			Name:           "ollama",
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			InitialBackoff: 500 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			MaxTokens:  20,
			RefillRate: 0.5,
			Window:     time.Minute,
		},
		Prompt: PromptConfig{
			MaxContextEntries:  3,
			RelevanceThreshold: 2.0,
			MaxHistoryTurns:    6,
			MaxMessageLength:   4000,
			IncludeGuardrails:  true,
			Language:           "en",
		},
		Persona: PersonaConfig{
			Name:  "Nadia Moreau",
			Title: "a senior backend engineer specializing in distributed systems",
		},
		Knowledge: KnowledgeConfig{
			MinEntries: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, then applies
// environment overrides.
//
// On macOS the backend is UserDefaults (domain: com.askme.app). On Linux
// the backend is a JSON file at $XDG_CONFIG_HOME/askme/config.json.
// Environment variables (ASKME_*) override backend values on all
// platforms. Provider API keys are env-only and never touch the backend.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Provider.Name {
	case "groq", "gemini", "ollama":
	default:
		return fmt.Errorf("invalid provider.name %q: must be groq, gemini, or ollama", cfg.Provider.Name)
	}

	switch cfg.Prompt.Language {
	case "en", "fr":
	default:
		return fmt.Errorf("invalid prompt.language %q: must be en or fr", cfg.Prompt.Language)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.RateLimit.MaxTokens <= 0 {
		return fmt.Errorf("invalid ratelimit.max_tokens %v: must be positive", cfg.RateLimit.MaxTokens)
	}
	if cfg.RateLimit.RefillRate < 0 {
		return fmt.Errorf("invalid ratelimit.refill_rate %v: must be non-negative", cfg.RateLimit.RefillRate)
	}
	if cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("invalid ratelimit.window %v: must be positive", cfg.RateLimit.Window)
	}
	if cfg.Provider.Timeout <= 0 {
		return fmt.Errorf("invalid provider.timeout %v: must be positive", cfg.Provider.Timeout)
	}
	if cfg.Provider.MaxRetries < 1 {
		return fmt.Errorf("invalid provider.max_retries %d: must be at least 1", cfg.Provider.MaxRetries)
	}
	if cfg.Prompt.MaxMessageLength <= 0 {
		return fmt.Errorf("invalid prompt.max_message_length %d: must be positive", cfg.Prompt.MaxMessageLength)
	}
	if cfg.Knowledge.MinEntries < 1 {
		return fmt.Errorf("invalid knowledge.min_entries %d: must be at least 1", cfg.Knowledge.MinEntries)
	}

	return nil
}

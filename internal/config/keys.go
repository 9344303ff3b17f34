package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "ASKME_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "provider.name", typ: kString, env: "ASKME_PROVIDER_NAME",
		apply:   func(cfg *Config, v any) { cfg.Provider.Name = v.(string) },
		extract: func(cfg Config) any { return cfg.Provider.Name },
	},
	{
		key: "provider.model", typ: kString, env: "ASKME_PROVIDER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Provider.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Provider.Model },
	},
	{
		key: "provider.base_url", typ: kString, env: "ASKME_PROVIDER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Provider.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Provider.BaseURL },
	},
	{
		key: "provider.timeout", typ: kDuration, env: "ASKME_PROVIDER_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Provider.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Provider.Timeout },
	},
	{
		key: "provider.max_retries", typ: kInt, env: "ASKME_PROVIDER_MAX_RETRIES",
		apply:   func(cfg *Config, v any) { cfg.Provider.MaxRetries = v.(int) },
		extract: func(cfg Config) any { return cfg.Provider.MaxRetries },
	},
	{
		key: "provider.initial_backoff", typ: kDuration, env: "ASKME_PROVIDER_INITIAL_BACKOFF",
		apply:   func(cfg *Config, v any) { cfg.Provider.InitialBackoff = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Provider.InitialBackoff },
	},
	{
		key: "groq.api_key", typ: kString, env: "ASKME_GROQ_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Provider.GroqAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Provider.GroqAPIKey },
	},
	{
		key: "gemini.api_key", typ: kString, env: "ASKME_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Provider.GeminiAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Provider.GeminiAPIKey },
	},
	{
		key: "ratelimit.max_tokens", typ: kFloat, env: "ASKME_RATELIMIT_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.RateLimit.MaxTokens = v.(float64) },
		extract: func(cfg Config) any { return cfg.RateLimit.MaxTokens },
	},
	{
		key: "ratelimit.refill_rate", typ: kFloat, env: "ASKME_RATELIMIT_REFILL_RATE",
		apply:   func(cfg *Config, v any) { cfg.RateLimit.RefillRate = v.(float64) },
		extract: func(cfg Config) any { return cfg.RateLimit.RefillRate },
	},
	{
		key: "ratelimit.window", typ: kDuration, env: "ASKME_RATELIMIT_WINDOW",
		apply:   func(cfg *Config, v any) { cfg.RateLimit.Window = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.RateLimit.Window },
	},
	{
		key: "prompt.max_context_entries", typ: kInt, env: "ASKME_PROMPT_MAX_CONTEXT_ENTRIES",
		apply:   func(cfg *Config, v any) { cfg.Prompt.MaxContextEntries = v.(int) },
		extract: func(cfg Config) any { return cfg.Prompt.MaxContextEntries },
	},
	{
		key: "prompt.relevance_threshold", typ: kFloat, env: "ASKME_PROMPT_RELEVANCE_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Prompt.RelevanceThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Prompt.RelevanceThreshold },
	},
	{
		key: "prompt.max_history_turns", typ: kInt, env: "ASKME_PROMPT_MAX_HISTORY_TURNS",
		apply:   func(cfg *Config, v any) { cfg.Prompt.MaxHistoryTurns = v.(int) },
		extract: func(cfg Config) any { return cfg.Prompt.MaxHistoryTurns },
	},
	{
		key: "prompt.max_message_length", typ: kInt, env: "ASKME_PROMPT_MAX_MESSAGE_LENGTH",
		apply:   func(cfg *Config, v any) { cfg.Prompt.MaxMessageLength = v.(int) },
		extract: func(cfg Config) any { return cfg.Prompt.MaxMessageLength },
	},
	{
		key: "prompt.include_guardrails", typ: kBool, env: "ASKME_PROMPT_INCLUDE_GUARDRAILS",
		apply:   func(cfg *Config, v any) { cfg.Prompt.IncludeGuardrails = v.(bool) },
		extract: func(cfg Config) any { return cfg.Prompt.IncludeGuardrails },
	},
	{
		key: "prompt.language", typ: kString, env: "ASKME_PROMPT_LANGUAGE",
		apply:   func(cfg *Config, v any) { cfg.Prompt.Language = v.(string) },
		extract: func(cfg Config) any { return cfg.Prompt.Language },
	},
	{
		key: "persona.name", typ: kString, env: "ASKME_PERSONA_NAME",
		apply:   func(cfg *Config, v any) { cfg.Persona.Name = v.(string) },
		extract: func(cfg Config) any { return cfg.Persona.Name },
	},
	{
		key: "persona.title", typ: kString, env: "ASKME_PERSONA_TITLE",
		apply:   func(cfg *Config, v any) { cfg.Persona.Title = v.(string) },
		extract: func(cfg Config) any { return cfg.Persona.Title },
	},
	{
		key: "knowledge.source", typ: kString, env: "ASKME_KNOWLEDGE_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Knowledge.Source = v.(string) },
		extract: func(cfg Config) any { return cfg.Knowledge.Source },
	},
	{
		key: "knowledge.min_entries", typ: kInt, env: "ASKME_KNOWLEDGE_MIN_ENTRIES",
		apply:   func(cfg *Config, v any) { cfg.Knowledge.MinEntries = v.(int) },
		extract: func(cfg Config) any { return cfg.Knowledge.MinEntries },
	},
	{
		key: "log.level", typ: kString, env: "ASKME_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

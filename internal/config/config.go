package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Usage ledger. postgres:// URLs use the postgres driver; anything else
	// is a SQLite file path. Empty disables the ledger entirely.
	DatabaseURL string

	// Async generation queue. Empty disables the async path and the worker.
	RedisURL      string
	WorkerEnabled bool

	// TTS provider
	TTSProvider   string // "openai" (default) or "elevenlabs"
	OpenAIKey     string
	OpenAIBaseURL string // override for proxies / compatible endpoints
	ElevenLabsKey string
	VoiceID       string // default voice override (empty = profile default)
	ModelID       string // default model override (empty = profile default)

	// Audio assembly
	FFmpegPath string // binary name or path (empty = "ffmpeg" from PATH)
	TempDir    string // parent for per-call scratch dirs (empty = system default)
	OutputDir  string // where async jobs write finished audio

	// Worker
	MaxConcurrentJobs int

	// Retention: usage records older than this many days are purged at
	// startup. 0 keeps everything.
	UsageRetentionDays int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:        getEnv("DATABASE_URL", "data/usage.db"),
		RedisURL:           getEnv("REDIS_URL", ""),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		TTSProvider:        getEnv("TTS_PROVIDER", "openai"),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		ElevenLabsKey:      getEnv("ELEVENLABS_API_KEY", ""),
		VoiceID:            getEnv("TTS_VOICE_ID", ""),
		ModelID:            getEnv("TTS_MODEL_ID", ""),
		FFmpegPath:         getEnv("FFMPEG_PATH", ""),
		TempDir:            getEnv("TEMP_DIR", ""),
		OutputDir:          getEnv("OUTPUT_DIR", "data/audio"),
		MaxConcurrentJobs:  getEnvInt("MAX_CONCURRENT_JOBS", 2),
		UsageRetentionDays: getEnvInt("USAGE_RETENTION_DAYS", 0),
	}

	// The active provider must have a credential
	switch cfg.TTSProvider {
	case "", "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required")
		}
	case "elevenlabs":
		if cfg.ElevenLabsKey == "" {
			return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
		}
	default:
		return nil, fmt.Errorf("unknown TTS_PROVIDER %q", cfg.TTSProvider)
	}

	return cfg, nil
}

// ProviderAPIKey returns the credential for the configured provider.
func (c *Config) ProviderAPIKey() string {
	if c.TTSProvider == "elevenlabs" {
		return c.ElevenLabsKey
	}
	return c.OpenAIKey
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

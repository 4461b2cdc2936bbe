// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when no generation credential is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required")

const (
	GenerationModeChunked = "chunked"
	GenerationModeStream  = "stream"
)

type Config struct {
	Environment  string
	ServerPort   string
	DatabasePath string
	CORSOrigin   string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIMaxTokens int

	// GenerationMode selects between one completion replayed word by word
	// ("chunked") and native provider streaming ("stream").
	GenerationMode   string
	StreamDelay      time.Duration
	ContextMaxTokens int

	RateLimitTurns  int
	RateLimitWindow time.Duration
}

// Load reads configuration from environment variables or .env file and
// validates it.
func Load() (*Config, error) {
	cfg := LoadWithoutValidation()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithoutValidation reads the same settings for tools that never call
// the model, such as the seeder.
func LoadWithoutValidation() *Config {
	env := os.Getenv("ENV")
	if strings.ToLower(env) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := &Config{
		Environment:      env,
		ServerPort:       getEnv("SERVER_PORT", "3001"),
		DatabasePath:     getEnv("DATABASE_PATH", "data/chat.db"),
		CORSOrigin:       getEnv("CORS_ORIGIN", "http://localhost:5173"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxTokens:  getEnvAsInt("OPENAI_MAX_TOKENS", 1024),
		GenerationMode:   strings.ToLower(getEnv("GENERATION_MODE", GenerationModeChunked)),
		StreamDelay:      getEnvAsDuration("STREAM_DELAY", 30*time.Millisecond),
		ContextMaxTokens: getEnvAsInt("CONTEXT_MAX_TOKENS", 6000),
		RateLimitTurns:   getEnvAsInt("RATE_LIMIT_TURNS", 20),
		RateLimitWindow:  getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
	return cfg
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return ErrMissingAPIKey
	}
	switch c.GenerationMode {
	case GenerationModeChunked, GenerationModeStream:
	default:
		return fmt.Errorf("GENERATION_MODE must be %q or %q, got %q",
			GenerationModeChunked, GenerationModeStream, c.GenerationMode)
	}
	if c.StreamDelay < 0 {
		return errors.New("STREAM_DELAY must not be negative")
	}
	if c.OpenAIMaxTokens <= 0 {
		return errors.New("OPENAI_MAX_TOKENS must be positive")
	}
	return nil
}

// IsProduction reports whether ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration accepts Go durations ("30ms") or plain milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
	return defaultValue
}

// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	MaxTokens int
	Timeout   time.Duration

	// ContextMaxTokens bounds the history sent with each request. Zero disables trimming.
	ContextMaxTokens int
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ContextMaxTokens < 0 {
		return fmt.Errorf("context max tokens cannot be negative")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Model:            "gpt-4o-mini",
		MaxTokens:        1024,
		Timeout:          2 * time.Minute,
		ContextMaxTokens: 6000,
	}
}

// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"
)

// GenerationMode selects where fragments come from.
type GenerationMode string

const (
	// ModeChunked requests one completion and replays it word by word.
	ModeChunked GenerationMode = "chunked"
	// ModeStream forwards the provider's native streaming deltas.
	ModeStream GenerationMode = "stream"
)

const (
	defaultStreamDelay = 30 * time.Millisecond
	dbSaveTimeout      = 5 * time.Second
	historyLoadTimeout = 10 * time.Second
)

// DisconnectReason is stored on a turn abandoned by its client.
const DisconnectReason = "Client disconnected"

const DefaultSystemInstruction = `You are a helpful AI assistant for a construction document management platform called Muro.
You help users analyze construction documents, compare bids, review specifications, and answer questions about their projects.
Keep responses concise but informative. Use markdown formatting when helpful (bullet points, bold for emphasis).
If you don't have enough context to answer a question, ask for clarification.`

type Config struct {
	Mode              GenerationMode
	StreamDelay       time.Duration // pause between replayed words in chunked mode
	SystemInstruction string
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeChunked, ModeStream:
	default:
		return fmt.Errorf("unknown generation mode %q", c.Mode)
	}
	if c.StreamDelay < 0 {
		return fmt.Errorf("stream delay cannot be negative")
	}
	if c.SystemInstruction == "" {
		return fmt.Errorf("system instruction is required")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Mode:              ModeChunked,
		StreamDelay:       defaultStreamDelay,
		SystemInstruction: DefaultSystemInstruction,
	}
}

// File: internal/services/ai/history.go
package ai

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/iyunix/go-muro/internal/domain"
)

// perMessageOverhead approximates the role and separator tokens the chat
// format adds around each message.
const perMessageOverhead = 4

type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	codec tokenizer.Codec
}

var (
	sharedCodec    tokenizer.Codec
	sharedCodecErr error
	codecOnce      sync.Once
)

// NewTokenCounter returns a cl100k_base counter. The codec is loaded once.
func NewTokenCounter() (TokenCounter, error) {
	codecOnce.Do(func() {
		sharedCodec, sharedCodecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	if sharedCodecErr != nil {
		return nil, sharedCodecErr
	}
	return &tiktokenCounter{codec: sharedCodec}, nil
}

func (c *tiktokenCounter) Count(text string) int {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return len(text)/4 + 1
	}
	return len(ids)
}

// FitHistory keeps the most recent messages whose combined size fits budget,
// dropping from the oldest end. A non-positive budget drops everything.
func FitHistory(history []domain.ChatMessage, budget int, counter TokenCounter) []domain.ChatMessage {
	if budget <= 0 {
		return nil
	}

	used := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := counter.Count(history[i].Content) + perMessageOverhead
		if used+cost > budget {
			break
		}
		used += cost
		start = i
	}
	return history[start:]
}

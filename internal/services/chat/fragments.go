// File: internal/services/chat/fragments.go
package chat

import (
	"context"
	"time"
	"unicode"

	"github.com/iyunix/go-muro/internal/services/ai"
)

// splitWords cuts text into alternating runs of non-space and space
// characters. Concatenating the result yields text again.
func splitWords(text string) []string {
	var parts []string
	start := 0
	inSpace := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if i == 0 {
			inSpace = space
			continue
		}
		if space != inSpace {
			parts = append(parts, text[start:i])
			start = i
			inSpace = space
		}
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

// produceChunked requests one completion and replays it word by word.
func produceChunked(ctx context.Context, gen Generator, req ai.Request, delay time.Duration, out chan<- string) error {
	text, err := gen.GetCompletion(ctx, req)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var timer *time.Timer
	if delay > 0 {
		timer = time.NewTimer(delay)
		timer.Stop()
		defer timer.Stop()
	}

	for i, word := range splitWords(text) {
		if i > 0 && timer != nil {
			timer.Reset(delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- word:
		}
	}
	return nil
}

// produceStream forwards provider deltas as they arrive.
func produceStream(ctx context.Context, gen Generator, req ai.Request, out chan<- string) error {
	return gen.StreamCompletion(ctx, req, func(delta string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- delta:
			return nil
		}
	})
}

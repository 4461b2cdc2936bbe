// File: cmd/diagnostic/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/iyunix/go-muro/internal/config"
	"github.com/iyunix/go-muro/internal/domain"
	"github.com/iyunix/go-muro/internal/services/ai"
)

// diagnostic sends one prompt with the server's settings and reports how the
// provider answered, including the classified message a user would see.
func main() {
	prompt := flag.String("prompt", "Reply with the single word: ready", "prompt to send")
	stream := flag.Bool("stream", false, "use native streaming")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	aiConfig := ai.DefaultConfig()
	aiConfig.APIKey = cfg.OpenAIAPIKey
	aiConfig.BaseURL = cfg.OpenAIBaseURL
	aiConfig.Model = cfg.OpenAIModel
	aiConfig.MaxTokens = cfg.OpenAIMaxTokens

	counter, err := ai.NewTokenCounter()
	if err != nil {
		log.Fatalf("tokenizer: %v", err)
	}
	provider, err := ai.NewOpenAIProvider(aiConfig, counter)
	if err != nil {
		log.Fatalf("provider: %v", err)
	}

	fmt.Printf("Model: %s\n", cfg.OpenAIModel)
	if cfg.OpenAIBaseURL != "" {
		fmt.Printf("Base URL: %s\n", cfg.OpenAIBaseURL)
	}

	req := ai.Request{
		System:  "You are a connectivity check.",
		History: []domain.ChatMessage{},
		Prompt:  *prompt,
	}
	ctx, cancel := context.WithTimeout(context.Background(), aiConfig.Timeout)
	defer cancel()

	if *stream {
		err = provider.StreamCompletion(ctx, req, func(delta string) error {
			fmt.Print(delta)
			return nil
		})
		fmt.Println()
	} else {
		var text string
		text, err = provider.GetCompletion(ctx, req)
		if err == nil {
			fmt.Printf("Response: %s\n", text)
		}
	}

	if err != nil {
		typ, msg := ai.Classify(err)
		fmt.Printf("Generation failed [%s]: %s\n", typ, msg)
		fmt.Printf("Detail: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

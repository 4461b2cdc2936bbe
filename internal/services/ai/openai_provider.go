// File: internal/services/ai/openai_provider.go
package ai

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/iyunix/go-muro/internal/domain"
)

type OpenAIProvider struct {
	config  *Config
	client  *openai.Client
	counter TokenCounter
}

func NewOpenAIProvider(config *Config, counter TokenCounter) (*OpenAIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		config:  config,
		client:  openai.NewClientWithConfig(clientConfig),
		counter: counter,
	}, nil
}

func (p *OpenAIProvider) GetCompletion(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req))
	if err != nil {
		return "", p.wrap("completion", "failed to create completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", &AIError{
			Type:      ErrTypeUnavailable,
			Operation: "completion",
			Model:     p.config.Model,
			Message:   "empty completion response",
		}
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) StreamCompletion(ctx context.Context, req Request, onDelta func(string) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	streamReq := p.buildRequest(req)
	streamReq.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, streamReq)
	if err != nil {
		return p.wrap("streaming", "failed to create stream", err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return p.wrap("streaming", "stream receive error", err)
		}

		if len(response.Choices) == 0 {
			continue
		}
		delta := response.Choices[0].Delta.Content
		if delta != "" && onDelta != nil {
			if cbErr := onDelta(delta); cbErr != nil {
				return cbErr
			}
		}
	}
}

func (p *OpenAIProvider) buildRequest(req Request) openai.ChatCompletionRequest {
	history := req.History
	if p.counter != nil && p.config.ContextMaxTokens > 0 {
		reserved := p.counter.Count(req.System) + p.counter.Count(req.Prompt) + p.config.MaxTokens
		history = FitHistory(history, p.config.ContextMaxTokens-reserved, p.counter)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    chatRole(m.Role),
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	return openai.ChatCompletionRequest{
		Model:     p.config.Model,
		Messages:  messages,
		MaxTokens: p.config.MaxTokens,
	}
}

func (p *OpenAIProvider) wrap(operation, msg string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	e := NewProviderError(operation, msg, err)
	e.Model = p.config.Model
	return e
}

func chatRole(r domain.Role) string {
	switch r {
	case domain.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case domain.RoleUser:
		return openai.ChatMessageRoleUser
	default:
		return openai.ChatMessageRoleUser
	}
}

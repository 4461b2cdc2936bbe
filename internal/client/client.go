package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iyunix/go-muro/internal/domain"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its timeout must allow for
// long-lived streams.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 0},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stream is an open event stream; callers must Close it.
type Stream struct {
	*Decoder
	body io.ReadCloser
}

func (s *Stream) Close() error { return s.body.Close() }

type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := c.doJSON(ctx, http.MethodGet, "/conversations", nil, &out)
	return out, err
}

func (c *Client) CreateConversation(ctx context.Context, title string) (*domain.Conversation, error) {
	body := map[string]interface{}{}
	if title != "" {
		body["title"] = title
	}
	var out domain.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/conversations", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var out domain.Conversation
	if err := c.doJSON(ctx, http.MethodGet, conversationPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenameConversation(ctx context.Context, id, title string) (*domain.Conversation, error) {
	var out domain.Conversation
	if err := c.doJSON(ctx, http.MethodPatch, conversationPath(id), map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, conversationPath(id), nil, nil)
}

func (c *Client) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var out []domain.Message
	err := c.doJSON(ctx, http.MethodGet, conversationPath(conversationID)+"/messages", nil, &out)
	return out, err
}

// SendMessage posts a user message and returns the reply stream.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (*Stream, error) {
	return c.openStream(ctx, conversationPath(conversationID)+"/messages", map[string]string{"content": content})
}

// Retry regenerates the latest failed reply and returns its stream.
func (c *Client) Retry(ctx context.Context, conversationID string) (*Stream, error) {
	return c.openStream(ctx, conversationPath(conversationID)+"/retry", nil)
}

func (c *Client) openStream(ctx context.Context, path string, body interface{}) (*Stream, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return &Stream{Decoder: NewDecoder(resp.Body), body: resp.Body}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	}
	return apiErr
}

func conversationPath(id string) string {
	return "/conversations/" + url.PathEscape(id)
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ClientConfig configures a Client
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client talks to an Ollama-compatible model server
type Client struct {
	baseURL   string
	http      *http.Client
	streaming *http.Client
	logger    *zap.Logger
	connected atomic.Bool
}

// NewClient creates a new model-server client
func NewClient(config ClientConfig) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: config.Timeout,
		},
		// Streams may legitimately run longer than any fixed deadline; the
		// caller's context bounds them instead.
		streaming: &http.Client{},
		logger:    logger.Named("llm"),
	}
}

// BaseURL returns the endpoint this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Connected reports the outcome of the last connection check
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// CheckConnection issues a lightweight listing call to see whether the server is up
func (c *Client) CheckConnection(ctx context.Context) (bool, error) {
	resp, err := c.get(ctx, "/api/tags")
	if err != nil {
		c.connected.Store(false)
		return false, classifyTransport(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.connected.Store(false)
		return false, &StatusError{Code: resp.StatusCode}
	}

	c.connected.Store(true)
	return true, nil
}

// ListModels returns the installed models in the order the server reports them
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	resp, err := c.get(ctx, "/api/tags")
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}
	if tags.Models == nil {
		return []Model{}, nil
	}
	return tags.Models, nil
}

// Generate sends a non-streaming request and returns the complete response text
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	c.logger.Debug("generate request",
		zap.String("model", req.Model),
		zap.Int("prompt_length", len(req.Prompt)),
		zap.Int("system_length", len(req.System)))

	resp, err := c.post(ctx, c.http, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var response GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		if err == io.EOF {
			return "", ErrEmptyResponse
		}
		return "", fmt.Errorf("failed to decode response: %w", classifyTransport(err))
	}

	c.logger.Debug("generate response",
		zap.Int("response_length", len(response.Response)),
		zap.Bool("done", response.Done),
		zap.Int("eval_count", response.EvalCount))

	if response.Response == "" {
		return "", ErrEmptyResponse
	}
	return response.Response, nil
}

// GenerateStream opens a streaming request. The returned Stream must be
// closed by the caller; cancelling ctx ends it silently.
func (c *Client) GenerateStream(ctx context.Context, req Request) (*Stream, error) {
	c.logger.Debug("stream request",
		zap.String("model", req.Model),
		zap.Int("prompt_length", len(req.Prompt)))

	resp, err := c.post(ctx, c.streaming, req, true)
	if err != nil {
		return nil, err
	}
	return NewStream(ctx, resp.Body, c.logger), nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.http.Do(httpReq)
}

// post sends a generation request and returns the response once its status
// is known to be successful
func (c *Client) post(ctx context.Context, client *http.Client, req Request, stream bool) (*http.Response, error) {
	options := DefaultOptions().Merge(req.Options)
	body, err := json.Marshal(generateRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  stream,
		Options: &options,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		c.logger.Debug("generate transport error", zap.Error(err))
		return nil, classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, classifyStatus(resp.StatusCode, strings.TrimSpace(string(data)), req.Model)
	}
	return resp, nil
}

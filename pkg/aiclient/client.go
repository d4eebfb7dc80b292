package aiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dokuflow/document-pipeline/pkg/logger"
)

// Client is the hosted extraction endpoint used by the pipeline. Generate
// sends file bytes plus a text instruction and returns the model's free-form
// text; Embed returns a fixed-dimension vector for a chunk of text.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Ping(ctx context.Context) error
}

// GenerateRequest carries one extraction call.
type GenerateRequest struct {
	File        []byte
	MimeType    string
	Instruction string
	// Combined requests (full text + structured fields in one response)
	// get the longer timeout.
	Combined bool
}

// Config for the HTTP client.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	EmbedModel      string
	CallTimeout     time.Duration
	CombinedTimeout time.Duration
	MaxAttempts     int
	RetryBaseDelay  time.Duration
}

// HTTPError carries the upstream status code so callers can distinguish
// retryable server errors from permanent client errors.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("extraction endpoint returned %d: %s", e.StatusCode, e.Body)
}

type httpClient struct {
	cfg    Config
	http   *http.Client
	logger logger.Logger
}

// NewClient creates the HTTP-backed extraction client.
func NewClient(cfg Config, log logger.Logger) Client {
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if cfg.CombinedTimeout == 0 {
		cfg.CombinedTimeout = 90 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = time.Second
	}
	return &httpClient{
		cfg:    cfg,
		http:   &http.Client{},
		logger: log,
	}
}

type generateRequest struct {
	Model       string `json:"model"`
	Instruction string `json:"instruction"`
	File        string `json:"file,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type generateResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (c *httpClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	timeout := c.cfg.CallTimeout
	if req.Combined {
		timeout = c.cfg.CombinedTimeout
	}

	body := generateRequest{
		Model:       c.cfg.Model,
		Instruction: req.Instruction,
		MimeType:    req.MimeType,
	}
	if len(req.File) > 0 {
		body.File = base64.StdEncoding.EncodeToString(req.File)
	}

	var out generateResponse
	if err := c.do(ctx, timeout, "/v1/generate", body, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("extraction endpoint error: %s", out.Error)
	}
	return out.Text, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (c *httpClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body := embedRequest{
		Model: c.cfg.EmbedModel,
		Input: text,
	}

	var out embedResponse
	if err := c.do(ctx, c.cfg.CallTimeout, "/v1/embeddings", body, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("embedding endpoint error: %s", out.Error)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedding endpoint returned empty vector")
	}
	return out.Embedding, nil
}

func (c *httpClient) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, c.cfg.BaseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("extraction endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("extraction endpoint unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// do posts JSON with a per-attempt timeout. Server-side (5xx) errors and
// per-call timeouts are retried with exponential backoff; client-side (4xx)
// errors are returned immediately.
func (c *httpClient) do(ctx context.Context, timeout time.Duration, path string, body, out interface{}) error {
	delay := c.cfg.RetryBaseDelay

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := c.doOnce(ctx, timeout, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(ctx, err) || attempt == c.cfg.MaxAttempts {
			return err
		}

		c.logger.Warn("AI call retrying",
			logger.String("path", path),
			logger.Int("attempt", attempt),
			logger.Duration("backoff", delay),
			logger.Error(err),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}

func (c *httpClient) doOnce(ctx context.Context, timeout time.Duration, path string, body, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// retryable reports whether an attempt error warrants another attempt: a
// 5xx status or a per-call timeout, but never a cancelled parent context.
func retryable(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	ttsPath    = "/v1/tts"
	healthPath = "/v1/health"

	contentTypeMsgpack = "application/msgpack"
	userAgent          = "vox/0.1.0"
)

// ErrServerUnavailable indicates the server could not be reached at all,
// as opposed to rejecting a request.
var ErrServerUnavailable = errors.New("inference server unavailable")

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (for testing).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// Client submits synthesis requests to a running inference server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient constructs a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// BaseURL returns the configured server endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Synthesize submits req and copies the audio response to out. It returns
// the number of audio bytes written.
func (c *Client) Synthesize(ctx context.Context, req Request, out io.Writer) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	payload, err := msgpack.Marshal(&req)
	if err != nil {
		return 0, fmt.Errorf("encode tts request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ttsPath, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build tts request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeMsgpack)
	httpReq.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrServerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, decodeStatusError(resp)
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return written, fmt.Errorf("read audio response: %w", err)
	}
	return written, nil
}

// SynthesizeFile synthesizes into path, creating parent directories as
// needed. The partial file is removed when synthesis fails.
func (c *Client) SynthesizeFile(ctx context.Context, req Request, path string) (int64, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}

	written, synthErr := c.Synthesize(ctx, req, file)
	closeErr := file.Close()
	if synthErr != nil {
		_ = os.Remove(path)
		return written, synthErr
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return written, fmt.Errorf("close output file: %w", closeErr)
	}
	return written, nil
}

// Health probes the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err != nil || len(body) == 0 {
		return statusErr
	}

	// The server reports errors as JSON; fall back to the raw body.
	var payload struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			statusErr.Message = payload.Message
		case payload.Detail != nil:
			statusErr.Message = fmt.Sprint(payload.Detail)
		}
	}
	if statusErr.Message == "" {
		statusErr.Message = strings.TrimSpace(string(body))
	}
	return statusErr
}

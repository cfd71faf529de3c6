// Package api talks to the remote training backend: question bank, employee
// directory, speech-to-text, answer evaluation and viva record storage.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/viva/internal/metrics"
)

const maxErrorBody = 512

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HealthPath string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Client is safe for concurrent use.
type Client struct {
	base       *url.URL
	healthPath string
	http       *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("api base url is empty")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url %q: %w", opts.BaseURL, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	healthPath := opts.HealthPath
	if healthPath == "" {
		healthPath = "/"
	}

	return &Client{
		base:       base,
		healthPath: healthPath,
		http:       httpClient,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}, nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, call string, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return &TransportError{Op: call, Err: err}
	}
	return c.do(req, call, out)
}

func (c *Client) postJSON(ctx context.Context, call string, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", call, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: call, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, call, out)
}

func (c *Client) postForm(ctx context.Context, call string, path string, form *multipartForm, out any) error {
	body, contentType, err := form.finish()
	if err != nil {
		return fmt.Errorf("%s: encode form: %w", call, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), body)
	if err != nil {
		return &TransportError{Op: call, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, call, out)
}

// do executes req and decodes a 2xx JSON body into out. A 404 becomes a
// NotFoundError carrying the backend's error text.
func (c *Client) do(req *http.Request, call string, out any) (err error) {
	req.Header.Set("Accept", "application/json")
	started := time.Now()
	defer func() {
		c.metrics.ObserveRequest(call, Outcome(err), time.Since(started))
		if err != nil && c.logger != nil {
			c.logger.Debug("api request failed", "call", call, "url", req.URL.String(), "error", err.Error())
		}
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: call, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{Op: call, Message: backendMessage(resp.Body, "not found")}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			Op:         call,
			StatusCode: resp.StatusCode,
			Err:        errors.New(backendMessage(resp.Body, http.StatusText(resp.StatusCode))),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: call, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// backendMessage extracts {"error": "..."} or {"message": "..."} from an
// error body, falling back to the trimmed raw text.
func backendMessage(body io.Reader, fallback string) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && !strings.HasPrefix(text, "<") {
		return text
	}
	return fallback
}

// Ready probes the configured health path.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.healthPath, nil), nil)
	if err != nil {
		return &TransportError{Op: "ready", Err: err}
	}
	return c.do(req, "ready", nil)
}

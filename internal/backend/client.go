// Package backend is the JSON client for the mining-operations REST API and its AI proxy.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/minefleet-dispatch/internal/config"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultAITimeout = 120 * time.Second
	healthTimeout    = 5 * time.Second
)

var ErrUnavailable = errors.New("backend unavailable")

// APIError is a non-2xx reply. Message is the backend's own text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

func (e *APIError) ServerMessage() string {
	return e.Message
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token; every request made with the
// returned context forwards it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *Meta           `json:"meta"`
	Message string          `json:"message"`
}

type Client struct {
	baseURL   string
	http      *http.Client
	aiHTTP    *http.Client
	pageLimit int
	log       zerolog.Logger
}

func New(cfg config.BackendConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	aiTimeout := cfg.AITimeout
	if aiTimeout <= 0 {
		aiTimeout = defaultAITimeout
	}
	limit := cfg.PageLimit
	if limit <= 0 {
		limit = 1000
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: timeout},
		aiHTTP:    &http.Client{Timeout: aiTimeout},
		pageLimit: limit,
		log:       log,
	}
}

type call struct {
	client *http.Client
	method string
	path   string
	query  url.Values
	body   interface{}
	out    interface{}
}

// do sends one request and decodes the envelope's data into c.out. The full
// envelope is returned so callers can read meta and message.
func (c *Client) do(ctx context.Context, req call) (*envelope, error) {
	var reader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFrom(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	client := req.client
	if client == nil {
		client = c.http
	}
	started := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", ErrUnavailable, req.method, req.path, err)
	}
	c.log.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(started)).
		Msg("backend call")

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if req.out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, req.out); err != nil {
			return nil, fmt.Errorf("decode %s %s data: %w", req.method, req.path, err)
		}
	}
	return &env, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	_, err := c.do(ctx, call{method: http.MethodGet, path: path, query: query, out: out})
	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) error {
	_, err := c.do(ctx, call{method: method, path: path, body: body, out: out})
	return err
}

func escape(id string) string {
	return url.PathEscape(id)
}

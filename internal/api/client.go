// Package api is the typed client for the storefront REST backend.
package api

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

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/EgoistMa/tokomo-app/internal/config"
)

const (
	statusOK = "ok"

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 8 << 20
)

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client whose transport is instrumented with otelhttp.
func New(cfg config.APIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewWithHTTPClient(cfg.BaseURL, &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewWithHTTPClient creates a Client on top of an existing http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type request struct {
	method      string
	path        string
	token       string
	query       url.Values
	body        any
	raw         io.Reader
	contentType string
}

// call performs req and decodes the envelope's data into out (when non-nil).
// It returns the envelope message on success.
func (c *Client) call(ctx context.Context, req request, out any) (string, error) {
	var body io.Reader
	contentType := req.contentType
	switch {
	case req.raw != nil:
		body = req.raw
	case req.body != nil:
		buf, err := json.Marshal(req.body)
		if err != nil {
			return "", fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %s %s: %v", ErrTransport, req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", ErrTransport, err)
	}

	log.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Backend call")

	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if !success {
				return "", newError(resp.StatusCode, http.StatusText(resp.StatusCode), nil)
			}
			return "", fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, req.method, req.path, err)
		}
	} else if !success {
		return "", newError(resp.StatusCode, http.StatusText(resp.StatusCode), nil)
	}

	if !success || !strings.EqualFold(env.Status, statusOK) {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", newError(resp.StatusCode, msg, env.Data)
	}

	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, req.method, req.path, err)
		}
	}
	return env.Message, nil
}

// get is a shorthand for an authenticated GET.
func (c *Client) get(ctx context.Context, token, path string, query url.Values, out any) error {
	_, err := c.call(ctx, request{method: http.MethodGet, path: path, token: token, query: query}, out)
	return err
}

// send is a shorthand for a JSON request with a body.
func (c *Client) send(ctx context.Context, method, token, path string, body, out any) (string, error) {
	return c.call(ctx, request{method: method, path: path, token: token, body: body}, out)
}

// IsTransient reports whether err came from the network or an undecodable body.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrMalformedResponse)
}

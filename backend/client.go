// Package backend is the REST client for the Trig Point backend API.
//
// Every call is bounded by a timeout and every failure is classified into the
// front-end error taxonomy: transport failures become TransportError (timeout
// or unreachable), non-2xx responses become RejectedError carrying the
// backend's "detail" string, and undecodable success bodies become
// ErrMalformedResponse.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/trigpoint-web/internal/errors"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout       = 20 * time.Second
	defaultAuthTimeout   = 10 * time.Second
	defaultUploadTimeout = 60 * time.Second

	maxErrorBody = 64 << 10
)

// Client talks to the backend API. It is safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	authTimeout   time.Duration
	uploadTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeouts sets the bounds for JSON calls, /auth calls and uploads.
// Zero values keep the defaults.
func WithTimeouts(request, auth, upload time.Duration) Option {
	return func(c *Client) {
		if request > 0 {
			c.timeout = request
		}
		if auth > 0 {
			c.authTimeout = auth
		}
		if upload > 0 {
			c.uploadTimeout = upload
		}
	}
}

// New creates a Client for the backend at baseURL (e.g. "http://127.0.0.1:9000").
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{},
		timeout:       defaultTimeout,
		authTimeout:   defaultAuthTimeout,
		uploadTimeout: defaultUploadTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// BaseURL returns the backend origin this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method      string
	path        string
	query       url.Values
	accessToken string
	jsonBody    any
	body        io.Reader
	contentType string
	timeout     time.Duration
}

// do performs the request and decodes a 2xx body into out (when out is non-nil
// and the body is not empty).
func (c *Client) do(ctx context.Context, r request, out any) error {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := r.body
	contentType := r.contentType
	if r.jsonBody != nil {
		buf, err := json.Marshal(r.jsonBody)
		if err != nil {
			return fmt.Errorf("[backend] marshal %s %s: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(buf)
		contentType = "application/json"
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("[backend] new request %s %s: %w", r.method, r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.accessToken != "" {
		(&oauth2.Token{AccessToken: r.accessToken, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejection(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", apperrors.ErrMalformedResponse, r.method, r.path, err)
	}
	return nil
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &apperrors.TransportError{Kind: apperrors.ErrTimeout, Cause: err}
	}
	return &apperrors.TransportError{Kind: apperrors.ErrUnreachable, Cause: err}
}

// rejection builds a RejectedError, picking up {"detail": "..."} when the
// backend sent one. FastAPI validation errors carry a list under detail;
// those are ignored and the status message is used instead.
func rejection(resp *http.Response) error {
	rejected := &apperrors.RejectedError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return rejected
	}
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil {
		if detail, ok := eb.Detail.(string); ok {
			rejected.Detail = detail
		}
	}
	return rejected
}

func escape(segment string) string {
	return url.PathEscape(segment)
}

// Package gateway talks to the upstream workbook REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/rehttp"
	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/node"
)

const (
	sessionHeader = "X-Metabase-Session"
	apiKeyHeader  = "X-API-KEY"

	defaultTimeout    = 2 * time.Minute
	defaultMaxRetries = 3
	maxErrorBody      = 4096
)

// Client is satisfied by anything that can issue JSON requests against the
// upstream API. Paths are absolute, e.g. "/api/card/12". Responses are
// decoded into out unless out is nil.
type Client interface {
	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
	Put(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string) error
}

// HTTPClient is a Client over net/http. It authenticates lazily and renews
// the session once when a request comes back with a 401.
type HTTPClient struct {
	baseURL string
	cfg     config.Gateway
	client  *http.Client

	mu      sync.Mutex
	session string
}

var _ Client = &HTTPClient{}

// NewHTTPClient builds a client from gateway settings. Temporary network
// errors on idempotent requests are retried by the transport.
func NewHTTPClient(cfg config.Gateway) (*HTTPClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: gateway url is required", errdefs.ErrConfiguration)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: gateway url: %v", errdefs.ErrConfiguration, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: gateway url must be http or https, got %q", errdefs.ErrConfiguration, cfg.URL)
	}
	if cfg.APIKey == "" && cfg.SessionID == "" && (cfg.Email == "" || cfg.Password == "") {
		return nil, fmt.Errorf("%w: provide an api key, a session id, or email and password", errdefs.ErrConfiguration)
	}

	timeout := defaultTimeout
	if cfg.Timeout != "" {
		timeout, err = time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: timeout: %v", errdefs.ErrConfiguration, err)
		}
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	transport := rehttp.NewTransport(
		http.DefaultTransport.(*http.Transport).Clone(),
		rehttp.RetryAll(
			rehttp.RetryMaxRetries(retries),
			rehttp.RetryHTTPMethods(http.MethodGet, http.MethodPut, http.MethodDelete),
			rehttp.RetryTemporaryErr(),
		),
		rehttp.ExpJitterDelay(200*time.Millisecond, 5*time.Second),
	)

	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout, Transport: transport},
		session: cfg.SessionID,
	}, nil
}

// NewHTTPClientWith is NewHTTPClient with a caller supplied http.Client,
// used by tests.
func NewHTTPClientWith(cfg config.Gateway, hc *http.Client) (*HTTPClient, error) {
	c, err := NewHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	c.client = hc
	return c, nil
}

// Get issues a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string, out interface{}) error {
	return c.request(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.request(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request.
func (c *HTTPClient) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.request(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, path string) error {
	return c.request(ctx, http.MethodDelete, path, nil, nil)
}

// Check verifies the credentials by fetching the current user.
func (c *HTTPClient) Check(ctx context.Context) (map[string]interface{}, error) {
	var user map[string]interface{}
	if err := c.Get(ctx, "/api/user/current", &user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login opens a new session with the configured email and password.
func (c *HTTPClient) Login(ctx context.Context) error {
	if !c.canLogin() {
		return fmt.Errorf("%w: cannot open a session without email and password", errdefs.ErrConfiguration)
	}
	payload, err := json.Marshal(map[string]string{
		"username": c.cfg.Email,
		"password": c.cfg.Password,
	})
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, http.MethodPost, "/api/session", payload, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := statusError(http.MethodPost, "/api/session", resp); err != nil {
		return err
	}
	var session struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	if session.ID == "" {
		return fmt.Errorf("%w: login returned no session id", errdefs.ErrMigration)
	}
	c.mu.Lock()
	c.session = session.ID
	c.mu.Unlock()
	log.Debug().Str("user", c.cfg.Email).Msg("opened session")
	return nil
}

// Do issues a request and returns the raw response, whatever its status.
// The caller closes the body.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	if c.needsSession() {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.send(ctx, method, path, payload, true)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !c.canLogin() {
		return resp, nil
	}
	resp.Body.Close()

	log.Info().Str("path", path).Msg("session rejected, re-authenticating")
	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, payload, true)
}

func (c *HTTPClient) request(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusError(method, path, resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := node.DecodeInto(data, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", errdefs.ErrSchema, method, path, err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, payload []byte, auth bool) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.BasicUser != "" {
		req.SetBasicAuth(c.cfg.BasicUser, c.cfg.BasicPassword)
	}
	if auth {
		if c.cfg.APIKey != "" {
			req.Header.Set(apiKeyHeader, c.cfg.APIKey)
		} else if s := c.currentSession(); s != "" {
			req.Header.Set(sessionHeader, s)
		}
	}

	log.Trace().Str("method", method).Str("path", path).Int("bytes", len(payload)).Msg("request")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *HTTPClient) currentSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *HTTPClient) needsSession() bool {
	return c.cfg.APIKey == "" && c.currentSession() == "" && c.canLogin()
}

func (c *HTTPClient) canLogin() bool {
	return c.cfg.APIKey == "" && c.cfg.Email != "" && c.cfg.Password != ""
}

func statusError(method, path string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &errdefs.StatusError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
}

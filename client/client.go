// Package client is the portal's client side session cache: it logs in, keeps the session
// token in a TokenStore and sends it with every API call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/dormportal/tenants"
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// APIError is a non-2xx response from the portal.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal: %d %s: %s", e.Status, e.Kind, e.Message)
}

// Session is the result of a successful login.
type Session struct {
	User      tenants.Profile `json:"user"`
	Token     string          `json:"session_token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type Client struct {
	baseURL string
	store   TokenStore
	http    *http.Client
}

type Option func(*Client)

// WithBaseTransport sets the transport beneath the session transport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport.(*Transport).Base = rt
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

func New(baseURL string, store TokenStore, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("[client.New] base url is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[client.New] token store is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		http: &http.Client{
			Transport: &Transport{Store: store},
			Timeout:   30 * time.Second,
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// State reports whether a session token is held locally. It does not contact the server.
func (c *Client) State() State {
	token, err := c.store.Load()
	if err != nil || token == "" {
		return Unauthenticated
	}
	return Authenticated
}

func (c *Client) LoginWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.login(ctx, "/api/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) LoginWithFederatedToken(ctx context.Context, idToken string) (*Session, error) {
	return c.login(ctx, "/api/auth/federated", map[string]string{"idToken": idToken})
}

func (c *Client) login(ctx context.Context, path string, body any) (*Session, error) {
	var session Session
	if err := c.do(withoutSession(ctx), http.MethodPost, path, body, &session); err != nil {
		return nil, err
	}
	if err := c.store.Save(session.Token); err != nil {
		return nil, fmt.Errorf("[Client.login] save session token: %w", err)
	}
	return &session, nil
}

func (c *Client) Me(ctx context.Context) (*tenants.Profile, error) {
	var profile tenants.Profile
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Logout revokes the session on the server and always forgets it locally, even when the
// server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	remoteErr := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("[Client.Logout] clear session token: %w", err)
	}
	return remoteErr
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("[Client.do] encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("[Client.do] build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("[Client.do] %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Kind, apiErr.Message = payload.Error, payload.Detail
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("[Client.do] decode response: %w", err)
	}
	return nil
}

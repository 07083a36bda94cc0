// Package client is a Go client for the session server. It stores the
// credential cookies in a jar and transparently renews the access token:
// when a request comes back 401, the renewal coordinator issues (or joins)
// a single refresh round-trip and the original request is replayed once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-session-server/users"
)

type Client struct {
	baseURL string
	http    *http.Client
	coord   *Coordinator
}

// Option defines a function type to modify a Client instance.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is
// installed on it if it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[client.New] baseURL is required")
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "[client.New] cookiejar")
		}
		c.http.Jar = jar
	}

	coord, err := NewCoordinator(c.refreshToken)
	if err != nil {
		return nil, err
	}
	c.coord = coord

	return c, nil
}

// Do sends the request, and if it is rejected with 401 renews the access
// token through the coordinator and replays the request exactly once.
// A second 401 on the replayed request is returned as-is; it never
// re-enters the renewal flow.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	drainAndClose(resp.Body)

	if err := c.coord.Renew(req.Context()); err != nil {
		return nil, errors.Wrap(err, "[Client.Do] renew")
	}

	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	return c.http.Do(retry)
}

// Signup registers a new account and stores the credential cookies.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*users.User, error) {
	user, err := c.postCredentials(ctx, "/auth/signup", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	c.coord.Reset()
	return user, nil
}

// Login authenticates and stores the credential cookies.
func (c *Client) Login(ctx context.Context, email, password string) (*users.User, error) {
	user, err := c.postCredentials(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	c.coord.Reset()
	return user, nil
}

// Logout invalidates the session server-side and enters the logged-out
// state locally. It never fails from the caller's perspective.
func (c *Client) Logout(ctx context.Context) {
	c.coord.SetLoggedOut()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return
	}
	drainAndClose(resp.Body)
}

// Profile fetches the authenticated user's view, renewing the access
// token through the coordinator if needed.
func (c *Client) Profile(ctx context.Context) (*users.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/profile", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, responseError("profile", resp)
	}

	var user users.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Wrap(err, "[Client.Profile] decode")
	}
	return &user, nil
}

// LoggedOut reports whether the client has entered the logged-out state.
func (c *Client) LoggedOut() bool { return c.coord.LoggedOut() }

// refreshToken is the coordinator's renewal round-trip. The server sets a
// fresh access cookie which lands in the jar.
func (c *Client) refreshToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh-token", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return responseError("refresh-token", resp)
	}
	return nil
}

func (c *Client) postCredentials(ctx context.Context, path string, body map[string]string) (*users.User, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, responseError(path, resp)
	}

	var decoded struct {
		User *users.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrapf(err, "[Client] %s decode", path)
	}
	return decoded.User, nil
}

// cloneRequest prepares a request for a single replay, rewinding the body
// where possible. The first send appended the jar's cookies of that moment
// to the Cookie header; the stale copy is dropped so the jar re-injects
// only its current cookies on the replay.
func cloneRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	retry.Header.Del("Cookie")
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("[Client.Do] cannot replay request without GetBody")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Do] GetBody")
	}
	retry.Body = body
	return retry, nil
}

func responseError(op string, resp *http.Response) error {
	var decoded struct {
		Description string `json:"error_description"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	if decoded.Description != "" {
		return fmt.Errorf("%s: %s (status %d)", op, decoded.Description, resp.StatusCode)
	}
	return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

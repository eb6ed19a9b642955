// Package client talks to the toastd HTTP API.
package client

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

	"github.com/gorilla/websocket"

	"github.com/jmylchreest/toastd/internal/httpapi"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// ErrNotFound is returned when the daemon does not know the toast.
var ErrNotFound = errors.New("toast not found")

// APIError is a non-success response from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("toastd: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("toastd: %s", e.Message)
}

// Client is a toastd API client.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Streams are not affected.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the daemon at addr, e.g. "http://127.0.0.1:7465".
func New(addr string, opts ...Option) (*Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid daemon address %q: %w", addr, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid daemon address %q: unsupported scheme %q", addr, base.Scheme)
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + "/api/v1"

	c := &Client{
		base:   base,
		http:   &http.Client{},
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Show raises a toast and returns its id.
func (c *Client) Show(ctx context.Context, req httpapi.ToastRequest) (string, error) {
	var resp httpapi.ShowResponse
	if err := c.do(ctx, http.MethodPost, "/toasts", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Update patches a toast. Unknown ids are ignored by the daemon.
func (c *Client) Update(ctx context.Context, id string, req httpapi.ToastRequest) error {
	return c.do(ctx, http.MethodPatch, "/toasts/"+url.PathEscape(id), req, nil)
}

// Hide closes a toast.
func (c *Client) Hide(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/toasts/"+url.PathEscape(id)+"/hide", nil, nil)
}

// Destroy removes a toast immediately.
func (c *Client) Destroy(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/toasts/"+url.PathEscape(id), nil, nil)
}

// HideAll closes every toast.
func (c *Client) HideAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/toasts/hide-all", nil, nil)
}

// Get returns a single toast or ErrNotFound.
func (c *Client) Get(ctx context.Context, id string) (model.Toast, error) {
	var t model.Toast
	err := c.do(ctx, http.MethodGet, "/toasts/"+url.PathEscape(id), nil, &t)
	return t, err
}

// State returns the current stack snapshot.
func (c *Client) State(ctx context.Context) (stack.Snapshot, error) {
	var s stack.Snapshot
	err := c.do(ctx, http.MethodGet, "/state", nil, &s)
	return s, err
}

// SetVisible shows or hides the whole stack.
func (c *Client) SetVisible(ctx context.Context, visible bool) error {
	return c.do(ctx, http.MethodPut, "/visible", httpapi.VisibleRequest{Visible: visible}, nil)
}

// Unfold sets the unfolded mode, or switches it when unfolded is nil.
func (c *Client) Unfold(ctx context.Context, unfolded *bool) error {
	var body any
	if unfolded != nil {
		body = httpapi.UnfoldRequest{Unfolded: unfolded}
	}
	return c.do(ctx, http.MethodPost, "/unfold", body, nil)
}

// Watch streams snapshots to fn until ctx is done or the daemon closes the
// stream. A clean close returns nil.
func (c *Client) Watch(ctx context.Context, fn func(stack.Snapshot)) error {
	u := *c.base
	u.Path += "/stream"
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("connect to %s: %w", u.String(), err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	for {
		var s stack.Snapshot
		if err := conn.ReadJSON(&s); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read snapshot: %w", err)
		}
		fn(s)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet && strings.HasPrefix(path, "/toasts/") {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e httpapi.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

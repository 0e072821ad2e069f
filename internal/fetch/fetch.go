// Package fetch implements the JSON request helper used by the
// client-side core. Every call is cancellable through its context;
// bearer credentials are attached on demand.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrAborted is returned when a request was cancelled before completion.
var ErrAborted = errors.New("request was aborted")

// TokenSource supplies the current bearer credential. Returning an empty
// string sends the request unauthenticated.
type TokenSource func() string

// Client issues JSON requests against the dashboard API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
}

// Options controls a single request.
type Options struct {
	Method  string // defaults to GET
	Body    any    // marshalled to JSON when non-nil
	UseAuth bool
}

// NewClient creates a fetch client. token may be nil for servers that do
// not require auth.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, token: token}
}

// JSON performs the request and decodes the response body into out.
// out may be nil when the caller only cares about success.
func (c *Client) JSON(ctx context.Context, path string, opts Options, out any) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		buf, err := json.Marshal(opts.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if opts.UseAuth && c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrAborted, path)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("fetch failed (%d): %s", resp.StatusCode, bytes.TrimSpace(text))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

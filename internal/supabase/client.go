// Package supabase is a thin client for the PostgREST-style remote store:
// path-based resources with column=eq.value filters, select and order
// params, scoped to one user by the access token.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client communicates with a Supabase REST endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	token      string
	httpClient *http.Client
}

// New creates a Client for the given REST base URL. apiKey is the project
// anon key; token is the user's access token and determines row visibility.
func New(baseURL, apiKey, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		token:   token,
		httpClient: &http.Client{},
	}
}

// Token returns the access token the client was built with.
func (c *Client) Token() string {
	return c.token
}

// Eq formats a PostgREST equality filter value.
func Eq(v string) string {
	return "eq." + v
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		// Ask PostgREST to echo inserted rows back.
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		detail := strings.TrimSpace(string(data))
		if len(detail) > 512 {
			detail = detail[:512]
		}
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, detail)
	}
	return data, nil
}

// Get fetches rows from a resource path with the given filter params.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

// Post inserts a row and returns the inserted representation.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// Patch updates the rows matching params.
func (c *Client) Patch(ctx context.Context, path string, params url.Values, body any) error {
	_, err := c.do(ctx, http.MethodPatch, path, params, body)
	return err
}

// Delete removes the rows matching params.
func (c *Client) Delete(ctx context.Context, path string, params url.Values) error {
	_, err := c.do(ctx, http.MethodDelete, path, params, nil)
	return err
}

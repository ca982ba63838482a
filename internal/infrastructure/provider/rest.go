// Package provider holds the JSON-over-HTTP plumbing shared by the outbound provider clients.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/pkg/apperr"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// Client sends JSON requests to one provider base URL.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	auth    func(*http.Request)
}

func NewClient(name, baseURL string, timeout time.Duration, auth func(*http.Request)) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		auth:    auth,
	}
}

// Do sends in as JSON (when non-nil) and decodes a 2xx body into out (when non-nil).
// Non-2xx responses become apperr.Upstream (NotFound for 404) carrying the body.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", c.name, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.auth != nil {
		c.auth(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, err, c.name+" unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		kind := apperr.Upstream
		if resp.StatusCode == http.StatusNotFound {
			kind = apperr.NotFound
		}
		return apperr.Newf(kind, "%s %s %s: status %d", c.name, method, path, resp.StatusCode).WithBody(string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.Upstream, err, c.name+" returned an unreadable response")
	}
	return nil
}

package probe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// getJSON decodes a 200 response into v.
func (c *httpClient) getJSON(ctx context.Context, path string, v any) error {
	return c.do(ctx, http.MethodGet, path, http.StatusOK, v)
}

func (c *httpClient) do(ctx context.Context, method, path string, want int, v any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	if err != nil {
		return eris.Wrapf(err, "build %s %s", method, path)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "read %s %s", method, path)
	}
	if resp.StatusCode != want {
		return eris.Wrapf(ErrUnexpectedStatus, "%s %s: %d %s", method, path, resp.StatusCode, body)
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return eris.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

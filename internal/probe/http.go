package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/mirrorback/internal/domain/jsonvalue"
)

// HTTPClient wraps http.Client with the base URL and per-request timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// response is a fully read HTTP response.
type response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Elapsed time.Duration
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

// Get performs a GET request. extra is added to the request timeout.
func (c *HTTPClient) Get(ctx context.Context, path string, extra time.Duration) (*response, error) {
	return c.do(ctx, http.MethodGet, path, nil, nil, extra)
}

// Post performs a POST request with a raw JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body []byte, header http.Header) (*response, error) {
	return c.do(ctx, http.MethodPost, path, body, header, 0)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, header http.Header, extra time.Duration) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout+extra)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	out := &response{
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Body:    data,
		Elapsed: time.Since(start),
	}
	if out.Status >= http.StatusInternalServerError {
		return out, fmt.Errorf("%w: %s %s returned %d", ErrServerError, method, path, out.Status)
	}
	return out, nil
}

// expectStatus fails unless the response carries want.
func (r *response) expectStatus(want int) error {
	if r.Status != want {
		return fmt.Errorf("%w: got %d, want %d", ErrUnexpectedStatus, r.Status, want)
	}
	return nil
}

// expectClientError fails unless the response is a 4xx.
func (r *response) expectClientError() error {
	if r.Status < http.StatusBadRequest || r.Status >= http.StatusInternalServerError {
		return fmt.Errorf("%w: got %d, want 4xx", ErrUnexpectedStatus, r.Status)
	}
	return nil
}

func (r *response) decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: body is not the expected JSON: %w", ErrMismatch, err)
	}
	return nil
}

// value parses the body preserving member order and number literals.
func (r *response) value() (jsonvalue.Value, error) {
	v, err := jsonvalue.Parse(r.Body)
	if err != nil {
		return jsonvalue.Value{}, fmt.Errorf("%w: %w", ErrMismatch, err)
	}
	return v, nil
}

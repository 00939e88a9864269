package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/mirrorback/internal/domain/jsonvalue"
)

// Expected static root payload.
const (
	RootMessage = "Hello from FastAPI via go-asgi!"
	RootServer  = "FastAPI + Uvicorn"
	RootProxy   = "go-asgi reverse proxy"
)

// healthOverlapLead is how long the concurrent check waits after issuing the
// delayed request before probing /health.
const healthOverlapLead = 100 * time.Millisecond

// check is a single named conformance property.
type check struct {
	name string
	run  func(ctx context.Context, c *HTTPClient, cfg Config) error
}

// EchoBodies are the request bodies the echo round-trip check sends.
var EchoBodies = []string{ //nolint:gochecknoglobals // fixed probe corpus
	`{}`,
	`{"a":1}`,
	`{"nested":{"list":[1,2.5,"three",null,true,false],"z":"last","a":"first"}}`,
	`[1,2,3]`,
	`"just a string"`,
	`42`,
	`null`,
	`{"unicode":"héllo ✓","escaped":"<tag> & \"quote\""}`,
	`{"big":12345678901234567890,"exp":1e-7}`,
}

// checks returns every check in execution order.
func checks() []check {
	return []check{
		{name: "root", run: checkRoot},
		{name: "health", run: checkHealth},
		{name: "echo_roundtrip", run: checkEchoRoundTrip},
		{name: "echo_headers", run: checkEchoHeaders},
		{name: "echo_malformed", run: checkEchoMalformed},
		{name: "info_query_last_wins", run: checkInfo},
		{name: "async_invalid", run: checkAsyncInvalid},
		{name: "async_timing", run: checkAsyncTiming},
		{name: "async_non_blocking", run: checkAsyncNonBlocking},
		{name: "not_found", run: checkNotFound},
	}
}

func checkRoot(ctx context.Context, c *HTTPClient, _ Config) error {
	resp, err := c.Get(ctx, "/", 0)
	if err != nil {
		return err
	}
	if err := resp.expectStatus(http.StatusOK); err != nil {
		return err
	}
	var got map[string]any
	if err := resp.decode(&got); err != nil {
		return err
	}
	want := map[string]string{"message": RootMessage, "server": RootServer, "proxy": RootProxy}
	if len(got) != len(want) {
		return fmt.Errorf("%w: root has %d fields, want %d", ErrMismatch, len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			return fmt.Errorf("%w: root %q = %v, want %q", ErrMismatch, k, got[k], v)
		}
	}
	return nil
}

type healthBody struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
}

func getHealth(ctx context.Context, c *HTTPClient) (healthBody, time.Duration, error) {
	var body healthBody
	resp, err := c.Get(ctx, "/health", 0)
	if err != nil {
		return body, 0, err
	}
	if err := resp.expectStatus(http.StatusOK); err != nil {
		return body, 0, err
	}
	if err := resp.decode(&body); err != nil {
		return body, 0, err
	}
	if body.Status != "healthy" {
		return body, 0, fmt.Errorf("%w: health status %q", ErrMismatch, body.Status)
	}
	return body, resp.Elapsed, nil
}

func checkHealth(ctx context.Context, c *HTTPClient, _ Config) error {
	first, _, err := getHealth(ctx, c)
	if err != nil {
		return err
	}
	second, _, err := getHealth(ctx, c)
	if err != nil {
		return err
	}
	if second.Timestamp < first.Timestamp {
		return fmt.Errorf("%w: health timestamp went backwards (%f then %f)",
			ErrMismatch, first.Timestamp, second.Timestamp)
	}
	return nil
}

func checkEchoRoundTrip(ctx context.Context, c *HTTPClient, _ Config) error {
	for _, body := range EchoBodies {
		sent, err := jsonvalue.Parse([]byte(body))
		if err != nil {
			return fmt.Errorf("probe corpus entry %s: %w", body, err)
		}
		resp, err := c.Post(ctx, "/echo", []byte(body), nil)
		if err != nil {
			return err
		}
		if err := resp.expectStatus(http.StatusOK); err != nil {
			return fmt.Errorf("body %s: %w", body, err)
		}
		got, err := resp.value()
		if err != nil {
			return err
		}
		echoed, ok := got.Get("echoed")
		if !ok {
			return fmt.Errorf("%w: echo response has no echoed field", ErrMismatch)
		}
		if !jsonvalue.Equal(echoed, sent) {
			return fmt.Errorf("%w: body %s echoed differently", ErrMismatch, body)
		}
		method, _ := got.Get("method")
		if method.Str() != http.MethodPost {
			return fmt.Errorf("%w: echo method %q", ErrMismatch, method.Str())
		}
	}
	return nil
}

// ProbeHeader is sent on the header preservation check.
const ProbeHeader = "X-Mirrorback-Probe"

func checkEchoHeaders(ctx context.Context, c *HTTPClient, _ Config) error {
	h := http.Header{}
	h.Set(ProbeHeader, "ping")
	resp, err := c.Post(ctx, "/echo", []byte(`{"k":"v"}`), h)
	if err != nil {
		return err
	}
	if err := resp.expectStatus(http.StatusOK); err != nil {
		return err
	}
	var body struct {
		Headers map[string]string `json:"headers"`
	}
	if err := resp.decode(&body); err != nil {
		return err
	}
	for k, v := range body.Headers {
		if strings.EqualFold(k, ProbeHeader) {
			if v != "ping" {
				return fmt.Errorf("%w: header %s = %q", ErrMismatch, ProbeHeader, v)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: header %s not echoed", ErrMismatch, ProbeHeader)
}

func checkEchoMalformed(ctx context.Context, c *HTTPClient, _ Config) error {
	for _, body := range []string{`{"a":`, `not json`, ``, `{} {}`} {
		resp, err := c.Post(ctx, "/echo", []byte(body), nil)
		if err != nil {
			return err
		}
		if err := resp.expectClientError(); err != nil {
			return fmt.Errorf("body %q: %w", body, err)
		}
	}
	return nil
}

func checkInfo(ctx context.Context, c *HTTPClient, _ Config) error {
	q := url.Values{}
	q.Add("x", "1")
	q.Add("x", "2")
	q.Add("y", "only")
	resp, err := c.Get(ctx, "/info?"+q.Encode(), 0)
	if err != nil {
		return err
	}
	if err := resp.expectStatus(http.StatusOK); err != nil {
		return err
	}
	var body struct {
		Method      string            `json:"method"`
		URL         string            `json:"url"`
		QueryParams map[string]string `json:"query_params"`
	}
	if err := resp.decode(&body); err != nil {
		return err
	}
	if body.Method != http.MethodGet {
		return fmt.Errorf("%w: info method %q", ErrMismatch, body.Method)
	}
	if !strings.Contains(body.URL, "/info") {
		return fmt.Errorf("%w: info url %q", ErrMismatch, body.URL)
	}
	if body.QueryParams["x"] != "2" || body.QueryParams["y"] != "only" {
		return fmt.Errorf("%w: query params %v", ErrMismatch, body.QueryParams)
	}
	return nil
}

func checkAsyncInvalid(ctx context.Context, c *HTTPClient, _ Config) error {
	for _, seg := range []string{"abc", "-1", "1.5"} {
		resp, err := c.Get(ctx, "/async/"+seg, 0)
		if err != nil {
			return err
		}
		if err := resp.expectClientError(); err != nil {
			return fmt.Errorf("segment %q: %w", seg, err)
		}
	}
	return nil
}

func asyncPath(seconds uint64) string {
	return fmt.Sprintf("/async/%d", seconds)
}

func checkAsyncTiming(ctx context.Context, c *HTTPClient, cfg Config) error {
	d := time.Duration(cfg.DelaySeconds) * time.Second
	resp, err := c.Get(ctx, asyncPath(cfg.DelaySeconds), d)
	if err != nil {
		return err
	}
	if err := resp.expectStatus(http.StatusOK); err != nil {
		return err
	}
	var body struct {
		Message string `json:"message"`
		Async   bool   `json:"async"`
	}
	if err := resp.decode(&body); err != nil {
		return err
	}
	want := fmt.Sprintf("Completed after %d seconds", cfg.DelaySeconds)
	if body.Message != want || !body.Async {
		return fmt.Errorf("%w: async body %+v", ErrMismatch, body)
	}
	if resp.Elapsed < d || resp.Elapsed > d+cfg.Slack {
		return fmt.Errorf("%w: delay took %s, want within [%s, %s]", ErrMismatch, resp.Elapsed, d, d+cfg.Slack)
	}
	return nil
}

func checkAsyncNonBlocking(ctx context.Context, c *HTTPClient, cfg Config) error {
	d := time.Duration(cfg.DelaySeconds) * time.Second
	g, gctx := errgroup.WithContext(ctx)

	var delayedDone time.Time
	g.Go(func() error {
		resp, err := c.Get(gctx, asyncPath(cfg.DelaySeconds), d)
		if err != nil {
			return err
		}
		delayedDone = time.Now()
		return resp.expectStatus(http.StatusOK)
	})

	var healthDone time.Time
	var healthElapsed time.Duration
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		case <-time.After(healthOverlapLead):
		}
		_, elapsed, err := getHealth(gctx, c)
		if err != nil {
			return err
		}
		healthDone = time.Now()
		healthElapsed = elapsed
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if !healthDone.Before(delayedDone) {
		return fmt.Errorf("%w: /health finished after the delayed request", ErrMismatch)
	}
	if healthElapsed >= d {
		return fmt.Errorf("%w: /health took %s while a %s delay was pending", ErrMismatch, healthElapsed, d)
	}
	return nil
}

func checkNotFound(ctx context.Context, c *HTTPClient, _ Config) error {
	for _, path := range []string{"/does-not-exist", "/async", "/async/1/extra", "/echo/"} {
		resp, err := c.Get(ctx, path, 0)
		if err != nil {
			return err
		}
		if err := resp.expectStatus(http.StatusNotFound); err != nil {
			return fmt.Errorf("path %s: %w", path, err)
		}
	}
	return nil
}

package aftership

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://api.aftership.com/"
	DefaultVersion = "v4"
	DefaultTimeout = 150 * time.Second

	apiKeyHeader = "aftership-api-key"
)

// Observer receives one call per HTTP round trip. status is 0 when the
// request failed before a response arrived.
type Observer interface {
	ObserveRequest(operation string, status int, elapsed time.Duration)
}

// Connection is a client of the AfterShip REST API. It holds no per-request
// state and is safe for concurrent use.
type Connection struct {
	baseURL  string
	version  string
	apiKey   string
	httpc    *http.Client
	observer Observer
}

func New(baseURL, apiKey string) *Connection {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Connection{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: DefaultVersion,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Connection) WithTimeout(d time.Duration) *Connection {
	if d > 0 {
		c.httpc.Timeout = d
	}
	return c
}

func (c *Connection) WithVersion(v string) *Connection {
	if v != "" {
		c.version = strings.Trim(v, "/")
	}
	return c
}

func (c *Connection) WithHTTPClient(h *http.Client) *Connection {
	if h != nil {
		c.httpc = h
	}
	return c
}

func (c *Connection) WithObserver(o Observer) *Connection {
	c.observer = o
	return c
}

// ForKey returns a copy bound to apiKey that shares the HTTP client.
func (c *Connection) ForKey(apiKey string) *Connection {
	cp := *c
	cp.apiKey = apiKey
	return &cp
}

func (c *Connection) endpoint(resource string) string {
	return c.baseURL + "/" + c.version + resource
}

// do sends one request and decodes the envelope. body may be nil or
// pre-encoded JSON.
func (c *Connection) do(ctx context.Context, op, method, resource string, body []byte) (*envelope, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(resource), rdr)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.observe(op, 0, start)
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.observe(op, resp.StatusCode, start)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if resp.StatusCode/100 != 2 {
		return nil, newAPIError(resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return &env, nil
}

func (c *Connection) doJSON(ctx context.Context, op, method, resource string, v any) (*envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode body")
	}
	return c.do(ctx, op, method, resource, b)
}

func (c *Connection) observe(op string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(op, status, time.Since(start))
	}
}

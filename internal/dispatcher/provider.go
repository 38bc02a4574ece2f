package dispatcher

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

	"github.com/jmehdipour/officer-portal/internal/metrics"
)

const maxBody = 4 << 20

// Call is one vendor request. Body, when set, is sent as JSON.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is what came back from the vendor, whatever the status.
type Response struct {
	Endpoint string
	Status   int
	Body     []byte
	Latency  time.Duration
}

// StatusError reports a non-2xx vendor response.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vendor %s returned %d: %s", e.Endpoint, e.Status, e.Body)
}

// Retryable is true for 5xx.
func (e *StatusError) Retryable() bool { return e.Status >= 500 }

type Endpoint interface {
	Name() string
	Ready() bool
	Acquire() bool
	Do(ctx context.Context, c Call) (*Response, error)
}

// HTTPEndpoint is one vendor base URL guarded by its own breaker.
type HTTPEndpoint struct {
	vendor  string
	name    string
	baseURL string
	client  *http.Client
	br      *MicroBreaker
}

func NewHTTPEndpoint(vendor, name, baseURL string, timeoutMs, failThreshold, openForMs int) *HTTPEndpoint {
	if timeoutMs <= 0 {
		timeoutMs = 15000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPEndpoint{
		vendor:  vendor,
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:      NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *HTTPEndpoint) Name() string    { return p.name }
func (p *HTTPEndpoint) BaseURL() string { return p.baseURL }
func (p *HTTPEndpoint) Ready() bool     { return p.br.Ready() }
func (p *HTTPEndpoint) Acquire() bool   { return p.br.TryAcquire() }

// Do sends c. Transport errors and 5xx count against the breaker and come
// back as errors; a 4xx is a healthy endpoint and returns a Response with a StatusError.
func (p *HTTPEndpoint) Do(ctx context.Context, c Call) (*Response, error) {
	start := time.Now()
	res, err := p.send(ctx, c)
	latency := time.Since(start)
	metrics.VendorLatency.WithLabelValues(p.vendor).Observe(latency.Seconds())

	if err != nil {
		if ctx.Err() != nil {
			// the caller gave up; says nothing about the endpoint
			p.br.OnAbort()
			metrics.VendorRequests.WithLabelValues(p.vendor, p.name, "canceled").Inc()
		} else {
			p.fail("transport_error")
		}
		return nil, fmt.Errorf("vendor %s: %w", p.name, err)
	}
	res.Latency = latency

	switch {
	case res.Status >= 500:
		p.fail("server_error")
		return res, &StatusError{Endpoint: p.name, Status: res.Status, Body: snippet(res.Body)}
	case res.Status >= 400:
		p.succeed("client_error")
		return res, &StatusError{Endpoint: p.name, Status: res.Status, Body: snippet(res.Body)}
	default:
		p.succeed("ok")
		return res, nil
	}
}

func (p *HTTPEndpoint) succeed(outcome string) {
	p.br.OnSuccess()
	metrics.VendorRequests.WithLabelValues(p.vendor, p.name, outcome).Inc()
	metrics.BreakerOpen.WithLabelValues(p.name).Set(0)
}

func (p *HTTPEndpoint) fail(outcome string) {
	p.br.OnFailure()
	metrics.VendorRequests.WithLabelValues(p.vendor, p.name, outcome).Inc()
	if p.br.State() != "closed" {
		metrics.BreakerOpen.WithLabelValues(p.name).Set(1)
	}
}

func (p *HTTPEndpoint) send(ctx context.Context, c Call) (*Response, error) {
	u := p.baseURL + c.Path
	if len(c.Query) > 0 {
		u += "?" + c.Query.Encode()
	}

	var body io.Reader
	if c.Body != nil {
		b, err := json.Marshal(c.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	method := c.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, err
	}

	return &Response{Endpoint: p.name, Status: res.StatusCode, Body: b}, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}

// IsStatus reports whether err carries a vendor status and returns it.
func IsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	ok := errors.As(err, &se)
	return se, ok
}

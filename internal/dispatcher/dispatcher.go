package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jmehdipour/officer-portal/internal/config"
)

var (
	ErrNoHealthy   = errors.New("no healthy vendor endpoints")
	ErrNoAcquire   = errors.New("vendor endpoint not acquired")
	ErrNoEndpoints = errors.New("no vendor endpoints configured")
)

// Dispatcher spreads calls for one vendor over its endpoints.
type Dispatcher struct {
	vendor            string
	endpoints         []Endpoint
	roundRobinCounter atomic.Uint64
	maxAttempts       int
}

func NewDispatcher(vendor string, eps []Endpoint, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 2
	}

	return &Dispatcher{vendor: vendor, endpoints: eps, maxAttempts: maxAttempts}
}

// NewFromConfig builds a dispatcher over the enabled endpoints of vc.
func NewFromConfig(vendor string, vc config.VendorConfig) (*Dispatcher, error) {
	var eps []Endpoint
	for _, e := range vc.Endpoints {
		if !e.Enabled {
			continue
		}
		eps = append(eps, NewHTTPEndpoint(vendor, e.Name, e.BaseURL, e.TimeoutMs, e.Breaker.FailThreshold, e.Breaker.OpenForMs))
	}

	if len(eps) == 0 {
		return nil, fmt.Errorf("%s: %w", vendor, ErrNoEndpoints)
	}

	return NewDispatcher(vendor, eps, vc.MaxAttempts), nil
}

func (d *Dispatcher) Vendor() string { return d.vendor }

// BaseURL is the first endpoint's base, used for vendor token requests.
func (d *Dispatcher) BaseURL() string {
	for _, e := range d.endpoints {
		if h, ok := e.(*HTTPEndpoint); ok {
			return h.BaseURL()
		}
	}
	return ""
}

func (d *Dispatcher) selectEndpoint() (Endpoint, error) {
	healthy := make([]Endpoint, 0, len(d.endpoints))
	for _, e := range d.endpoints {
		if e.Ready() {
			healthy = append(healthy, e)
		}
	}

	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := d.roundRobinCounter.Add(1)
	idx := int((x - 1) % uint64(len(healthy)))

	return healthy[idx], nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, c Call) (*Response, error) {
	e, err := d.selectEndpoint()
	if err != nil {
		return nil, err
	}

	if !e.Acquire() {
		return nil, ErrNoAcquire
	}

	return e.Do(ctx, c)
}

// Do sends c, retrying on transport errors, 5xx and unavailable endpoints.
// A 4xx response is returned at once together with its *StatusError.
func (d *Dispatcher) Do(ctx context.Context, c Call) (*Response, error) {
	var last error
	for i := 0; i < d.maxAttempts; i++ {
		res, err := d.tryOnce(ctx, c)
		if err == nil {
			return res, nil
		}

		last = err
		if se, ok := IsStatus(err); ok && !se.Retryable() {
			return res, err
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if last == nil {
		last = fmt.Errorf("%s call failed", d.vendor)
	}

	return nil, last
}

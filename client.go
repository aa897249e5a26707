package fetch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sofatutor/go-fetch/internal/logging"
)

// ClientConfig configures a Client. The zero value is usable: the default
// agent and a no-op logger.
type ClientConfig struct {
	// Agent supplies connection management for every request that does not
	// carry its own. Nil selects DefaultAgent.
	Agent Agent
	// Logger receives debug-level pipeline events. Nil disables logging.
	Logger *zap.Logger
}

// Client runs the fetch pipeline. A single Client is safe for concurrent
// use; per-fetch state lives in the Request and Response values.
type Client struct {
	agent   Agent
	logger  *zap.Logger
	metrics *ClientMetrics
}

// ClientMetrics tracks client usage statistics.
type ClientMetrics struct {
	RequestCount      int64         // fetches started
	ErrorCount        int64         // fetches that returned an error
	RedirectCount     int64         // redirect hops followed
	TotalResponseTime time.Duration // summed time to terminal response
	mu                sync.Mutex
}

// NewClient creates a client from cfg.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		agent:   cfg.Agent,
		logger:  logger,
		metrics: &ClientMetrics{},
	}
}

// Metrics returns a copy of the current client metrics.
func (c *Client) Metrics() ClientMetrics {
	c.metrics.mu.Lock()
	defer c.metrics.mu.Unlock()
	return ClientMetrics{
		RequestCount:      c.metrics.RequestCount,
		ErrorCount:        c.metrics.ErrorCount,
		RedirectCount:     c.metrics.RedirectCount,
		TotalResponseTime: c.metrics.TotalResponseTime,
	}
}

func (c *Client) addMetric(fn func(m *ClientMetrics)) {
	c.metrics.mu.Lock()
	defer c.metrics.mu.Unlock()
	fn(c.metrics)
}

// Fetch builds a Request from input and opts, dispatches it, and runs the
// redirect state machine until a terminal response. input may be a URL
// string, a *url.URL, or a *Request. The returned Response exposes the
// single-use body contract; errors are always *FetchError.
func (c *Client) Fetch(ctx context.Context, input any, opts *Options) (*Response, error) {
	req, err := NewRequest(input, opts)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Do dispatches an already constructed Request.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	c.addMetric(func(m *ClientMetrics) { m.RequestCount++ })

	res, err := c.run(ctx, req)
	c.addMetric(func(m *ClientMetrics) {
		m.TotalResponseTime += time.Since(start)
		if err != nil {
			m.ErrorCount++
		}
	})
	if err != nil {
		c.logger.Debug("fetch failed",
			zap.String(logging.FieldComponent, logging.ComponentClient),
			zap.String(logging.FieldURL, req.URL()),
			zap.String(logging.FieldErrorKind, string(ErrorKindOf(err))),
			zap.Error(err))
	}
	return res, err
}

// run is the fetch loop: dispatch, inspect for a redirect, follow or return.
func (c *Client) run(ctx context.Context, req *Request) (*Response, error) {
	redirected := false
	for {
		hres, err := c.dispatch(ctx, req)
		if err != nil {
			return nil, err
		}

		location := hres.Header.Get("Location")
		if !isRedirectStatus(hres.StatusCode) || location == "" {
			// Redirect statuses without a Location are terminal.
			return c.buildResponse(req, hres, redirected)
		}

		switch req.redirect {
		case RedirectManual:
			return c.buildResponse(req, hres, redirected)
		case RedirectError:
			drainAndClose(hres.Body)
			return nil, newErrorf(KindNoRedirect,
				"uri requested responds with a redirect, redirect mode is set to error: %s", req.URL())
		}

		if req.counter+1 > req.follow {
			drainAndClose(hres.Body)
			return nil, newErrorf(KindMaxRedirect, "maximum redirect reached at: %s", req.URL())
		}

		next, err := redirectedRequest(req, hres.StatusCode, location)
		if err != nil {
			drainAndClose(hres.Body)
			return nil, err
		}
		drainAndClose(hres.Body)

		c.addMetric(func(m *ClientMetrics) { m.RedirectCount++ })
		c.logger.Debug("following redirect",
			zap.String(logging.FieldComponent, logging.ComponentRedirect),
			zap.Int(logging.FieldStatusCode, hres.StatusCode),
			zap.String(logging.FieldLocation, next.URL()),
			zap.Int(logging.FieldHop, next.counter))

		redirected = true
		req = next
	}
}

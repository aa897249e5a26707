package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/sofatutor/go-fetch/internal/decompress"
	"github.com/sofatutor/go-fetch/internal/logging"
)

var (
	defaultAgentOnce sync.Once
	defaultAgent     Agent
)

// DefaultAgent returns the shared connection agent: a pooled http.Transport
// with HTTP/2 over TLS enabled. The pipeline decodes response bodies itself,
// so the transport's own decompression is off.
func DefaultAgent() Agent {
	defaultAgentOnce.Do(func() {
		t := &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			DisableCompression:    true,
		}
		// HTTP/2 negotiation is best effort; HTTP/1.1 still works if it fails.
		_ = http2.ConfigureTransport(t)
		defaultAgent = t
	})
	return defaultAgent
}

// dispatch performs one transport round trip for req: it frames the request,
// arms the request-start timer, and hands back the raw wire response. The
// returned response body, when closed, releases the dispatch context.
func (c *Client) dispatch(ctx context.Context, req *Request) (*http.Response, error) {
	hreq, err := buildHTTPRequest(req)
	if err != nil {
		return nil, err
	}

	agent := req.agent
	if agent == nil {
		agent = c.agent
	}
	if agent == nil {
		agent = DefaultAgent()
	}

	dispatchCtx, cancel := context.WithCancelCause(ctx)
	hreq = hreq.WithContext(dispatchCtx)

	var headDone atomic.Bool
	var timer *time.Timer
	if req.timeout > 0 {
		timer = time.AfterFunc(req.timeout, func() {
			if headDone.Load() {
				return
			}
			cancel(newErrorf(KindRequestTimeout, "network timeout at: %s", req.URL()))
		})
	}

	start := time.Now()
	hres, err := agent.RoundTrip(hreq)
	headDone.Store(true)
	if timer != nil {
		timer.Stop()
	}
	if err != nil {
		cancel(nil)
		return nil, classifyTransportError(req, dispatchCtx, err)
	}

	c.logger.Debug("response head received",
		zap.String(logging.FieldComponent, logging.ComponentTransport),
		zap.String(logging.FieldMethod, req.method),
		zap.String(logging.FieldURL, req.URL()),
		zap.Int(logging.FieldStatusCode, hres.StatusCode),
		zap.Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()))

	// The dispatch context must outlive this call so body reads keep
	// working; closing the body is the release point.
	hres.Body = &releaseOnClose{rc: hres.Body, release: func() { cancel(nil) }}
	return hres, nil
}

// classifyTransportError maps a round-trip failure onto the error taxonomy.
// The request timer's cause wins over the generic context error; everything
// else is a system failure carrying the OS-level code when one is known.
func classifyTransportError(req *Request, ctx context.Context, err error) error {
	var fe *FetchError
	if cause := context.Cause(ctx); cause != nil {
		if errors.As(cause, &fe) {
			return fe
		}
	}
	if errors.As(err, &fe) {
		return fe
	}
	return wrapError(KindSystem, err,
		fmt.Sprintf("request to %s failed, reason: %s", req.URL(), err.Error()))
}

// sysErrorCode maps OS and resolver failures onto the stable codes the
// error taxonomy exposes.
func sysErrorCode(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "ENOTFOUND"
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case errors.Is(err, syscall.EPIPE):
		return "EPIPE"
	case errors.Is(err, syscall.ETIMEDOUT):
		return "ETIMEDOUT"
	}
	return ""
}

// releaseOnClose frees the dispatch context once the response body is done.
type releaseOnClose struct {
	rc      io.ReadCloser
	release func()
	once    sync.Once
}

func (r *releaseOnClose) Read(p []byte) (int, error) {
	return r.rc.Read(p)
}

func (r *releaseOnClose) Close() error {
	err := r.rc.Close()
	r.once.Do(r.release)
	return err
}

// buildResponse wraps a terminal wire response: header validation, body
// suppression for status codes that never carry one, and decompressor
// selection when the request opted into compression.
func (c *Client) buildResponse(req *Request, hres *http.Response, redirected bool) (*Response, error) {
	headers, err := NewHeadersFrom(hres.Header)
	if err != nil {
		_ = hres.Body.Close()
		return nil, wrapError(KindSystem, err,
			fmt.Sprintf("malformed response headers from %s: %s", req.URL(), err.Error()))
	}

	var source any
	switch {
	case hres.StatusCode == http.StatusNoContent,
		hres.StatusCode == http.StatusNotModified,
		req.method == http.MethodHead:
		// Never a body, regardless of headers; content-encoding may still
		// be echoed above.
		_ = hres.Body.Close()
	default:
		var stream io.ReadCloser = hres.Body
		if req.compress {
			if enc, ok := headers.Get("content-encoding"); ok {
				enc = strings.ToLower(strings.TrimSpace(enc))
				if decompress.Handles(enc) {
					c.logger.Debug("interposing decompressor",
						zap.String(logging.FieldComponent, logging.ComponentTransport),
						zap.String(logging.FieldURL, req.URL()),
						zap.String(logging.FieldEncoding, enc))
					stream = decompress.Reader(enc, stream)
				}
			}
		}
		source = io.Reader(stream)
	}

	res := &Response{
		url:        req.URL(),
		status:     hres.StatusCode,
		statusText: statusText(hres),
		headers:    headers,
		redirected: redirected,
	}
	res.body = newBody(source, req.size, req.timeout, req.URL(), headers)
	return res, nil
}

// statusText extracts the reason phrase from the wire status line, falling
// back to the standard phrase for the code.
func statusText(hres *http.Response) string {
	text := hres.Status
	if i := strings.IndexByte(text, ' '); i >= 0 {
		text = text[i+1:]
	}
	if text == "" {
		text = http.StatusText(hres.StatusCode)
	}
	return text
}

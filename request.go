package fetch

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RedirectMode selects how the fetch loop reacts to a 3xx response carrying
// a Location header.
type RedirectMode string

const (
	// RedirectFollow re-dispatches to the new location, up to the follow
	// limit. This is the default.
	RedirectFollow RedirectMode = "follow"
	// RedirectManual returns the 3xx response to the caller untouched.
	RedirectManual RedirectMode = "manual"
	// RedirectError fails the fetch with kind no-redirect.
	RedirectError RedirectMode = "error"
)

// DefaultFollow is the redirect hop limit applied when Options.Follow is
// left at zero.
const DefaultFollow = 20

// NoFollow disallows redirects entirely: the first redirect response fails
// the fetch with kind max-redirect.
const NoFollow = -1

// Agent supplies connection management (pooling, TLS, DNS) for the
// transport. Any http.RoundTripper works; agents may be shared across
// concurrent fetches.
type Agent interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// Options is the request description accepted by Fetch and NewRequest. The
// zero value matches the fetch defaults: GET, follow up to DefaultFollow
// redirects, compression on, no timeout, unbounded body size.
type Options struct {
	// Method defaults to GET. Standard method tokens are uppercased.
	Method string
	// Headers accepts anything NewHeadersFrom does: *Headers, ordered
	// [][]string pairs, map[string]string, map[string][]string, http.Header.
	Headers any
	// Body is the request body source: nil, string, []byte, url.Values,
	// *Blob, *FormData, io.Reader, or anything stringifiable.
	Body any
	// Redirect defaults to RedirectFollow.
	Redirect RedirectMode
	// Follow is the redirect hop limit. Zero selects DefaultFollow; use
	// NoFollow to reject any redirect.
	Follow int
	// DisableCompression turns off Accept-Encoding injection and transparent
	// response decompression.
	DisableCompression bool
	// Timeout bounds both the wait for response headers and body
	// consumption. Zero disables it.
	Timeout time.Duration
	// Size caps the accumulated response body in bytes. Zero is unbounded.
	Size int64
	// Agent overrides the default connection agent.
	Agent Agent
}

// Request is an immutable fetch descriptor. It exposes the Body contract;
// consuming the body disturbs it for any later dispatch or clone.
type Request struct {
	*body
	method   string
	url      *url.URL
	headers  *Headers
	redirect RedirectMode
	follow   int
	counter  int
	compress bool
	timeout  time.Duration
	size     int64
	agent    Agent
}

// NewRequest builds a Request from input, which may be a URL string, a
// *url.URL, or another *Request. Deriving from a Request inherits every
// field unless opts overrides it; the body source is shared with the
// original, not copied, so a stream body drains whichever copy reads first.
func NewRequest(input any, opts *Options) (*Request, error) {
	if opts == nil {
		opts = &Options{}
	}

	var base *Request
	var rawURL any = input
	if r, ok := input.(*Request); ok {
		base = r
		rawURL = r.url
	}

	u, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	method := opts.Method
	if method == "" {
		if base != nil {
			method = base.method
		} else {
			method = http.MethodGet
		}
	}
	method = normalizeMethod(method)

	var source any
	if opts.Body != nil {
		source = opts.Body
	} else if base != nil {
		source = base.source
	}
	if source != nil && (method == http.MethodGet || method == http.MethodHead) {
		return nil, typeError("Request with GET/HEAD method cannot have body")
	}

	headers := NewHeaders()
	if opts.Headers != nil {
		if headers, err = NewHeadersFrom(opts.Headers); err != nil {
			return nil, err
		}
	} else if base != nil {
		headers = base.headers.Clone()
	}

	redirect := opts.Redirect
	if redirect == "" {
		if base != nil {
			redirect = base.redirect
		} else {
			redirect = RedirectFollow
		}
	}
	switch redirect {
	case RedirectFollow, RedirectManual, RedirectError:
	default:
		return nil, typeError(fmt.Sprintf("invalid redirect mode %q", redirect))
	}

	follow := DefaultFollow
	switch {
	case opts.Follow > 0:
		follow = opts.Follow
	case opts.Follow == NoFollow:
		follow = 0
	case base != nil:
		follow = base.follow
	}

	compress := !opts.DisableCompression
	if base != nil && !opts.DisableCompression {
		compress = base.compress
	}

	timeout := opts.Timeout
	if timeout == 0 && base != nil {
		timeout = base.timeout
	}
	size := opts.Size
	if size == 0 && base != nil {
		size = base.size
	}
	agent := opts.Agent
	if agent == nil && base != nil {
		agent = base.agent
	}
	counter := 0
	if base != nil {
		counter = base.counter
	}

	req := &Request{
		method:   method,
		url:      u,
		headers:  headers,
		redirect: redirect,
		follow:   follow,
		counter:  counter,
		compress: compress,
		timeout:  timeout,
		size:     size,
		agent:    agent,
	}
	req.body = newBody(source, size, timeout, u.String(), headers)
	return req, nil
}

// Method returns the normalized request method.
func (r *Request) Method() string { return r.method }

// URL returns the absolute request URL.
func (r *Request) URL() string { return r.url.String() }

// Headers returns the live header map of the request.
func (r *Request) Headers() *Headers { return r.headers }

// Redirect returns the redirect mode.
func (r *Request) Redirect() RedirectMode { return r.redirect }

// Follow returns the redirect hop limit; zero means no redirect is allowed.
func (r *Request) Follow() int { return r.follow }

// Counter returns how many redirect hops this request has already followed.
func (r *Request) Counter() int { return r.counter }

// Compress reports whether transparent decompression is requested.
func (r *Request) Compress() bool { return r.compress }

// Timeout returns the request/body deadline; zero means disabled.
func (r *Request) Timeout() time.Duration { return r.timeout }

// Size returns the response body byte cap; zero means unbounded.
func (r *Request) Size() int64 { return r.size }

// Agent returns the configured connection agent, or nil for the default.
func (r *Request) Agent() Agent { return r.agent }

// Clone returns an independent copy of the request. A stream body is split
// by tee so both copies observe every chunk; cloning a disturbed body fails.
func (r *Request) Clone() (*Request, error) {
	headers := r.headers.Clone()
	nb, err := r.body.clone(headers)
	if err != nil {
		return nil, err
	}
	clone := *r
	clone.headers = headers
	clone.body = nb
	return &clone, nil
}

// validateURL accepts a URL string or *url.URL and enforces the absolute
// HTTP(S) contract.
func validateURL(input any) (*url.URL, error) {
	var u *url.URL
	switch v := input.(type) {
	case string:
		parsed, err := url.Parse(v)
		if err != nil {
			return nil, typeError("Only absolute URLs are supported")
		}
		u = parsed
	case *url.URL:
		cp := *v
		u = &cp
	case url.URL:
		cp := v
		u = &cp
	default:
		return nil, typeError(fmt.Sprintf("unsupported URL type %T", input))
	}
	if !u.IsAbs() {
		return nil, typeError("Only absolute URLs are supported")
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, typeError("Only HTTP(S) protocols are supported")
	}
	if u.Host == "" {
		return nil, typeError("Only absolute URLs are supported")
	}
	return u, nil
}

// normalizeMethod uppercases standard method tokens and leaves extension
// methods untouched.
func normalizeMethod(method string) string {
	switch upper := strings.ToUpper(method); upper {
	case http.MethodDelete, http.MethodGet, http.MethodHead, http.MethodOptions,
		http.MethodPost, http.MethodPut, http.MethodPatch:
		return upper
	default:
		return method
	}
}

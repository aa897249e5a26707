package fetch

import (
	"net/http"
	"time"
)

// ResponseInit configures a locally constructed Response.
type ResponseInit struct {
	// URL the response is attributed to.
	URL string
	// Status defaults to 200.
	Status int
	// StatusText defaults to the standard reason phrase for Status.
	StatusText string
	// Headers accepts anything NewHeadersFrom does.
	Headers any
	// Size caps body accumulation; zero is unbounded.
	Size int64
	// Timeout bounds body consumption; zero disables it.
	Timeout time.Duration
}

// Response is a terminal fetch result. The field bag is frozen after
// construction; the body is the only mutable sub-state, via disturbance.
type Response struct {
	*body
	url        string
	status     int
	statusText string
	headers    *Headers
	redirected bool
}

// NewResponse constructs a Response around a local body source, mirroring
// what the transport driver builds for wire responses. Useful for tests and
// for synthesizing responses.
func NewResponse(source any, init *ResponseInit) (*Response, error) {
	if init == nil {
		init = &ResponseInit{}
	}
	status := init.Status
	if status == 0 {
		status = http.StatusOK
	}
	statusText := init.StatusText
	if statusText == "" {
		statusText = http.StatusText(status)
	}
	headers, err := NewHeadersFrom(init.Headers)
	if err != nil {
		return nil, err
	}
	res := &Response{
		url:        init.URL,
		status:     status,
		statusText: statusText,
		headers:    headers,
	}
	res.body = newBody(source, init.Size, init.Timeout, init.URL, headers)
	return res, nil
}

// URL returns the final URL the response was fetched from.
func (r *Response) URL() string { return r.url }

// Status returns the HTTP status code.
func (r *Response) Status() int { return r.status }

// StatusText returns the reason phrase that accompanied the status line.
func (r *Response) StatusText() string { return r.statusText }

// OK reports whether the status is in the 200–299 range.
func (r *Response) OK() bool { return r.status >= 200 && r.status < 300 }

// Headers returns the response header map.
func (r *Response) Headers() *Headers { return r.headers }

// Redirected reports whether at least one redirect hop was followed before
// this response.
func (r *Response) Redirected() bool { return r.redirected }

// Clone returns an independent copy of the response. A stream body is split
// by tee; cloning a disturbed body fails.
func (r *Response) Clone() (*Response, error) {
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

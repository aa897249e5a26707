package fetch

import (
	"io"
	"net/http"
)

// isRedirectStatus reports whether status is one the redirect state machine
// acts on when a Location header is present.
func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// redirectedRequest derives the next hop from req and the redirect response:
// the Location is resolved against the current URL, the method and body are
// rewritten per status, caller-supplied headers carry over, and the hop
// counter advances.
func redirectedRequest(req *Request, status int, location string) (*Request, error) {
	u, err := req.url.Parse(location)
	if err != nil {
		return nil, typeError("uri requested responds with an invalid redirect URL: " + location)
	}

	method := req.method
	source := req.source
	headers := req.headers.Clone()

	switch {
	case status == http.StatusSeeOther,
		(status == http.StatusMovedPermanently || status == http.StatusFound) && method == http.MethodPost:
		method = http.MethodGet
		source = nil
		headers.Delete("content-length")
	case status == http.StatusTemporaryRedirect || status == http.StatusPermanentRedirect:
		if _, isStream := source.(io.Reader); isStream &&
			method != http.MethodGet && method != http.MethodHead {
			return nil, newError(KindUnsupportedRedirect,
				"Cannot follow redirect with body being a readable stream")
		}
	}

	next := &Request{
		method:   method,
		url:      u,
		headers:  headers,
		redirect: req.redirect,
		follow:   req.follow,
		counter:  req.counter + 1,
		compress: req.compress,
		timeout:  req.timeout,
		size:     req.size,
		agent:    req.agent,
	}
	next.body = newBody(source, req.size, req.timeout, u.String(), headers)
	return next, nil
}

// drainAndClose discards what remains of a redirect response body so the
// connection can be reused, bounding the read to keep a hostile server from
// pinning the loop.
func drainAndClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 64*1024))
	_ = rc.Close()
}

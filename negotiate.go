package fetch

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Version is reported in the default User-Agent header.
const Version = "1.2.0"

var defaultUserAgent = fmt.Sprintf("go-fetch/%s (+https://github.com/sofatutor/go-fetch)", Version)

// acceptedEncodings is the Accept-Encoding value injected when compression
// is on. Brotli is still decoded when a server volunteers it, but is not
// advertised.
const acceptedEncodings = "gzip,deflate"

// extractContentType infers the Content-Type header from the body source
// shape. An empty return means the header is left unset.
func extractContentType(source any) string {
	switch s := source.(type) {
	case nil:
		return ""
	case string:
		return "text/plain;charset=UTF-8"
	case url.Values:
		return "application/x-www-form-urlencoded;charset=UTF-8"
	case *Blob:
		return s.typ
	case *FormData:
		return "multipart/form-data;boundary=" + s.boundary
	default:
		// Byte buffers and streams carry no intrinsic type.
		return ""
	}
}

// totalBytes infers the body length in bytes, or -1 when the length is
// unknown (streams), in which case the transport frames the body chunked.
func totalBytes(source any) int64 {
	switch s := source.(type) {
	case nil:
		return 0
	case string:
		return int64(len(s))
	case []byte:
		return int64(len(s))
	case url.Values:
		return int64(len(s.Encode()))
	case *Blob:
		return s.Size()
	case *FormData:
		return s.Len()
	default:
		return -1
	}
}

// buildHTTPRequest frames req for the transport: it materializes a fresh
// body stream, computes Content-Type/Content-Length, and injects the default
// headers the caller did not supply. The negotiated Content-Length overrides
// a caller-supplied value whenever a definite length is known.
func buildHTTPRequest(req *Request) (*http.Request, error) {
	header := req.headers.httpHeader()

	if header.Get("Accept") == "" {
		header.Set("Accept", "*/*")
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", defaultUserAgent)
	}
	if req.compress && header.Get("Accept-Encoding") == "" {
		header.Set("Accept-Encoding", acceptedEncodings)
	}
	if ct := extractContentType(req.source); ct != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", ct)
	}

	length := totalBytes(req.source)
	if length >= 0 {
		header.Del("Content-Length")
	} else if v := header.Get("Content-Length"); v != "" {
		// A caller-supplied length for a stream body is trusted as-is.
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			length = n
		}
		header.Del("Content-Length")
	}

	var bodyReader io.Reader
	if req.source != nil {
		// A fresh stream per dispatch keeps replayable sources replayable
		// across redirects; stream sources yield the one-shot reader itself.
		rc, err := streamForSource(req.source, req.URL())
		if err != nil {
			return nil, err
		}
		bodyReader = rc
	}

	hreq, err := http.NewRequest(req.method, req.url.String(), bodyReader)
	if err != nil {
		return nil, typeError(err.Error())
	}
	hreq.Header = header
	switch {
	case req.source == nil:
		hreq.ContentLength = 0
	case length >= 0:
		hreq.ContentLength = length
	default:
		// Unknown length: the transport emits Transfer-Encoding: chunked.
		hreq.ContentLength = -1
	}
	return hreq, nil
}

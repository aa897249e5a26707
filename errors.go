package fetch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a FetchError. Kinds are stable strings so callers can
// switch on them without importing sentinel values for every failure mode.
type ErrorKind string

// Error kinds produced by the fetch pipeline.
const (
	// KindTypeError covers caller mistakes: invalid URLs, invalid header
	// names or values, a body on a GET/HEAD request, consuming a body twice.
	KindTypeError ErrorKind = "type-error"

	// KindSystem covers transport and OS-level failures (DNS, connection
	// reset/refused, decompression errors). The upstream code, when known,
	// is preserved in FetchError.Code.
	KindSystem ErrorKind = "system"

	// KindInvalidJSON is returned by JSON when the body does not parse.
	KindInvalidJSON ErrorKind = "invalid-json"

	// KindMaxRedirect is returned when following one more redirect would
	// exceed the request's follow limit.
	KindMaxRedirect ErrorKind = "max-redirect"

	// KindUnsupportedRedirect is returned for a 307/308 redirect whose
	// request body is a stream and therefore cannot be replayed.
	KindUnsupportedRedirect ErrorKind = "unsupported-redirect"

	// KindNoRedirect is returned when redirect mode is "error" and the
	// server answered with a redirect.
	KindNoRedirect ErrorKind = "no-redirect"

	// KindRequestTimeout is returned when the response head did not arrive
	// before the request deadline.
	KindRequestTimeout ErrorKind = "request-timeout"

	// KindBodyTimeout is returned when body consumption stalled beyond the
	// request deadline.
	KindBodyTimeout ErrorKind = "body-timeout"

	// KindMaxSize is returned when the accumulated body exceeded the
	// request's size cap.
	KindMaxSize ErrorKind = "max-size"
)

// FetchError is the single error type surfaced by this package. Kind tags
// the failure mode; Code carries the upstream error code when one exists
// (e.g. ECONNREFUSED, Z_DATA_ERROR).
type FetchError struct {
	Message string
	Kind    ErrorKind
	Code    string
	cause   error
}

func (e *FetchError) Error() string {
	return e.Message
}

// Unwrap exposes the upstream cause for errors.Is / errors.As chains.
func (e *FetchError) Unwrap() error {
	return e.cause
}

// ErrorKindOf returns the kind of err if it is (or wraps) a FetchError,
// or the empty string otherwise.
func ErrorKindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func newError(kind ErrorKind, msg string) *FetchError {
	return &FetchError{Message: msg, Kind: kind}
}

func newErrorf(kind ErrorKind, format string, args ...any) *FetchError {
	return &FetchError{Message: fmt.Sprintf(format, args...), Kind: kind}
}

func typeError(msg string) *FetchError {
	return newError(KindTypeError, msg)
}

// wrapError builds a FetchError around cause, preserving the upstream code.
func wrapError(kind ErrorKind, cause error, msg string) *FetchError {
	return &FetchError{Message: msg, Kind: kind, Code: errorCode(cause), cause: cause}
}

// errorCode digs the OS/zlib-style code out of cause. Network errors carry
// syscall names (ECONNREFUSED, ECONNRESET), DNS misses map to ENOTFOUND and
// corrupt compressed payloads to Z_DATA_ERROR, matching the codes callers
// match against.
func errorCode(cause error) string {
	if cause == nil {
		return ""
	}
	type coder interface{ ErrorCode() string }
	var c coder
	if errors.As(cause, &c) {
		return c.ErrorCode()
	}
	var fe *FetchError
	if errors.As(cause, &fe) && fe.Code != "" {
		return fe.Code
	}
	return sysErrorCode(cause)
}

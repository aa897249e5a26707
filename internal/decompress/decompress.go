// Package decompress selects and drives response-body decoders for the
// content-encodings the fetch pipeline accepts: gzip (tolerant of trailing
// garbage), deflate in both its zlib-wrapped and raw forms, and brotli.
package decompress

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Error tags a decompression failure with the zlib-style code the fetch
// error taxonomy preserves for callers.
type Error struct {
	Encoding string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s decode failed: %v", e.Encoding, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns Z_DATA_ERROR for payloads the decoder rejects, matching
// the code surfaced by zlib bindings.
func (e *Error) ErrorCode() string {
	if isDataError(e.Err) {
		return "Z_DATA_ERROR"
	}
	return ""
}

func isDataError(err error) bool {
	var corrupt flate.CorruptInputError
	if errors.As(err, &corrupt) {
		return true
	}
	switch {
	case errors.Is(err, gzip.ErrHeader), errors.Is(err, gzip.ErrChecksum),
		errors.Is(err, zlib.ErrHeader), errors.Is(err, zlib.ErrChecksum),
		errors.Is(err, zlib.ErrDictionary):
		return true
	}
	return false
}

// Handles reports whether encoding names a decoder this package provides.
func Handles(encoding string) bool {
	switch encoding {
	case "gzip", "x-gzip", "deflate", "x-deflate", "br":
		return true
	}
	return false
}

// Reader wraps r with the decoder selected by encoding. Unknown encodings
// return r untouched. Decoders are initialized lazily on first read so
// header sniffing never blocks response construction.
func Reader(encoding string, r io.ReadCloser) io.ReadCloser {
	switch encoding {
	case "gzip", "x-gzip":
		return &lazyReader{src: r, encoding: encoding, open: openGzip}
	case "deflate", "x-deflate":
		return &lazyReader{src: r, encoding: encoding, open: openDeflate}
	case "br":
		return &lazyReader{src: r, encoding: encoding, open: openBrotli}
	default:
		return r
	}
}

type opener func(io.Reader) (io.Reader, error)

func openGzip(r io.Reader) (io.Reader, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	// Stop at the end of the first member so trailing garbage after the
	// stream does not fail the read.
	zr.Multistream(false)
	return zr, nil
}

// openDeflate sniffs the first byte to distinguish zlib-wrapped deflate
// (low nibble 0x8) from the raw streams some servers emit.
func openDeflate(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(1)
	if err != nil {
		if err == io.EOF {
			return eofReader{}, nil
		}
		return nil, err
	}
	if head[0]&0x0f == 0x08 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

func openBrotli(r io.Reader) (io.Reader, error) {
	return brotli.NewReader(r), nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// lazyReader defers decoder construction to the first Read and tags every
// failure with the encoding that produced it.
type lazyReader struct {
	src      io.ReadCloser
	encoding string
	open     opener
	dec      io.Reader
	err      error
}

func (l *lazyReader) Read(p []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	if l.dec == nil {
		dec, err := l.open(l.src)
		if err != nil {
			l.err = &Error{Encoding: l.encoding, Err: err}
			return 0, l.err
		}
		l.dec = dec
	}
	n, err := l.dec.Read(p)
	if err != nil && err != io.EOF {
		err = &Error{Encoding: l.encoding, Err: err}
		l.err = err
	}
	return n, err
}

func (l *lazyReader) Close() error {
	if c, ok := l.dec.(io.Closer); ok {
		_ = c.Close()
	}
	return l.src.Close()
}

package fetch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// body carries the single-use consumption state shared by Request and
// Response. The source is a tagged variant over the supported body shapes
// (nil, string, []byte, url.Values, *Blob, *FormData, io.Reader, anything
// stringifiable); it is converted to a byte stream at most once, and any
// accessor marks the body disturbed before reading.
type body struct {
	mu        sync.Mutex
	source    any
	stream    io.ReadCloser
	disturbed atomic.Bool
	earlyErr  error

	size    int64 // max accumulated bytes, 0 = unbounded
	timeout time.Duration
	url     string
	headers *Headers
}

// normalizeBodySource collapses convenience shapes onto the canonical tags.
// Replayable materialized shapes pass through; *bytes.Buffer is snapshotted
// so later consumption is not affected by caller writes; readers stay
// readers (the non-replayable stream shape); url.Values keeps its own tag
// rather than being stringified; everything else is stringified up front.
func normalizeBodySource(src any) any {
	switch s := src.(type) {
	case nil:
		return nil
	case string, []byte, *Blob, *FormData:
		return s
	case url.Values:
		return s
	case *bytes.Buffer:
		cp := make([]byte, s.Len())
		copy(cp, s.Bytes())
		return cp
	case io.Reader:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

func newBody(source any, size int64, timeout time.Duration, url string, headers *Headers) *body {
	return &body{
		source:  normalizeBodySource(source),
		size:    size,
		timeout: timeout,
		url:     url,
		headers: headers,
	}
}

// BodyUsed reports whether consumption has begun.
func (b *body) BodyUsed() bool {
	return b.disturbed.Load()
}

// Body exposes the underlying byte stream. The first Read marks the body
// disturbed, so manual stream consumption and the accessors stay mutually
// exclusive. Returns nil for a null body.
func (b *body) Body() io.ReadCloser {
	if b.source == nil {
		return nil
	}
	return &disturbingReader{b: b}
}

type disturbingReader struct {
	b  *body
	rc io.ReadCloser
}

func (d *disturbingReader) Read(p []byte) (int, error) {
	if d.rc == nil {
		d.b.disturbed.Store(true)
		rc, err := d.b.ensureStream()
		if err != nil {
			return 0, err
		}
		d.rc = rc
	}
	return d.rc.Read(p)
}

func (d *disturbingReader) Close() error {
	if d.rc == nil {
		return nil
	}
	return d.rc.Close()
}

// ensureStream converts the body source to its byte stream exactly once.
func (b *body) ensureStream() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream != nil {
		return b.stream, nil
	}
	s, err := streamForSource(b.source, b.url)
	if err != nil {
		return nil, err
	}
	b.stream = s
	return s, nil
}

func streamForSource(source any, reqURL string) (io.ReadCloser, error) {
	switch s := source.(type) {
	case nil:
		return emptyStream{}, nil
	case string:
		return io.NopCloser(strings.NewReader(s)), nil
	case []byte:
		return io.NopCloser(bytes.NewReader(s)), nil
	case url.Values:
		return io.NopCloser(strings.NewReader(s.Encode())), nil
	case *Blob:
		return io.NopCloser(bytes.NewReader(s.data)), nil
	case *FormData:
		enc, err := s.Encode()
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(enc)), nil
	case io.Reader:
		return &coercingReader{r: s, url: reqURL}, nil
	default:
		return nil, typeError(fmt.Sprintf("unsupported body source type %T", source))
	}
}

// consume runs the single-use accumulation protocol: mark disturbed, convert
// the source, enforce the size cap per chunk and the body timeout across the
// whole read, then concatenate.
func (b *body) consume() ([]byte, error) {
	if !b.disturbed.CompareAndSwap(false, true) {
		return nil, typeError("body used already for: " + b.url)
	}

	b.mu.Lock()
	earlyErr := b.earlyErr
	b.mu.Unlock()
	if earlyErr != nil {
		return nil, earlyErr
	}

	stream, err := b.ensureStream()
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()

	type readResult struct {
		data []byte
		err  error
	}
	results := make(chan readResult)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			buf := make([]byte, chunkSize)
			n, err := stream.Read(buf)
			var rr readResult
			if n > 0 {
				rr.data = buf[:n]
			}
			rr.err = err
			select {
			case results <- rr:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var timerC <-chan time.Time
	if b.timeout > 0 {
		timer := time.NewTimer(b.timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	var (
		chunks [][]byte
		total  int64
	)
	for {
		select {
		case <-timerC:
			_ = stream.Close()
			return nil, newErrorf(KindBodyTimeout, "Response timeout while trying to fetch %s (over %dms)",
				b.url, b.timeout.Milliseconds())
		case rr := <-results:
			if rr.data != nil {
				total += int64(len(rr.data))
				if b.size > 0 && total > b.size {
					_ = stream.Close()
					return nil, newErrorf(KindMaxSize, "content size at %s over limit: %d", b.url, b.size)
				}
				chunks = append(chunks, rr.data)
			}
			if rr.err == io.EOF {
				return concatChunks(chunks, total), nil
			}
			if rr.err != nil {
				var fe *FetchError
				if errors.As(rr.err, &fe) {
					return nil, fe
				}
				return nil, wrapError(KindSystem, rr.err,
					fmt.Sprintf("Invalid response body while trying to fetch %s: %s", b.url, rr.err.Error()))
			}
		}
	}
}

func concatChunks(chunks [][]byte, total int64) []byte {
	out := make([]byte, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Bytes consumes the body and returns the accumulated bytes as one owned
// contiguous buffer.
func (b *body) Bytes() ([]byte, error) {
	return b.consume()
}

// Text consumes the body and decodes it as UTF-8.
func (b *body) Text() (string, error) {
	data, err := b.consume()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// JSON consumes the body and unmarshals it into v. A parse failure —
// including an empty body — is reported with kind invalid-json.
func (b *body) JSON(v any) error {
	data, err := b.consume()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return wrapError(KindInvalidJSON, err,
			fmt.Sprintf("invalid json response body at %s reason: %s", b.url, err.Error()))
	}
	return nil
}

// Blob consumes the body and wraps the bytes with the body's lowercased
// content-type.
func (b *body) Blob() (*Blob, error) {
	ct := ""
	if b.headers != nil {
		if v, ok := b.headers.Get("content-type"); ok {
			ct = v
		}
	}
	data, err := b.consume()
	if err != nil {
		return nil, err
	}
	return &Blob{data: data, typ: strings.ToLower(ct)}, nil
}

// FormData consumes the body and parses it as multipart/form-data or
// application/x-www-form-urlencoded, assembling a FormData container. File
// parts are stored under their filename with the file bytes as the value.
func (b *body) FormData() (*FormData, error) {
	ct := ""
	if b.headers != nil {
		if v, ok := b.headers.Get("content-type"); ok {
			ct = v
		}
	}
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, typeError(fmt.Sprintf("could not parse content as FormData: invalid content-type %q", ct))
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		data, err := b.consume()
		if err != nil {
			return nil, err
		}
		return parseURLEncoded(string(data))
	case "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return nil, typeError("could not parse content as FormData: missing multipart boundary")
		}
		data, err := b.consume()
		if err != nil {
			return nil, err
		}
		return parseMultipart(bytes.NewReader(data), boundary)
	default:
		return nil, typeError(fmt.Sprintf("could not parse content as FormData: unsupported content-type %q", mediaType))
	}
}

// parseURLEncoded decodes pairs by hand so field order survives; the stdlib
// query parser returns an unordered map.
func parseURLEncoded(s string) (*FormData, error) {
	f := NewFormData()
	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		dn, err := url.QueryUnescape(name)
		if err != nil {
			return nil, typeError("could not parse content as FormData: " + err.Error())
		}
		dv, err := url.QueryUnescape(value)
		if err != nil {
			return nil, typeError("could not parse content as FormData: " + err.Error())
		}
		f.Append(dn, dv)
	}
	return f, nil
}

func parseMultipart(r io.Reader, boundary string) (*FormData, error) {
	f := NewFormData()
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, typeError("could not parse content as FormData: " + err.Error())
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, typeError("could not parse content as FormData: " + err.Error())
		}
		if fn := part.FileName(); fn != "" {
			f.AppendFile(fn, fn, data, part.Header.Get("Content-Type"))
		} else {
			f.Append(part.FormName(), string(data))
		}
	}
}

// clone implements clone-by-tee. A disturbed body cannot be cloned. Stream
// sources are split into two branches, one of which replaces this body's
// source; materialized sources are shared, since each consumption derives a
// fresh stream from them. FormData sources are shared by reference on both
// sides, a known limitation.
func (b *body) clone(headers *Headers) (*body, error) {
	if b.disturbed.Load() {
		return nil, typeError("cannot clone body after it is used")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	nb := &body{
		source:  b.source,
		size:    b.size,
		timeout: b.timeout,
		url:     b.url,
		headers: headers,
	}
	if r, ok := b.source.(io.Reader); ok {
		src := r
		if b.stream != nil {
			src = b.stream
		}
		keep, give := teeStream(src)
		b.source = io.Reader(keep)
		b.stream = keep
		nb.source = io.Reader(give)
		nb.stream = give
	}
	return nb, nil
}


package decompress

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestHandles(t *testing.T) {
	for _, enc := range []string{"gzip", "x-gzip", "deflate", "x-deflate", "br"} {
		assert.True(t, Handles(enc), enc)
	}
	for _, enc := range []string{"", "identity", "zstd", "GZIP"} {
		assert.False(t, Handles(enc), enc)
	}
}

func TestGzipDecode(t *testing.T) {
	r := Reader("gzip", io.NopCloser(bytes.NewReader(gzipped(t, "hello world"))))
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	require.NoError(t, r.Close())
}

func TestGzipToleratesTrailingGarbage(t *testing.T) {
	payload := append(gzipped(t, "hello world"), []byte("trailing-garbage")...)
	r := Reader("gzip", io.NopCloser(bytes.NewReader(payload)))
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestGzipInvalidPayload(t *testing.T) {
	r := Reader("gzip", io.NopCloser(strings.NewReader("definitely not gzip")))
	_, err := io.ReadAll(r)
	require.Error(t, err)

	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "Z_DATA_ERROR", derr.ErrorCode())
	assert.Contains(t, derr.Error(), "gzip")
}

func TestDeflateZlibWrapped(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	r := Reader("deflate", io.NopCloser(&buf))
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestDeflateRawSniffed(t *testing.T) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	r := Reader("deflate", io.NopCloser(&buf))
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestDeflateEmptyBody(t *testing.T) {
	r := Reader("deflate", io.NopCloser(strings.NewReader("")))
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestBrotliDecode(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	_, err := bw.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, bw.Close())

	r := Reader("br", io.NopCloser(&buf))
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestUnknownEncodingPassesThrough(t *testing.T) {
	src := io.NopCloser(strings.NewReader("as-is"))
	r := Reader("identity", src)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "as-is", string(data))
}

func TestErrorUnwrap(t *testing.T) {
	inner := gzip.ErrHeader
	err := &Error{Encoding: "gzip", Err: inner}
	assert.ErrorIs(t, err, gzip.ErrHeader)
	assert.Equal(t, "Z_DATA_ERROR", err.ErrorCode())

	other := &Error{Encoding: "gzip", Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "", other.ErrorCode())
}

package fetch

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeeStreamBothBranchesSeeEverything(t *testing.T) {
	a, b := teeStream(strings.NewReader("chunked payload"))

	dataA, err := io.ReadAll(a)
	require.NoError(t, err)
	dataB, err := io.ReadAll(b)
	require.NoError(t, err)

	assert.Equal(t, "chunked payload", string(dataA))
	assert.Equal(t, "chunked payload", string(dataB))
}

func TestTeeStreamInterleavedReads(t *testing.T) {
	a, b := teeStream(strings.NewReader("0123456789"))

	bufA := make([]byte, 4)
	bufB := make([]byte, 4)

	n, err := a.Read(bufA)
	require.NoError(t, err)
	// Whatever a pulled is queued for b before b touches the source.
	m, err := b.Read(bufB)
	require.NoError(t, err)
	assert.Equal(t, string(bufA[:n]), string(bufB[:m]))

	restA, err := io.ReadAll(a)
	require.NoError(t, err)
	restB, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, string(restA), string(restB))
}

func TestTeeStreamPropagatesError(t *testing.T) {
	a, b := teeStream(io.MultiReader(strings.NewReader("ok"), failingReader{}))

	_, errA := io.ReadAll(a)
	_, errB := io.ReadAll(b)
	require.Error(t, errA)
	require.Error(t, errB)
}

type closeCounter struct {
	io.Reader
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

func TestTeeStreamClosesSourceOnce(t *testing.T) {
	src := &closeCounter{Reader: strings.NewReader("data")}
	a, b := teeStream(src)

	require.NoError(t, a.Close())
	assert.Equal(t, 0, src.closes, "source stays open while a branch remains")
	require.NoError(t, b.Close())
	assert.Equal(t, 1, src.closes)

	// Double close of a branch is a no-op.
	require.NoError(t, b.Close())
	assert.Equal(t, 1, src.closes)
}

// sparseReader alternates empty reads with real ones.
type sparseReader struct {
	chunks []string
	i      int
}

func (s *sparseReader) Read(p []byte) (int, error) {
	if s.i >= len(s.chunks) {
		return 0, io.EOF
	}
	chunk := s.chunks[s.i]
	s.i++
	return copy(p, chunk), nil
}

func TestCoercingReaderDropsEmptyChunks(t *testing.T) {
	r := &coercingReader{
		r:   &sparseReader{chunks: []string{"a", "", "", "b"}},
		url: "http://example.test/",
	}
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(data))
}

func TestCoercingReaderWrapsErrors(t *testing.T) {
	r := &coercingReader{
		r:   io.MultiReader(strings.NewReader("x"), failingReader{}),
		url: "http://example.test/y",
	}
	_, err := io.ReadAll(r)
	require.Error(t, err)
	assert.Equal(t, KindSystem, ErrorKindOf(err))
	assert.Contains(t, err.Error(), "Invalid response body while trying to fetch http://example.test/y")

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.NotNil(t, fe.Unwrap())
}

package fetch

import (
	"bytes"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormDataEncode(t *testing.T) {
	form := NewFormData()
	form.Append("name", "value")
	form.Append("name", "second")
	form.AppendFile("upload", "a.bin", []byte{0x0, 0x1}, "")

	encoded, err := form.Encode()
	require.NoError(t, err)
	assert.Equal(t, int64(len(encoded)), form.Len())

	// The encoding parses back with the stdlib reader.
	mr := multipart.NewReader(bytes.NewReader(encoded), form.Boundary())
	part, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "name", part.FormName())

	part, err = mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "name", part.FormName())

	part, err = mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "upload", part.FormName())
	assert.Equal(t, "a.bin", part.FileName())
	assert.Equal(t, "application/octet-stream", part.Header.Get("Content-Type"))
}

func TestFormDataBoundaryUnique(t *testing.T) {
	a := NewFormData()
	b := NewFormData()
	assert.NotEqual(t, a.Boundary(), b.Boundary())
	assert.True(t, strings.HasPrefix(a.Boundary(), "go-fetch-boundary-"))
}

func TestFormDataAccessors(t *testing.T) {
	form := NewFormData()
	form.Append("k", "1")
	form.Append("k", "2")
	form.Append("other", "x")

	v, ok := form.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, []string{"1", "2"}, form.GetAll("k"))
	assert.True(t, form.Has("other"))
	assert.False(t, form.Has("missing"))
	assert.Equal(t, []string{"k", "k", "other"}, form.Names())
}

func TestFormDataEncodeCacheInvalidation(t *testing.T) {
	form := NewFormData()
	form.Append("a", "1")
	first, err := form.Encode()
	require.NoError(t, err)

	form.Append("b", "2")
	second, err := form.Encode()
	require.NoError(t, err)
	assert.Greater(t, len(second), len(first))
}

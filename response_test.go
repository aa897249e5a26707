package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResponseDefaults(t *testing.T) {
	res, err := NewResponse("body", nil)
	require.NoError(t, err)

	assert.Equal(t, 200, res.Status())
	assert.Equal(t, "OK", res.StatusText())
	assert.True(t, res.OK())
	assert.Equal(t, "", res.URL())
	assert.False(t, res.Redirected())
	assert.Equal(t, 0, res.Headers().Len())
}

func TestResponseOKRange(t *testing.T) {
	tests := []struct {
		status int
		ok     bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{300, false},
		{404, false},
		{503, false},
	}
	for _, tc := range tests {
		res, err := NewResponse(nil, &ResponseInit{Status: tc.status})
		require.NoError(t, err)
		assert.Equal(t, tc.ok, res.OK(), "status %d", tc.status)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	payload := []byte("round trip bytes")

	res, err := NewResponse(payload, nil)
	require.NoError(t, err)
	text, err := res.Text()
	require.NoError(t, err)
	assert.Equal(t, string(payload), text)

	res, err = NewResponse(payload, nil)
	require.NoError(t, err)
	data, err := res.Bytes()
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	res, err = NewResponse(payload, &ResponseInit{Headers: map[string]string{"Content-Type": "application/octet-stream"}})
	require.NoError(t, err)
	blob, err := res.Blob()
	require.NoError(t, err)
	assert.Equal(t, payload, blob.Bytes())
	assert.Equal(t, "application/octet-stream", blob.Type())
}

func TestResponseCloneSharesNothingVisible(t *testing.T) {
	res, err := NewResponse("cloneable", &ResponseInit{Status: 201, URL: "http://example.test/res"})
	require.NoError(t, err)

	clone, err := res.Clone()
	require.NoError(t, err)
	assert.Equal(t, 201, clone.Status())
	assert.Equal(t, "http://example.test/res", clone.URL())

	require.NoError(t, clone.Headers().Set("X-Clone", "1"))
	assert.False(t, res.Headers().Has("x-clone"))

	a, err := res.Text()
	require.NoError(t, err)
	b, err := clone.Text()
	require.NoError(t, err)
	assert.Equal(t, "cloneable", a)
	assert.Equal(t, a, b)
}

func TestNewResponseRejectsBadHeaders(t *testing.T) {
	_, err := NewResponse(nil, &ResponseInit{Headers: map[string]string{"Bad Name": "v"}})
	require.Error(t, err)
	assert.Equal(t, KindTypeError, ErrorKindOf(err))
}

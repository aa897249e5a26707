package fetch

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersAppendAndGet(t *testing.T) {
	h := NewHeaders()
	require.NoError(t, h.Append("Accept", "text/html"))
	require.NoError(t, h.Append("ACCEPT", "application/json"))

	got, ok := h.Get("accept")
	assert.True(t, ok)
	assert.Equal(t, "text/html, application/json", got)

	_, ok = h.Get("x-missing")
	assert.False(t, ok)
}

func TestHeadersSetReplaces(t *testing.T) {
	h := NewHeaders()
	require.NoError(t, h.Append("X-Custom", "one"))
	require.NoError(t, h.Append("X-Custom", "two"))
	require.NoError(t, h.Set("x-custom", "three"))

	got, ok := h.Get("X-CUSTOM")
	assert.True(t, ok)
	assert.Equal(t, "three", got)
}

func TestHeadersDelete(t *testing.T) {
	h := NewHeaders()
	require.NoError(t, h.Set("X-Custom", "value"))
	require.True(t, h.Has("x-custom"))

	h.Delete("X-CUSTOM")
	assert.False(t, h.Has("x-custom"))
	assert.Equal(t, 0, h.Len())

	// Deleting an absent name is a no-op.
	h.Delete("x-custom")
}

func TestHeadersValidation(t *testing.T) {
	h := NewHeaders()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"empty name", "", "value"},
		{"space in name", "X Custom", "value"},
		{"colon in name", "X:Custom", "value"},
		{"cr in value", "X-Custom", "bad\rvalue"},
		{"lf in value", "X-Custom", "bad\nvalue"},
		{"nul in value", "X-Custom", "bad\x00value"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := h.Append(tc.key, tc.value)
			require.Error(t, err)
			assert.Equal(t, KindTypeError, ErrorKindOf(err))
		})
	}
}

func TestHeadersGetAllSetCookieOnly(t *testing.T) {
	h := NewHeaders()
	require.NoError(t, h.Append("Set-Cookie", "a=1"))
	require.NoError(t, h.Append("Set-Cookie", "b=2, with comma"))
	require.NoError(t, h.Append("Accept", "*/*"))

	cookies, err := h.GetAll("set-cookie")
	require.NoError(t, err)
	assert.Equal(t, []string{"a=1", "b=2, with comma"}, cookies)

	// Joined form is lossy for cookies with internal commas.
	joined, ok := h.Get("set-cookie")
	assert.True(t, ok)
	assert.Equal(t, "a=1, b=2, with comma", joined)

	_, err = h.GetAll("accept")
	require.Error(t, err)
	assert.Equal(t, KindTypeError, ErrorKindOf(err))
}

func TestHeadersIterationSorted(t *testing.T) {
	h := NewHeaders()
	require.NoError(t, h.Append("Zeta", "z"))
	require.NoError(t, h.Append("alpha", "a1"))
	require.NoError(t, h.Append("Mid", "m"))
	require.NoError(t, h.Append("Alpha", "a2"))

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, h.Keys())
	assert.Equal(t, []string{"a1, a2", "m", "z"}, h.Values())
	assert.Equal(t, [][2]string{
		{"alpha", "a1, a2"},
		{"mid", "m"},
		{"zeta", "z"},
	}, h.Entries())

	var visited []string
	h.ForEach(func(name, value string) {
		visited = append(visited, name+"="+value)
	})
	assert.Equal(t, []string{"alpha=a1, a2", "mid=m", "zeta=z"}, visited)
}

func TestHeadersConstructors(t *testing.T) {
	t.Run("pairs", func(t *testing.T) {
		h, err := NewHeadersFrom([][]string{{"B", "2"}, {"A", "1"}})
		require.NoError(t, err)
		got, _ := h.Get("a")
		assert.Equal(t, "1", got)
		// Iteration is sorted regardless of insertion order.
		assert.Equal(t, []string{"a", "b"}, h.Keys())
	})

	t.Run("bad pair arity", func(t *testing.T) {
		_, err := NewHeadersFrom([][]string{{"only-name"}})
		require.Error(t, err)
		assert.Equal(t, KindTypeError, ErrorKindOf(err))
	})

	t.Run("scalar map", func(t *testing.T) {
		h, err := NewHeadersFrom(map[string]string{"Accept": "*/*"})
		require.NoError(t, err)
		got, _ := h.Get("accept")
		assert.Equal(t, "*/*", got)
	})

	t.Run("multi map", func(t *testing.T) {
		h, err := NewHeadersFrom(map[string][]string{"X-Multi": {"1", "2"}})
		require.NoError(t, err)
		got, _ := h.Get("x-multi")
		assert.Equal(t, "1, 2", got)
	})

	t.Run("http.Header", func(t *testing.T) {
		src := http.Header{}
		src.Add("X-From-Std", "yes")
		h, err := NewHeadersFrom(src)
		require.NoError(t, err)
		got, _ := h.Get("x-from-std")
		assert.Equal(t, "yes", got)
	})

	t.Run("another Headers", func(t *testing.T) {
		src := NewHeaders()
		require.NoError(t, src.Append("X-Copy", "v"))
		h, err := NewHeadersFrom(src)
		require.NoError(t, err)
		src.Delete("X-Copy")
		assert.True(t, h.Has("x-copy"))
	})

	t.Run("unsupported source", func(t *testing.T) {
		_, err := NewHeadersFrom(42)
		require.Error(t, err)
		assert.Equal(t, KindTypeError, ErrorKindOf(err))
	})
}

func TestHeadersRawAndClone(t *testing.T) {
	h := NewHeaders()
	require.NoError(t, h.Append("X-A", "1"))
	require.NoError(t, h.Append("X-A", "2"))

	raw := h.Raw()
	assert.Equal(t, []string{"1", "2"}, raw["x-a"])
	raw["x-a"][0] = "mutated"
	got, _ := h.Get("x-a")
	assert.Equal(t, "1, 2", got)

	c := h.Clone()
	require.NoError(t, c.Set("X-A", "other"))
	got, _ = h.Get("x-a")
	assert.Equal(t, "1, 2", got)
}

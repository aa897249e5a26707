package fetch

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Headers is a case-insensitive, multi-valued header map. Keys are
// normalized to lowercase on every operation; each key holds its values in
// append order. Each key's first-insertion position is tracked internally
// (copying another *Headers follows it), Raw returns an unordered map, and
// Entries/Keys/Values/ForEach yield keys in case-insensitive sort order with
// values comma-joined, which is the order the rest of the pipeline (and the
// test suite) relies on.
type Headers struct {
	names  []string // lowercased, first-insertion order
	values map[string][]string
}

// NewHeaders returns an empty header map.
func NewHeaders() *Headers {
	return &Headers{values: make(map[string][]string)}
}

// NewHeadersFrom builds a header map from src, which may be another
// *Headers, an ordered [][]string of name/value pairs, a map[string]string,
// a map[string][]string, an http.Header, or url.Values. Every name and value
// is validated; map sources are inserted in sorted key order so construction
// is deterministic.
func NewHeadersFrom(src any) (*Headers, error) {
	h := NewHeaders()
	switch s := src.(type) {
	case nil:
		return h, nil
	case *Headers:
		for _, name := range s.names {
			for _, v := range s.values[name] {
				if err := h.Append(name, v); err != nil {
					return nil, err
				}
			}
		}
	case [][]string:
		for _, pair := range s {
			if len(pair) != 2 {
				return nil, typeError(fmt.Sprintf("header pair must have exactly two items, got %d", len(pair)))
			}
			if err := h.Append(pair[0], pair[1]); err != nil {
				return nil, err
			}
		}
	case map[string]string:
		for _, name := range sortedKeys(s) {
			if err := h.Append(name, s[name]); err != nil {
				return nil, err
			}
		}
	case map[string][]string:
		if err := h.appendMulti(s); err != nil {
			return nil, err
		}
	case http.Header:
		if err := h.appendMulti(s); err != nil {
			return nil, err
		}
	case url.Values:
		if err := h.appendMulti(s); err != nil {
			return nil, err
		}
	default:
		return nil, typeError(fmt.Sprintf("unsupported headers source type %T", src))
	}
	return h, nil
}

func (h *Headers) appendMulti(src map[string][]string) error {
	for _, name := range sortedKeys(src) {
		for _, v := range src[name] {
			if err := h.Append(name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Append validates name and value and pushes value onto the sequence stored
// at the lowercased name, preserving the key's first-insertion position.
func (h *Headers) Append(name, value string) error {
	key, err := normalizeHeaderName(name)
	if err != nil {
		return err
	}
	if err := validateHeaderValue(name, value); err != nil {
		return err
	}
	if _, ok := h.values[key]; !ok {
		h.names = append(h.names, key)
	}
	h.values[key] = append(h.values[key], value)
	return nil
}

// Set validates name and value and replaces the stored sequence with the
// single given value.
func (h *Headers) Set(name, value string) error {
	key, err := normalizeHeaderName(name)
	if err != nil {
		return err
	}
	if err := validateHeaderValue(name, value); err != nil {
		return err
	}
	if _, ok := h.values[key]; !ok {
		h.names = append(h.names, key)
	}
	h.values[key] = []string{value}
	return nil
}

// Get returns the values stored at name joined with ", ". ok is false when
// the header is absent. For set-cookie the joined form is lossy; use GetAll.
func (h *Headers) Get(name string) (value string, ok bool) {
	vs, ok := h.values[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return strings.Join(vs, ", "), true
}

// GetAll returns the raw value sequence for set-cookie. Any other name is a
// type error: set-cookie is the only header whose values cannot be
// reconstructed from the joined form.
func (h *Headers) GetAll(name string) ([]string, error) {
	key := strings.ToLower(name)
	if key != "set-cookie" {
		return nil, typeError("getAll can only be used with header name set-cookie")
	}
	vs := h.values[key]
	out := make([]string, len(vs))
	copy(out, vs)
	return out, nil
}

// Has reports whether name is present.
func (h *Headers) Has(name string) bool {
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Delete removes name and all of its values.
func (h *Headers) Delete(name string) {
	key := strings.ToLower(name)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	for i, n := range h.names {
		if n == key {
			h.names = append(h.names[:i], h.names[i+1:]...)
			break
		}
	}
}

// Raw returns the full mapping from lowercased name to value sequence for
// internal consumers such as transfer framing. The returned map and slices
// are copies.
func (h *Headers) Raw() map[string][]string {
	out := make(map[string][]string, len(h.values))
	for k, vs := range h.values {
		cp := make([]string, len(vs))
		copy(cp, vs)
		out[k] = cp
	}
	return out
}

// Keys returns the header names in case-insensitive sort order.
func (h *Headers) Keys() []string {
	keys := make([]string, len(h.names))
	copy(keys, h.names)
	sort.Strings(keys)
	return keys
}

// Values returns the comma-joined value for each header, ordered by the
// sorted key sequence.
func (h *Headers) Values() []string {
	keys := h.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = strings.Join(h.values[k], ", ")
	}
	return out
}

// Entries returns name/value pairs in sorted key order, values comma-joined
// in append order.
func (h *Headers) Entries() [][2]string {
	keys := h.Keys()
	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, strings.Join(h.values[k], ", ")}
	}
	return out
}

// ForEach calls fn for every header in sorted key order with the
// comma-joined value.
func (h *Headers) ForEach(fn func(name, value string)) {
	for _, e := range h.Entries() {
		fn(e[0], e[1])
	}
}

// Clone returns an independent copy.
func (h *Headers) Clone() *Headers {
	c := NewHeaders()
	c.names = make([]string, len(h.names))
	copy(c.names, h.names)
	for k, vs := range h.values {
		cp := make([]string, len(vs))
		copy(cp, vs)
		c.values[k] = cp
	}
	return c
}

// Len returns the number of distinct header names.
func (h *Headers) Len() int {
	return len(h.names)
}

// httpHeader converts to the transport's header representation, preserving
// per-value granularity.
func (h *Headers) httpHeader() http.Header {
	out := make(http.Header, len(h.values))
	for k, vs := range h.values {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}

// isTokenChar reports whether c is legal in an HTTP header field name:
// visible ASCII minus separators (RFC 7230 token).
func isTokenChar(c byte) bool {
	if c <= 0x20 || c >= 0x7f {
		return false
	}
	switch c {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=', '{', '}':
		return false
	}
	return true
}

func normalizeHeaderName(name string) (string, error) {
	if name == "" {
		return "", typeError("header name must not be empty")
	}
	for i := 0; i < len(name); i++ {
		if !isTokenChar(name[i]) {
			return "", typeError(fmt.Sprintf("%q is not a legal HTTP header name", name))
		}
	}
	return strings.ToLower(name), nil
}

func validateHeaderValue(name, value string) error {
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '\r', '\n', 0x00:
			return typeError(fmt.Sprintf("invalid character in header field value for %q", name))
		}
	}
	return nil
}

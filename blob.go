package fetch

import "strings"

// Blob is an immutable byte payload carrying a MIME type. It is the
// materialized body shape returned by the Blob accessor and accepted as a
// request body source.
type Blob struct {
	data []byte
	typ  string
}

// NewBlob copies data into a Blob with the given (lowercased) content type.
func NewBlob(data []byte, contentType string) *Blob {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &Blob{data: cp, typ: strings.ToLower(contentType)}
}

// Size returns the payload length in bytes.
func (b *Blob) Size() int64 {
	return int64(len(b.data))
}

// Type returns the lowercased MIME type, possibly empty.
func (b *Blob) Type() string {
	return b.typ
}

// Bytes returns a copy of the payload.
func (b *Blob) Bytes() []byte {
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return cp
}

// Text returns the payload decoded as UTF-8.
func (b *Blob) Text() string {
	return string(b.data)
}

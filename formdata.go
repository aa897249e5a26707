package fetch

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
)

// FormData is an ordered multipart/form-data container. Appending fields and
// files builds up the entry list; Encode renders the multipart body with the
// container's boundary. A FormData used as a request body has a known length
// (the encoding is materialized and cached), so it is replayable across
// redirects.
type FormData struct {
	boundary string
	entries  []formEntry
	encoded  []byte
}

type formEntry struct {
	name        string
	value       []byte
	filename    string
	contentType string
}

// NewFormData returns an empty container with a fresh random boundary.
func NewFormData() *FormData {
	return &FormData{
		boundary: "go-fetch-boundary-" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}

// Append adds a plain field.
func (f *FormData) Append(name, value string) {
	f.entries = append(f.entries, formEntry{name: name, value: []byte(value)})
	f.encoded = nil
}

// AppendFile adds a file field. contentType may be empty, in which case
// application/octet-stream is used on encode.
func (f *FormData) AppendFile(name, filename string, data []byte, contentType string) {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.entries = append(f.entries, formEntry{name: name, value: cp, filename: filename, contentType: contentType})
	f.encoded = nil
}

// Get returns the first value stored under name.
func (f *FormData) Get(name string) (string, bool) {
	for _, e := range f.entries {
		if e.name == name {
			return string(e.value), true
		}
	}
	return "", false
}

// GetAll returns every value stored under name in append order.
func (f *FormData) GetAll(name string) []string {
	var out []string
	for _, e := range f.entries {
		if e.name == name {
			out = append(out, string(e.value))
		}
	}
	return out
}

// Has reports whether name is present.
func (f *FormData) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Names returns the field names in append order, one per entry.
func (f *FormData) Names() []string {
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.name
	}
	return out
}

// Boundary returns the multipart boundary used by Encode.
func (f *FormData) Boundary() string {
	return f.boundary
}

// Encode renders the container as a multipart/form-data body. The result is
// cached until the container is mutated.
func (f *FormData) Encode() ([]byte, error) {
	if f.encoded != nil {
		return f.encoded, nil
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(f.boundary); err != nil {
		return nil, typeError(fmt.Sprintf("invalid multipart boundary %q: %v", f.boundary, err))
	}
	for _, e := range f.entries {
		var (
			pw  io.Writer
			err error
		)
		if e.filename != "" {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
				escapeQuotes(e.name), escapeQuotes(e.filename)))
			ct := e.contentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			h.Set("Content-Type", ct)
			pw, err = w.CreatePart(h)
		} else {
			pw, err = w.CreateFormField(e.name)
		}
		if err != nil {
			return nil, wrapError(KindSystem, err, "could not encode multipart form: "+err.Error())
		}
		if _, err := pw.Write(e.value); err != nil {
			return nil, wrapError(KindSystem, err, "could not encode multipart form: "+err.Error())
		}
	}
	if err := w.Close(); err != nil {
		return nil, wrapError(KindSystem, err, "could not finalize multipart form: "+err.Error())
	}
	f.encoded = buf.Bytes()
	return f.encoded, nil
}

// Len returns the encoded length in bytes, or -1 if the container cannot be
// encoded.
func (f *FormData) Len() int64 {
	enc, err := f.Encode()
	if err != nil {
		return -1
	}
	return int64(len(enc))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// Package fetch is an HTTP/1.1 and HTTP/2-over-TLS client modeled on the
// WHATWG Fetch contract, adapted for server-side Go. A single call submits a
// request description and returns a Response whose body is a single-use byte
// stream consumable as bytes, text, JSON, a blob, or a multipart form.
//
// The package owns the request pipeline (URL validation, header
// normalization, body materialization and content negotiation), the redirect
// state machine, transparent response decompression, and the Body
// consumption protocol with size caps and timeouts. Connection management is
// delegated to a caller-supplied Agent (any http.RoundTripper); the default
// agent pools connections and negotiates HTTP/2 over TLS.
package fetch

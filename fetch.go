package fetch

import "context"

// DefaultClient is the client used by the package-level Fetch. It shares
// DefaultAgent's connection pool and logs nothing.
var DefaultClient = NewClient(ClientConfig{})

// Fetch performs a request–response operation against an absolute HTTP(S)
// URL. input may be a URL string, a *url.URL, or a *Request; opts may be nil
// for the defaults (GET, follow up to DefaultFollow redirects, compression
// on). The response body is single-use: consume it with Bytes, Text, JSON,
// Blob, or FormData, or split it first with Clone.
func Fetch(ctx context.Context, input any, opts *Options) (*Response, error) {
	return DefaultClient.Fetch(ctx, input, opts)
}

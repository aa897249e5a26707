// Package fetchtest runs a loopback HTTP server exercising every branch of
// the fetch pipeline: plain and JSON fixtures, an echo endpoint, redirect
// chains for each relevant status, compressed payloads in every accepted
// encoding, stalls for both timeout phases, and chunked oversized bodies.
package fetchtest

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// Server is a loopback fixture server. Create one with NewServer, read its
// base URL with URL, and Close it when done.
type Server struct {
	listener net.Listener
	server   *http.Server
	base     string

	headerDelay atomic.Int64 // ns; stalls every /timeout response
	bodyDelay   atomic.Int64 // ns; stalls /slow-body between chunks
}

// SetHeaderDelay changes how long /timeout sits on the request before
// sending headers. The default is 1s.
func (s *Server) SetHeaderDelay(d time.Duration) {
	s.headerDelay.Store(int64(d))
}

// SetBodyDelay changes how long /slow-body stalls between its first and
// second chunk. The default is 1s.
func (s *Server) SetBodyDelay(d time.Duration) {
	s.bodyDelay.Store(int64(d))
}

// inspection is the echo payload served by /inspect.
type inspection struct {
	Method  string              `json:"method"`
	URL     string              `json:"url"`
	Headers map[string][]string `json:"headers"`
	Body    string              `json:"body"`
}

// NewServer starts the fixture server on an ephemeral loopback port.
func NewServer() (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("could not listen on loopback: %w", err)
	}

	s := &Server{
		listener: listener,
		base:     "http://" + listener.Addr().String(),
	}
	s.headerDelay.Store(int64(time.Second))
	s.bodyDelay.Store(int64(time.Second))

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.register(engine)

	s.server = &http.Server{Handler: engine}
	go func() { _ = s.server.Serve(listener) }()
	return s, nil
}

// URL returns the base URL of the server, without a trailing slash.
func (s *Server) URL() string {
	return s.base
}

// Close stops the server immediately.
func (s *Server) Close() {
	_ = s.server.Close()
}

func (s *Server) register(engine *gin.Engine) {
	engine.GET("/hello", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain")
		c.String(http.StatusOK, "world")
	})

	engine.GET("/json", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "value"})
	})

	engine.GET("/error/json", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.String(http.StatusOK, "not json {")
	})

	engine.Any("/inspect", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		headers := map[string][]string(c.Request.Header.Clone())
		// The server promotes framing headers into request fields; put the
		// observed length back so clients can assert on it.
		if c.Request.ContentLength >= 0 && len(headers["Content-Length"]) == 0 && len(c.Request.TransferEncoding) == 0 {
			headers["Content-Length"] = []string{strconv.FormatInt(c.Request.ContentLength, 10)}
		}
		c.JSON(http.StatusOK, inspection{
			Method:  c.Request.Method,
			URL:     c.Request.URL.String(),
			Headers: headers,
			Body:    string(body),
		})
	})

	// One hop to /inspect with the requested redirect status.
	engine.Any("/redirect/:status", func(c *gin.Context) {
		status, err := strconv.Atoi(c.Param("status"))
		if err != nil || status < 300 || status > 308 {
			c.String(http.StatusBadRequest, "bad redirect status")
			return
		}
		c.Redirect(status, "/inspect")
	})

	// Two hops, then a 200: /redirect/chain -> hop 1 -> /hello.
	engine.GET("/redirect/chain", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/redirect/chain/1")
	})
	engine.GET("/redirect/chain/1", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/hello")
	})

	engine.GET("/redirect/absolute", func(c *gin.Context) {
		c.Redirect(http.StatusFound, s.base+"/inspect")
	})

	// Redirect status without a Location header; must be terminal.
	engine.GET("/redirect/no-location", func(c *gin.Context) {
		c.Status(http.StatusMovedPermanently)
	})

	engine.GET("/gzip", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain")
		c.Header("Content-Encoding", "gzip")
		zw := gzip.NewWriter(c.Writer)
		_, _ = zw.Write([]byte("hello world"))
		_ = zw.Close()
	})

	// A valid gzip member followed by trailing garbage the decoder must
	// tolerate.
	engine.GET("/gzip-garbage", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain")
		c.Header("Content-Encoding", "gzip")
		zw := gzip.NewWriter(c.Writer)
		_, _ = zw.Write([]byte("hello world"))
		_ = zw.Close()
		_, _ = c.Writer.Write([]byte("trailing-garbage"))
	})

	engine.GET("/invalid-gzip", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain")
		c.Header("Content-Encoding", "gzip")
		_, _ = c.Writer.Write([]byte("definitely not gzip"))
	})

	engine.GET("/deflate", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain")
		c.Header("Content-Encoding", "deflate")
		zw := zlib.NewWriter(c.Writer)
		_, _ = zw.Write([]byte("hello world"))
		_ = zw.Close()
	})

	engine.GET("/deflate-raw", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain")
		c.Header("Content-Encoding", "deflate")
		fw, _ := flate.NewWriter(c.Writer, flate.DefaultCompression)
		_, _ = fw.Write([]byte("hello world"))
		_ = fw.Close()
	})

	engine.GET("/brotli", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain")
		c.Header("Content-Encoding", "br")
		bw := brotli.NewWriter(c.Writer)
		_, _ = bw.Write([]byte("hello world"))
		_ = bw.Close()
	})

	// Headers never arrive within a sane client deadline.
	engine.GET("/timeout", func(c *gin.Context) {
		time.Sleep(time.Duration(s.headerDelay.Load()))
		c.String(http.StatusOK, "late")
	})

	// Headers arrive promptly, the body stalls mid-stream.
	engine.GET("/slow-body", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain")
		c.Writer.WriteHeaderNow()
		_, _ = c.Writer.Write([]byte("partial"))
		c.Writer.Flush()
		time.Sleep(time.Duration(s.bodyDelay.Load()))
		_, _ = c.Writer.Write([]byte(" rest"))
	})

	// Ten bytes delivered in chunks, for exercising size caps.
	engine.GET("/size/chunk", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain")
		c.Writer.WriteHeaderNow()
		for i := 0; i < 5; i++ {
			_, _ = c.Writer.Write([]byte("ab"))
			c.Writer.Flush()
		}
	})

	engine.GET("/cookies", func(c *gin.Context) {
		c.Writer.Header().Add("Set-Cookie", "a=1")
		c.Writer.Header().Add("Set-Cookie", "b=2, with comma")
		c.String(http.StatusOK, "cookies")
	})

	engine.GET("/no-content", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	engine.GET("/not-modified", func(c *gin.Context) {
		c.Header("Content-Encoding", "gzip")
		c.Status(http.StatusNotModified)
	})

	engine.GET("/multipart", func(c *gin.Context) {
		c.Header("Content-Type", "multipart/form-data; boundary=fixture")
		body := "--fixture\r\n" +
			"Content-Disposition: form-data; name=\"field\"\r\n\r\n" +
			"value\r\n" +
			"--fixture\r\n" +
			"Content-Disposition: form-data; name=\"upload\"; filename=\"notes.txt\"\r\n" +
			"Content-Type: text/plain\r\n\r\n" +
			"file contents\r\n" +
			"--fixture--\r\n"
		c.String(http.StatusOK, "%s", body)
	})

	engine.GET("/urlencoded", func(c *gin.Context) {
		c.Header("Content-Type", "application/x-www-form-urlencoded")
		c.String(http.StatusOK, "a=1&b=two+words")
	})
}

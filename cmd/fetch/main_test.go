package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fetch "github.com/sofatutor/go-fetch"
	"github.com/sofatutor/go-fetch/internal/config"
)

func resetFlags() {
	envFile = ""
	configFile = ""
	method = ""
	headerFlags = nil
	data = ""
	dataFile = ""
	output = ""
	timeout = 0
	redirect = "follow"
	maxRedirect = -1
	maxSize = 0
	noCompress = false
	verbose = false
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&fetch.FetchError{Kind: fetch.KindTypeError}, 2},
		{&fetch.FetchError{Kind: fetch.KindRequestTimeout}, 3},
		{&fetch.FetchError{Kind: fetch.KindBodyTimeout}, 3},
		{&fetch.FetchError{Kind: fetch.KindMaxRedirect}, 4},
		{&fetch.FetchError{Kind: fetch.KindNoRedirect}, 4},
		{&fetch.FetchError{Kind: fetch.KindUnsupportedRedirect}, 4},
		{&fetch.FetchError{Kind: fetch.KindMaxSize}, 5},
		{&fetch.FetchError{Kind: fetch.KindSystem}, 1},
		{errors.New("plain"), 1},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.code, exitCode(tc.err))
	}
}

func TestBuildOptionsFromConfig(t *testing.T) {
	resetFlags()
	cfg := &config.Config{
		Method:       "GET",
		MaxRedirects: 0,
		Compress:     true,
	}
	opts, err := buildOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, fetch.NoFollow, opts.Follow)
	assert.False(t, opts.DisableCompression)
	assert.Equal(t, fetch.RedirectFollow, opts.Redirect)
}

func TestBuildOptionsFlagOverrides(t *testing.T) {
	resetFlags()
	method = "POST"
	data = "a=1"
	noCompress = true
	maxRedirect = 2
	headerFlags = []string{"X-Token: abc", "Accept: application/json"}

	cfg := &config.Config{Method: "GET", MaxRedirects: 20, Compress: true}
	opts, err := buildOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, "POST", opts.Method)
	assert.Equal(t, "a=1", opts.Body)
	assert.True(t, opts.DisableCompression)
	assert.Equal(t, 2, opts.Follow)
	assert.Equal(t, [][]string{
		{"X-Token", "abc"},
		{"Accept", "application/json"},
	}, opts.Headers)
}

func TestBuildOptionsRejectsBadHeaderFlag(t *testing.T) {
	resetFlags()
	headerFlags = []string{"not-a-header"}
	_, err := buildOptions(&config.Config{Compress: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid header flag")
}

func TestBuildOptionsUserAgentFromConfig(t *testing.T) {
	resetFlags()
	cfg := &config.Config{Compress: true, UserAgent: "scripted/2"}
	opts, err := buildOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"User-Agent", "scripted/2"}}, opts.Headers)
}

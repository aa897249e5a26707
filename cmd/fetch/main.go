// Command fetch performs a one-shot HTTP(S) request with the go-fetch
// pipeline and writes the response body to stdout or a file.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	fetch "github.com/sofatutor/go-fetch"
	"github.com/sofatutor/go-fetch/internal/config"
	"github.com/sofatutor/go-fetch/internal/logging"

	"github.com/google/uuid"
)

// Command line flags
var (
	envFile     string
	configFile  string
	method      string
	headerFlags []string
	data        string
	dataFile    string
	output      string
	timeout     time.Duration
	redirect    string
	maxRedirect int
	maxSize     int64
	noCompress  bool
	verbose     bool
)

// For testing
var (
	osExit = os.Exit
	stdout = io.Writer(os.Stdout)
	stderr = io.Writer(os.Stderr)
)

var rootCmd = &cobra.Command{
	Use:   "fetch URL",
	Short: "Fetch a URL with the go-fetch pipeline",
	Long: `fetch performs a single HTTP(S) request and prints the response body.

Defaults come from the environment (FETCH_* variables, optionally loaded
from an env file) or a YAML profile, and can be overridden per invocation
with flags.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "Load environment variables from this file first")
	rootCmd.Flags().StringVar(&configFile, "config", "", "YAML profile with request defaults")
	rootCmd.Flags().StringVarP(&method, "method", "X", "", "Request method (default GET)")
	rootCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	rootCmd.Flags().StringVarP(&data, "data", "d", "", "Request body")
	rootCmd.Flags().StringVar(&dataFile, "data-file", "", "Stream the request body from this file")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "Write the response body to this file")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "Request and body deadline (e.g. 5s)")
	rootCmd.Flags().StringVar(&redirect, "redirect", "follow", "Redirect mode: follow, manual or error")
	rootCmd.Flags().IntVar(&maxRedirect, "max-redirect", -1, "Redirect hop limit (0 forbids redirects)")
	rootCmd.Flags().Int64Var(&maxSize, "max-size", 0, "Response body cap in bytes (0 = unbounded)")
	rootCmd.Flags().BoolVar(&noCompress, "no-compress", false, "Disable transparent decompression")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print status line and response headers to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "fetch: %v\n", err)
		osExit(exitCode(err))
	}
}

// exitCode maps error kinds onto distinct exit statuses so scripts can
// branch on the failure mode.
func exitCode(err error) int {
	switch fetch.ErrorKindOf(err) {
	case fetch.KindTypeError:
		return 2
	case fetch.KindRequestTimeout, fetch.KindBodyTimeout:
		return 3
	case fetch.KindMaxRedirect, fetch.KindNoRedirect, fetch.KindUnsupportedRedirect:
		return 4
	case fetch.KindMaxSize:
		return 5
	default:
		return 1
	}
}

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("could not load env file %s: %w", envFile, err)
		}
	}
	if configFile != "" {
		return config.LoadFromFile(configFile)
	}
	return config.New()
}

func buildOptions(cfg *config.Config) (*fetch.Options, error) {
	opts := &fetch.Options{
		Method:             cfg.Method,
		Timeout:            cfg.Timeout,
		Size:               cfg.MaxBodySize,
		DisableCompression: !cfg.Compress,
	}
	if cfg.MaxRedirects == 0 {
		opts.Follow = fetch.NoFollow
	} else {
		opts.Follow = cfg.MaxRedirects
	}

	if method != "" {
		opts.Method = method
	}
	if timeout > 0 {
		opts.Timeout = timeout
	}
	if maxSize > 0 {
		opts.Size = maxSize
	}
	if noCompress {
		opts.DisableCompression = true
	}
	if maxRedirect >= 0 {
		if maxRedirect == 0 {
			opts.Follow = fetch.NoFollow
		} else {
			opts.Follow = maxRedirect
		}
	}
	opts.Redirect = fetch.RedirectMode(redirect)

	headers := [][]string{}
	if cfg.UserAgent != "" {
		headers = append(headers, []string{"User-Agent", cfg.UserAgent})
	}
	for _, raw := range headerFlags {
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header flag %q, want 'Name: value'", raw)
		}
		headers = append(headers, []string{strings.TrimSpace(name), strings.TrimSpace(value)})
	}
	if len(headers) > 0 {
		opts.Headers = headers
	}

	switch {
	case dataFile != "":
		f, err := os.Open(dataFile)
		if err != nil {
			return nil, fmt.Errorf("could not open data file %s: %w", dataFile, err)
		}
		opts.Body = f
	case data != "":
		opts.Body = data
	}
	return opts, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logLevel := cfg.LogLevel
	if verbose {
		logLevel = "debug"
	}
	logger, err := logging.NewComponentLogger(logLevel, cfg.LogFormat, cfg.LogFile, logging.ComponentCLI)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String(logging.FieldRequestID, uuid.NewString()))

	opts, err := buildOptions(cfg)
	if err != nil {
		return err
	}

	client := fetch.NewClient(fetch.ClientConfig{Logger: logger})
	res, err := client.Fetch(context.Background(), args[0], opts)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(stderr, "%d %s  %s\n", res.Status(), res.StatusText(), res.URL())
		res.Headers().ForEach(func(name, value string) {
			fmt.Fprintf(stderr, "%s: %s\n", name, value)
		})
	}

	body, err := res.Bytes()
	if err != nil {
		return err
	}

	dst := stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("could not create output file %s: %w", output, err)
		}
		defer func() { _ = f.Close() }()
		dst = f
	}
	if _, err := dst.Write(body); err != nil {
		return fmt.Errorf("could not write response body: %w", err)
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	u "net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/rangefetch/internal/fetcher"
	"github.com/tanq16/rangefetch/internal/output"
	"github.com/tanq16/rangefetch/internal/transport"
	"github.com/tanq16/rangefetch/internal/utils"
)

var (
	configFile    string
	chunkSize     string
	workers       int
	retries       int
	maxRanges     int
	retryDelay    time.Duration
	timeout       time.Duration
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string
	s3Profile     string
	bestEffort    bool
	keepMeta      bool
	debug         bool
)

var RangefetchVersion = "dev"

var errInterrupted = errors.New("download interrupted, rerun the same command to resume")

var rootCmd = &cobra.Command{
	Use:     "rangefetch <url> [destinationPath]",
	Short:   "Parallel, resumable, chunked file fetcher",
	Version: RangefetchVersion,
	Args:    cobra.RangeArgs(1, 2),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := buildConfig(cmd, args)
		if err != nil {
			output.PrintError(err.Error())
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runFetch(ctx, cfg); err != nil {
			output.PrintError(err.Error())
			stop()
			os.Exit(1)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML file with default options")
	rootCmd.Flags().StringVarP(&chunkSize, "chunk-size", "s", "1MB", "Size of each byte range (eg. 512KB, 4MB)")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of parallel connections (0 picks from file size)")
	rootCmd.Flags().IntVarP(&retries, "retries", "r", utils.DefaultMaxAttempts, "Attempts per range before it is abandoned")
	rootCmd.Flags().IntVar(&maxRanges, "max-ranges", utils.DefaultMaxRanges, "Largest number of ranges a single object may be split into")
	rootCmd.Flags().DurationVar(&retryDelay, "retry-delay", utils.DefaultRetryDelay, "Base delay between attempts, grows linearly")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 3*time.Minute, "Connection timeout (eg. 5s, 10m)")
	rootCmd.Flags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.Flags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent (\"randomize\" picks a browser agent)")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.Flags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.Flags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.Flags().StringVar(&s3Profile, "profile", "default", "AWS shared config profile for s3:// URLs")
	rootCmd.Flags().BoolVar(&bestEffort, "best-effort", false, "Exit 0 even when some ranges could not be fetched")
	rootCmd.Flags().BoolVar(&keepMeta, "keep-meta", false, "Keep the .meta resume files after a complete download")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newCleanCmd())
}

// buildConfig layers defaults, the config file and explicitly set flags.
func buildConfig(cmd *cobra.Command, args []string) (utils.Config, error) {
	cfg := utils.DefaultConfig()
	if configFile != "" {
		fc, err := utils.ReadConfigFile(configFile)
		if err != nil {
			return cfg, err
		}
		if err := fc.Apply(&cfg); err != nil {
			return cfg, err
		}
	}

	cfg.URL = args[0]
	if len(args) > 1 {
		cfg.OutputPath = args[1]
	}
	if _, err := u.Parse(cfg.URL); err != nil {
		return cfg, errors.New("invalid URL format")
	}

	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		size, err := utils.ParseBytes(chunkSize)
		if err != nil {
			return cfg, err
		}
		cfg.ChunkSize = size
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("retries") {
		cfg.MaxAttempts = retries
	}
	if flags.Changed("max-ranges") {
		cfg.MaxRanges = maxRanges
	}
	if flags.Changed("retry-delay") {
		cfg.RetryDelay = retryDelay
	}
	if flags.Changed("timeout") {
		cfg.HTTPClientConfig.Timeout = timeout
	}
	if flags.Changed("keep-alive-timeout") {
		cfg.HTTPClientConfig.KATimeout = kaTimeout
	}
	if flags.Changed("user-agent") {
		cfg.HTTPClientConfig.UserAgent = userAgent
	}
	if cfg.HTTPClientConfig.UserAgent == "randomize" {
		cfg.HTTPClientConfig.UserAgent = utils.GetRandomUserAgent()
	}
	if flags.Changed("proxy") {
		cfg.HTTPClientConfig.ProxyURL = proxyURL
	}
	if flags.Changed("profile") {
		cfg.S3Profile = s3Profile
	}
	for k, v := range utils.ParseHeaderArgs(headers) {
		cfg.HTTPClientConfig.Headers[k] = v
	}
	cfg.BestEffort = cfg.BestEffort || bestEffort
	cfg.KeepMeta = cfg.KeepMeta || keepMeta

	// Check if proxy URL contains auth
	cfg.HTTPClientConfig.ProxyUsername = proxyUsername
	cfg.HTTPClientConfig.ProxyPassword = proxyPassword
	parsedProxy, err := u.Parse(cfg.HTTPClientConfig.ProxyURL)
	if err == nil && parsedProxy.User != nil && proxyUsername == "" {
		cfg.HTTPClientConfig.ProxyUsername = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			cfg.HTTPClientConfig.ProxyPassword = password
		}
		// Remove auth from URL to send in clientConfig
		parsedProxy.User = nil
		cfg.HTTPClientConfig.ProxyURL = parsedProxy.String()
	}
	return cfg, cfg.Validate()
}

// newTransport picks the backend for cfg.URL. More than five workers, or
// automatic sizing, switch the HTTP client into high-thread mode.
func newTransport(ctx context.Context, cfg utils.Config) (fetcher.Transport, error) {
	if utils.DetermineTransport(cfg.URL) == "s3" {
		return transport.NewS3Transport(ctx, cfg.S3Profile)
	}
	httpCfg := cfg.HTTPClientConfig
	httpCfg.HighThreadMode = cfg.Workers == 0 || cfg.Workers > 5
	return transport.NewHTTPTransport(httpCfg), nil
}

func runFetch(ctx context.Context, cfg utils.Config) error {
	tr, err := newTransport(ctx, cfg)
	if err != nil {
		return err
	}
	return fetchWith(ctx, cfg, tr)
}

func fetchWith(ctx context.Context, cfg utils.Config, tr fetcher.Transport) error {
	task := fetcher.Task{URL: cfg.URL, OutputPath: cfg.OutputPath}
	result, err := fetcher.Run(ctx, task, tr, fetcher.Options{
		ChunkSize:   cfg.ChunkSize,
		Workers:     cfg.Workers,
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
		MaxRanges:   cfg.MaxRanges,
		RemoveMeta:  !cfg.KeepMeta,
		Out:         os.Stdout,
	})
	return reportResult(cfg, result, err)
}

// reportResult prints the outcome of a run and decides whether it counts as
// a failure. Abandoned ranges fail the run unless BestEffort is set.
func reportResult(cfg utils.Config, result *fetcher.Result, err error) error {
	if err != nil {
		var probeErr *fetcher.ProbeError
		if errors.As(err, &probeErr) {
			return fmt.Errorf("failed to get file size: %v", probeErr.Err)
		}
		if errors.Is(err, context.Canceled) {
			return errInterrupted
		}
		return err
	}
	log := utils.GetLogger("cli")
	log.Debug().Int("ranges", result.Ranges).Int("skipped", result.Skipped).
		Int("completed", result.Completed).Dur("elapsed", result.Duration).Msg("Run finished")

	if len(result.Failed) > 0 {
		for _, f := range result.Failed {
			output.PrintWarning(fmt.Sprintf("%s Chunk %d-%d failed after retries.", output.StyleSymbols["warning"], f.Range.Start, f.Range.End))
		}
		msg := fmt.Sprintf("%d of %d ranges missing from %s; rerun to fetch them", len(result.Failed), result.Ranges, cfg.OutputPath)
		if !cfg.BestEffort {
			return errors.New(msg)
		}
		output.PrintWarning(msg)
	} else {
		output.PrintSuccess(fmt.Sprintf("%s Download complete!", output.StyleSymbols["pass"]))
	}
	output.PrintInfo(fmt.Sprintf("File saved as: %s", cfg.OutputPath))
	return nil
}

package utils

import "time"

// DefaultConfig returns the baseline configuration used before a config
// file or flags are applied.
func DefaultConfig() Config {
	return Config{
		OutputPath:  DefaultOutputPath,
		ChunkSize:   DefaultChunkSize,
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		MaxRanges:   DefaultMaxRanges,
		S3Profile:   "default",
		HTTPClientConfig: HTTPClientConfig{
			Timeout:   3 * time.Minute,
			KATimeout: 90 * time.Second,
			UserAgent: ToolUserAgent,
			Headers:   map[string]string{},
		},
	}
}

// Local-only User-Agent list
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.3 Safari/605.1.15",
	"curl/7.88.1",
	"Wget/1.21.4",
}

package utils

import (
	"errors"
	"time"
)

// Config holds every knob of a single fetch run. It is assembled from
// defaults, an optional YAML file, and the command line (in that order).
type Config struct {
	URL              string
	OutputPath       string
	ChunkSize        int64
	Workers          int // 0 picks from the size table
	MaxAttempts      int
	RetryDelay       time.Duration
	MaxRanges        int
	BestEffort       bool
	KeepMeta         bool
	S3Profile        string
	HTTPClientConfig HTTPClientConfig
}

// FileConfig mirrors Config for YAML config files. Sizes and durations are
// strings so they can be written as "4MB" or "30s".
type FileConfig struct {
	ChunkSize   string            `yaml:"chunk_size"`
	Workers     int               `yaml:"workers"`
	MaxAttempts int               `yaml:"retries"`
	RetryDelay  string            `yaml:"retry_delay"`
	MaxRanges   int               `yaml:"max_ranges"`
	BestEffort  bool              `yaml:"best_effort"`
	KeepMeta    bool              `yaml:"keep_meta"`
	S3Profile   string            `yaml:"profile"`
	Timeout     string            `yaml:"timeout"`
	KATimeout   string            `yaml:"keep_alive_timeout"`
	UserAgent   string            `yaml:"user_agent"`
	ProxyURL    string            `yaml:"proxy"`
	Headers     map[string]string `yaml:"headers"`
}

const DefaultBufferSize = 1024 * 1024 * 8 // 8MB socket buffers
const CopyBufferSize = 1024 * 64
const DefaultChunkSize = 1024 * 1024 // 1MB
const DefaultMaxAttempts = 3
const DefaultMaxRanges = 1 << 20
const DefaultRetryDelay = 500 * time.Millisecond
const DefaultOutputPath = "output.mkv"
const MetaSuffix = ".meta"
const ManifestSuffix = ".meta.yaml"
const ToolUserAgent = "rangefetch/1.0"

var ErrRangeRequestsNotSupported = errors.New("range requests are not supported")

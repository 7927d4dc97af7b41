package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ReadConfigFile parses a YAML defaults file.
func ReadConfigFile(filePath string) (FileConfig, error) {
	log := GetLogger("config")
	data, err := os.ReadFile(filePath)
	if err != nil {
		return FileConfig{}, fmt.Errorf("error reading YAML file: %v", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("error parsing YAML file: %v", err)
	}
	log.Debug().Str("file", filePath).Msg("Loaded config file")
	return fc, nil
}

// Apply overlays the non-zero values of fc onto cfg.
func (fc FileConfig) Apply(cfg *Config) error {
	if fc.ChunkSize != "" {
		size, err := ParseBytes(fc.ChunkSize)
		if err != nil {
			return fmt.Errorf("parse chunk_size: %w", err)
		}
		cfg.ChunkSize = size
	}
	if fc.Workers != 0 {
		cfg.Workers = fc.Workers
	}
	if fc.MaxAttempts != 0 {
		cfg.MaxAttempts = fc.MaxAttempts
	}
	if fc.RetryDelay != "" {
		d, err := time.ParseDuration(fc.RetryDelay)
		if err != nil {
			return fmt.Errorf("parse retry_delay: %w", err)
		}
		cfg.RetryDelay = d
	}
	if fc.MaxRanges != 0 {
		cfg.MaxRanges = fc.MaxRanges
	}
	cfg.BestEffort = cfg.BestEffort || fc.BestEffort
	cfg.KeepMeta = cfg.KeepMeta || fc.KeepMeta
	if fc.S3Profile != "" {
		cfg.S3Profile = fc.S3Profile
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("parse timeout: %w", err)
		}
		cfg.HTTPClientConfig.Timeout = d
	}
	if fc.KATimeout != "" {
		d, err := time.ParseDuration(fc.KATimeout)
		if err != nil {
			return fmt.Errorf("parse keep_alive_timeout: %w", err)
		}
		cfg.HTTPClientConfig.KATimeout = d
	}
	if fc.UserAgent != "" {
		cfg.HTTPClientConfig.UserAgent = fc.UserAgent
	}
	if fc.ProxyURL != "" {
		cfg.HTTPClientConfig.ProxyURL = fc.ProxyURL
	}
	if len(fc.Headers) > 0 {
		if cfg.HTTPClientConfig.Headers == nil {
			cfg.HTTPClientConfig.Headers = make(map[string]string)
		}
		for k, v := range fc.Headers {
			cfg.HTTPClientConfig.Headers[k] = v
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.OutputPath == "" {
		return errors.New("config: output path is required")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk size must be positive")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("config: retries must be positive")
	}
	if c.Workers < 0 {
		return errors.New("config: workers cannot be negative")
	}
	if c.MaxRanges <= 0 {
		return errors.New("config: max ranges must be positive")
	}
	return nil
}

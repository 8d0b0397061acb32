// Package config loads the command line configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/picatz/bato/stream"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file in the user's home directory.
const FileName = ".bato.yaml"

// Environment variables that override the file.
const (
	EnvAPIURL = "BATO_API_URL"
	EnvToken  = "BATO_TOKEN"
	EnvDebug  = "BATO_DEBUG"
)

type Config struct {
	APIURL      string          `yaml:"api_url"`
	Token       string          `yaml:"token"`
	UserID      string          `yaml:"user_id"`
	StrictMode  bool            `yaml:"strict_mode"`
	PrefixMode  string          `yaml:"prefix_mode"`
	CacheTTL    string          `yaml:"cache_ttl"`
	Retries     *int            `yaml:"retries"`
	Backoff     string          `yaml:"backoff"`
	HistoryPath string          `yaml:"history_path"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Log         LogConfig       `yaml:"log"`
}

// RateLimitConfig holds the client-side request limits. Zero rates disable limiting.
type RateLimitConfig struct {
	StreamPerMinute float64 `yaml:"stream_per_minute"` // generation streams per minute
	RESTPerSecond   float64 `yaml:"rest_per_second"`   // other requests per second
	Burst           int     `yaml:"burst"`             // burst capacity for both (default: 1)
}

// GetBurst returns the burst capacity.
// Defaults to 1.
func (r RateLimitConfig) GetBurst() int {
	if r.Burst <= 0 {
		return 1
	}
	return r.Burst
}

// Enabled reports whether any limit is configured.
func (r RateLimitConfig) Enabled() bool {
	return r.StreamPerMinute > 0 || r.RESTPerSecond > 0
}

type LogConfig struct {
	Debug  bool   `yaml:"debug"`
	JSON   bool   `yaml:"json"`
	File   string `yaml:"file"`   // also write debug JSON logs to this file
	Source bool   `yaml:"source"` // report file:line of each record
}

// GetAPIURL returns the backend address.
// Defaults to http://localhost:4000.
func (c *Config) GetAPIURL() string {
	if c.APIURL == "" {
		return "http://localhost:4000"
	}
	return c.APIURL
}

// GetCacheTTL returns how long GET responses stay cached.
// Defaults to 5 minutes.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// GetRetries returns the number of retries for failed requests.
// Defaults to 2.
func (c *Config) GetRetries() int {
	if c.Retries == nil {
		return 2
	}
	return *c.Retries
}

// GetBackoff returns the delay before the first retry.
// Defaults to 1 second.
func (c *Config) GetBackoff() time.Duration {
	d, err := time.ParseDuration(c.Backoff)
	if err != nil || d < 0 {
		return time.Second
	}
	return d
}

// GetPrefixMode returns how stream frames without a "data:" marker are handled.
func (c *Config) GetPrefixMode() stream.PrefixMode {
	return stream.ParsePrefixMode(c.PrefixMode)
}

// GetHistoryPath returns the directory of the local chat history database.
// Defaults to ~/.bato/history.
func (c *Config) GetHistoryPath() string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".bato", "history")
	}
	return filepath.Join(home, ".bato", "history")
}

// Validate checks the config for values that can't be used.
func (c *Config) Validate() error {
	u, err := url.Parse(c.GetAPIURL())
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api_url %q: scheme must be http or https", c.APIURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api_url %q: missing host", c.APIURL)
	}

	if c.CacheTTL != "" {
		if _, err := time.ParseDuration(c.CacheTTL); err != nil {
			return fmt.Errorf("invalid cache_ttl %q: %w", c.CacheTTL, err)
		}
	}
	if c.Backoff != "" {
		if _, err := time.ParseDuration(c.Backoff); err != nil {
			return fmt.Errorf("invalid backoff %q: %w", c.Backoff, err)
		}
	}
	if c.Retries != nil && *c.Retries < 0 {
		return fmt.Errorf("invalid retries %d: must not be negative", *c.Retries)
	}

	switch c.PrefixMode {
	case "", "optional", "required":
	default:
		return fmt.Errorf("invalid prefix_mode %q: must be optional or required", c.PrefixMode)
	}

	if c.RateLimit.StreamPerMinute < 0 || c.RateLimit.RESTPerSecond < 0 {
		return errors.New("invalid rate_limit: rates must not be negative")
	}

	return nil
}

// DefaultPath returns ~/.bato.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(home, FileName)
}

// Load reads the config file at path, expanding environment variables in it, and
// applies environment overrides. A missing file isn't an error: the defaults and the
// environment are used instead.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Log.Debug = debug
		}
	}
}

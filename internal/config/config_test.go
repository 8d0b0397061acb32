package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/picatz/bato/stream"
	"github.com/shoenig/test/must"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	must.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{EnvAPIURL, EnvToken, EnvDebug} {
		t.Setenv(key, "")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_BATO_TOKEN", "from-env")

	path := writeConfig(t, `
api_url: https://api.example.com
token: ${TEST_BATO_TOKEN}
user_id: u1
strict_mode: true
prefix_mode: required
cache_ttl: 30s
retries: 0
backoff: 250ms
history_path: /tmp/history
rate_limit:
  stream_per_minute: 6
  rest_per_second: 10
  burst: 3
log:
  debug: true
  json: true
  file: /tmp/bato.log
  source: true
`)

	cfg, err := Load(path)
	must.NoError(t, err)

	must.Eq(t, "https://api.example.com", cfg.GetAPIURL())
	must.Eq(t, "from-env", cfg.Token)
	must.Eq(t, "u1", cfg.UserID)
	must.True(t, cfg.StrictMode)
	must.Eq(t, stream.PrefixRequired, cfg.GetPrefixMode())
	must.Eq(t, 30*time.Second, cfg.GetCacheTTL())
	must.Eq(t, 0, cfg.GetRetries())
	must.Eq(t, 250*time.Millisecond, cfg.GetBackoff())
	must.Eq(t, "/tmp/history", cfg.GetHistoryPath())
	must.True(t, cfg.RateLimit.Enabled())
	must.Eq(t, 3, cfg.RateLimit.GetBurst())
	must.True(t, cfg.Log.Debug)
	must.True(t, cfg.Log.JSON)
	must.Eq(t, "/tmp/bato.log", cfg.Log.File)
	must.True(t, cfg.Log.Source)
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, "{}\n"))
	must.NoError(t, err)

	must.Eq(t, "http://localhost:4000", cfg.GetAPIURL())
	must.Eq(t, 5*time.Minute, cfg.GetCacheTTL())
	must.Eq(t, 2, cfg.GetRetries())
	must.Eq(t, time.Second, cfg.GetBackoff())
	must.Eq(t, stream.PrefixOptional, cfg.GetPrefixMode())
	must.StrHasSuffix(t, filepath.Join(".bato", "history"), cfg.GetHistoryPath())
	must.False(t, cfg.RateLimit.Enabled())
	must.Eq(t, 1, cfg.RateLimit.GetBurst())
}

func TestLoad_missingFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	must.NoError(t, err)
	must.Eq(t, "http://localhost:4000", cfg.GetAPIURL())
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://backend:9000")
	t.Setenv(EnvToken, "env-token")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load(writeConfig(t, "api_url: http://file:1\ntoken: file-token\n"))
	must.NoError(t, err)

	must.Eq(t, "http://backend:9000", cfg.GetAPIURL())
	must.Eq(t, "env-token", cfg.Token)
	must.True(t, cfg.Log.Debug)
}

func TestLoad_invalidYAML(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "api_url: [unterminated"))
	must.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	negative := -1

	tests := []struct {
		name string
		cfg  Config
		err  string
	}{
		{"defaults", Config{}, ""},
		{"bad scheme", Config{APIURL: "ftp://example.com"}, "scheme"},
		{"missing host", Config{APIURL: "http://"}, "missing host"},
		{"bad ttl", Config{CacheTTL: "soon"}, "cache_ttl"},
		{"bad backoff", Config{Backoff: "1 minute"}, "backoff"},
		{"negative retries", Config{Retries: &negative}, "retries"},
		{"bad prefix mode", Config{PrefixMode: "sometimes"}, "prefix_mode"},
		{"negative rate", Config{RateLimit: RateLimitConfig{RESTPerSecond: -1}}, "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.err == "" {
				must.NoError(t, err)
				return
			}
			must.ErrorContains(t, err, tt.err)
		})
	}
}

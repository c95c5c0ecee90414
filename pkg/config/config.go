package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Source backends
const (
	SourceSharePoint = "sharepoint"
	SourceClickHouse = "clickhouse"
)

// MaxConcurrency caps the worker pool; the remote service throttles aggressively
const MaxConcurrency = 8

// MaxRetryAttempts caps retries per remote call
const MaxRetryAttempts = 10

// Config holds all runtime configuration
type Config struct {
	// Source settings
	Source        string
	SiteURL       string
	ClickHouseDSN string

	// Session settings
	TenantID          string
	ClientID          string
	ClientSecret      string
	AccessToken       string
	CredentialsSecret string // namespace/name of a Kubernetes Secret
	KubeConfig        string
	Proxy             string

	// Discovery settings
	MinSizeMB    float64
	MaxFiles     int
	PageSize     int
	PageDelay    time.Duration
	Extensions   []string
	ExcludePaths []string

	// Retry settings
	RetryAttempts     int
	RetryBaseDelay    time.Duration
	RateLimitCooldown time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond int
	UserCacheTTL      time.Duration

	// Concurrency settings
	Concurrency int

	// Analysis settings
	StaleDays        int
	TopOverheadLimit int

	// Output settings
	OutputDir   string
	LogDir      string // run log directory, defaults to OutputDir
	MetricsFile string
	UploadURL   string // s3://bucket/prefix

	// Operational flags
	Verbose bool
	DryRun  bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source:            SourceSharePoint,
		MinSizeMB:         1,
		MaxFiles:          5000,
		PageSize:          500,
		PageDelay:         500 * time.Millisecond,
		Extensions:        []string{},
		ExcludePaths:      []string{},
		RetryAttempts:     0,
		RetryBaseDelay:    5 * time.Second,
		RateLimitCooldown: 30 * time.Second,
		RequestTimeout:    2 * time.Minute,
		RequestsPerSecond: 10,
		UserCacheTTL:      30 * time.Minute,
		Concurrency:       2,
		StaleDays:         90,
		TopOverheadLimit:  50,
		OutputDir:         "./report",
		Verbose:           false,
		DryRun:            false,
	}
}

// MinSizeBytes returns the discovery size threshold in bytes
func (c *Config) MinSizeBytes() int64 {
	return int64(c.MinSizeMB * 1024 * 1024)
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.Source {
	case SourceSharePoint:
		if strings.TrimSpace(c.SiteURL) == "" {
			return fmt.Errorf("--site-url is required for the sharepoint source")
		}
		u, err := url.Parse(c.SiteURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("invalid --site-url %q: must be an absolute URL", c.SiteURL)
		}
	case SourceClickHouse:
		if strings.TrimSpace(c.ClickHouseDSN) == "" {
			return fmt.Errorf("--clickhouse-dsn is required for the clickhouse source")
		}
	default:
		return fmt.Errorf("invalid --source value %q (expected %s or %s)", c.Source, SourceSharePoint, SourceClickHouse)
	}

	if c.MinSizeMB < 0 {
		return fmt.Errorf("--min-size must be >= 0")
	}
	if c.MaxFiles <= 0 {
		return fmt.Errorf("--max-files must be > 0")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("--page-size must be > 0")
	}
	if c.RetryAttempts < 0 || c.RetryAttempts > MaxRetryAttempts {
		return fmt.Errorf("--retry-attempts must be between 0 and %d", MaxRetryAttempts)
	}
	for _, d := range []struct {
		flag  string
		value time.Duration
	}{
		{"page-delay", c.PageDelay},
		{"retry-base-delay", c.RetryBaseDelay},
		{"rate-limit-cooldown", c.RateLimitCooldown},
		{"request-timeout", c.RequestTimeout},
		{"user-cache-ttl", c.UserCacheTTL},
	} {
		if d.value < 0 {
			return fmt.Errorf("--%s must be >= 0", d.flag)
		}
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("--concurrency must be between 1 and %d", MaxConcurrency)
	}
	if c.StaleDays < 1 {
		return fmt.Errorf("--stale-days must be > 0")
	}
	if c.TopOverheadLimit <= 0 {
		return fmt.Errorf("--top-overhead must be > 0")
	}
	if c.UploadURL != "" && !strings.HasPrefix(c.UploadURL, "s3://") {
		return fmt.Errorf("invalid --upload %q: expected s3://bucket/prefix", c.UploadURL)
	}

	return nil
}

// Target returns the host the run points at, for report metadata
func (c *Config) Target() string {
	raw := c.SiteURL
	if c.Source == SourceClickHouse {
		raw = c.ClickHouseDSN
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFileYAML is the canonical config filename.
	DefaultConfigFileYAML = ".docspectre.yaml"
	// DefaultConfigFileYML is a compatible alternate config filename.
	DefaultConfigFileYML = ".docspectre.yml"
)

// FileConfig represents values loaded from a .docspectre.yaml file.
// Pointer fields distinguish "unset" from zero values.
type FileConfig struct {
	Source            string   `yaml:"source"`
	SiteURL           string   `yaml:"site_url"`
	ClickHouseDSN     string   `yaml:"clickhouse_dsn"`
	TenantID          string   `yaml:"tenant_id"`
	ClientID          string   `yaml:"client_id"`
	CredentialsSecret string   `yaml:"credentials_secret"`
	Proxy             string   `yaml:"proxy"`
	Extensions        []string `yaml:"extensions"`
	ExcludePaths      []string `yaml:"exclude_paths"`
	MinSizeMB         *float64 `yaml:"min_size_mb"`
	MaxFiles          *int     `yaml:"max_files"`
	PageSize          *int     `yaml:"page_size"`
	PageDelay         string   `yaml:"page_delay"`
	RetryAttempts     *int     `yaml:"retry_attempts"`
	RetryBaseDelay    string   `yaml:"retry_base_delay"`
	Concurrency       *int     `yaml:"concurrency"`
	StaleDays         *int     `yaml:"stale_days"`
	OutputDir         string   `yaml:"output_dir"`
	UploadURL         string   `yaml:"upload"`
}

// Normalize trims and removes empty items from list fields.
func (fc *FileConfig) Normalize() {
	if fc == nil {
		return
	}
	fc.Extensions = normalizeList(fc.Extensions)
	fc.ExcludePaths = normalizeList(fc.ExcludePaths)
	fc.Source = strings.TrimSpace(fc.Source)
	fc.SiteURL = strings.TrimSpace(fc.SiteURL)
	fc.ClickHouseDSN = strings.TrimSpace(fc.ClickHouseDSN)
	fc.TenantID = strings.TrimSpace(fc.TenantID)
	fc.ClientID = strings.TrimSpace(fc.ClientID)
	fc.CredentialsSecret = strings.TrimSpace(fc.CredentialsSecret)
	fc.Proxy = strings.TrimSpace(fc.Proxy)
	fc.PageDelay = strings.TrimSpace(fc.PageDelay)
	fc.RetryBaseDelay = strings.TrimSpace(fc.RetryBaseDelay)
	fc.OutputDir = strings.TrimSpace(fc.OutputDir)
	fc.UploadURL = strings.TrimSpace(fc.UploadURL)
}

// AutoLoadFile discovers and loads the first available config file.
func AutoLoadFile() (*FileConfig, string, error) {
	candidates := []string{
		DefaultConfigFileYAML,
		DefaultConfigFileYML,
	}

	if homeDir, err := os.UserHomeDir(); err == nil && strings.TrimSpace(homeDir) != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, DefaultConfigFileYAML),
			filepath.Join(homeDir, DefaultConfigFileYML),
		)
	}

	return LoadFirstExistingFile(candidates)
}

// LoadFirstExistingFile loads the first config file that exists in paths.
func LoadFirstExistingFile(paths []string) (*FileConfig, string, error) {
	for _, path := range paths {
		candidate := strings.TrimSpace(path)
		if candidate == "" {
			continue
		}

		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to access config file %q: %w", candidate, err)
		}
		if info.IsDir() {
			return nil, "", fmt.Errorf("config path %q is a directory, expected a file", candidate)
		}

		cfg, err := LoadFile(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}

	return nil, "", nil
}

// LoadFile loads config values from a specific YAML file path.
func LoadFile(path string) (*FileConfig, error) {
	filename := strings.TrimSpace(path)
	if filename == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filename, err)
	}

	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", filename, err)
	}

	cfg.Normalize()
	return cfg, nil
}

// ApplyTo copies file values onto cfg, skipping any field for which isSet
// reports that a command-line flag was given explicitly.
func (fc *FileConfig) ApplyTo(cfg *Config, isSet func(flag string) bool) error {
	if fc == nil || cfg == nil {
		return nil
	}
	if isSet == nil {
		isSet = func(string) bool { return false }
	}

	setString := func(flag, value string, dst *string) {
		if value != "" && !isSet(flag) {
			*dst = value
		}
	}
	setInt := func(flag string, value *int, dst *int) {
		if value != nil && !isSet(flag) {
			*dst = *value
		}
	}

	setString("source", fc.Source, &cfg.Source)
	setString("site-url", fc.SiteURL, &cfg.SiteURL)
	setString("clickhouse-dsn", fc.ClickHouseDSN, &cfg.ClickHouseDSN)
	setString("tenant-id", fc.TenantID, &cfg.TenantID)
	setString("client-id", fc.ClientID, &cfg.ClientID)
	setString("credentials-secret", fc.CredentialsSecret, &cfg.CredentialsSecret)
	setString("proxy", fc.Proxy, &cfg.Proxy)
	setString("output", fc.OutputDir, &cfg.OutputDir)
	setString("upload", fc.UploadURL, &cfg.UploadURL)

	if len(fc.Extensions) > 0 && !isSet("extensions") {
		cfg.Extensions = append([]string{}, fc.Extensions...)
	}
	if len(fc.ExcludePaths) > 0 && !isSet("exclude-path") {
		cfg.ExcludePaths = append([]string{}, fc.ExcludePaths...)
	}
	if fc.MinSizeMB != nil && !isSet("min-size") {
		cfg.MinSizeMB = *fc.MinSizeMB
	}

	setInt("max-files", fc.MaxFiles, &cfg.MaxFiles)
	setInt("page-size", fc.PageSize, &cfg.PageSize)
	setInt("retry-attempts", fc.RetryAttempts, &cfg.RetryAttempts)
	setInt("concurrency", fc.Concurrency, &cfg.Concurrency)
	setInt("stale-days", fc.StaleDays, &cfg.StaleDays)

	if fc.PageDelay != "" && !isSet("page-delay") {
		d, err := ParseDuration(fc.PageDelay)
		if err != nil {
			return fmt.Errorf("invalid page_delay in config file: %w", err)
		}
		cfg.PageDelay = d
	}
	if fc.RetryBaseDelay != "" && !isSet("retry-base-delay") {
		d, err := ParseDuration(fc.RetryBaseDelay)
		if err != nil {
			return fmt.Errorf("invalid retry_base_delay in config file: %w", err)
		}
		cfg.RetryBaseDelay = d
	}

	return nil
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

package config

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Normalize trims config patterns and removes empty values.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.ExcludePaths = normalizePatterns(c.ExcludePaths)
	c.Extensions = normalizeExtensions(c.Extensions)
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	c.SiteURL = strings.TrimRight(strings.TrimSpace(c.SiteURL), "/")
}

// IsPathExcluded reports whether a server-relative path matches an exclude_paths glob.
func (c *Config) IsPathExcluded(path string) bool {
	if c == nil || len(c.ExcludePaths) == 0 {
		return false
	}

	value := strings.ToLower(strings.TrimSpace(path))
	if value == "" {
		return false
	}

	for _, pattern := range c.ExcludePaths {
		if patternMatches(pattern, value) {
			return true
		}
	}

	return false
}

func normalizeExtensions(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	seen := make(map[string]bool, len(values))
	normalized := make([]string, 0, len(values))
	for _, value := range values {
		// Accept comma-separated lists from a single flag value
		for _, part := range strings.Split(value, ",") {
			ext := strings.ToLower(strings.TrimLeft(strings.TrimSpace(part), "."))
			if ext == "" || seen[ext] {
				continue
			}
			seen[ext] = true
			normalized = append(normalized, ext)
		}
	}
	return normalized
}

func normalizePatterns(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, pattern := range values {
		p := normalizePattern(pattern)
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	return normalized
}

func normalizePattern(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func patternMatches(pattern, value string) bool {
	normalizedPattern := normalizePattern(pattern)
	if normalizedPattern == "" || value == "" {
		return false
	}

	// Invalid glob patterns are treated as exact matches.
	matched, err := doublestar.Match(normalizedPattern, value)
	if err == nil {
		return matched
	}
	return normalizedPattern == value
}

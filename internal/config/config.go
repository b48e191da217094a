package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the grazer configuration.
type Config struct {
	API    APIConfig    `yaml:"api"`
	Search SearchConfig `yaml:"search"`
	Share  ShareConfig  `yaml:"share"`
	Log    LogConfig    `yaml:"log"`
}

// APIConfig holds content-API settings.
type APIConfig struct {
	BaseURL          string `yaml:"base_url"`           // Content API base URL
	RequestTimeoutMs int    `yaml:"request_timeout_ms"` // Per-request timeout
	AnalyticsEnabled bool   `yaml:"analytics_enabled"`  // Send search analytics events
}

// SearchConfig holds search behaviour settings.
type SearchConfig struct {
	SuggestLimit    int    `yaml:"suggest_limit"`     // Max suggestions requested per fetch
	SuggestMinChars int    `yaml:"suggest_min_chars"` // Min query length before fetching
	DebounceMs      int    `yaml:"debounce_ms"`       // Keystroke debounce delay
	PageSize        int    `yaml:"page_size"`         // Results per page
	DefaultSort     string `yaml:"default_sort"`      // relevance, date, views
	Fuzzy           bool   `yaml:"fuzzy"`             // Fuzzy matching by default
}

// ShareConfig holds settings for shareable search links.
type ShareConfig struct {
	WebBaseURL string `yaml:"web_base_url"` // Website origin used to build /search links
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:          "http://localhost:5000",
			RequestTimeoutMs: 5000,
			AnalyticsEnabled: true,
		},
		Search: SearchConfig{
			SuggestLimit:    8,
			SuggestMinChars: 2,
			DebounceMs:      300,
			PageSize:        10,
			DefaultSort:     "relevance",
			Fuzzy:           false,
		},
		Share: ShareConfig{
			WebBaseURL: "http://localhost:3000",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil // Return defaults if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key.
// For example: "api.base_url" or "search.page_size"
func (c *Config) Get(key string) (string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "api":
		return c.getAPIField(field)
	case "search":
		return c.getSearchField(field)
	case "share":
		return c.getShareField(field)
	case "log":
		return c.getLogField(field)
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return errors.New("key must be in format 'section.key'")
	}

	section, field := parts[0], parts[1]

	switch section {
	case "api":
		return c.setAPIField(field, value)
	case "search":
		return c.setSearchField(field, value)
	case "share":
		return c.setShareField(field, value)
	case "log":
		return c.setLogField(field, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) getAPIField(field string) (string, error) {
	switch field {
	case "base_url":
		return c.API.BaseURL, nil
	case "request_timeout_ms":
		return strconv.Itoa(c.API.RequestTimeoutMs), nil
	case "analytics_enabled":
		return strconv.FormatBool(c.API.AnalyticsEnabled), nil
	default:
		return "", fmt.Errorf("unknown field: api.%s", field)
	}
}

func (c *Config) setAPIField(field, value string) error {
	switch field {
	case "base_url":
		if !isValidBaseURL(value) {
			return fmt.Errorf("invalid base_url: %s (must be an http or https URL)", value)
		}
		c.API.BaseURL = strings.TrimRight(value, "/")
	case "request_timeout_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for request_timeout_ms: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("invalid request_timeout_ms: must be >= 1")
		}
		c.API.RequestTimeoutMs = v
	case "analytics_enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for analytics_enabled: %w", err)
		}
		c.API.AnalyticsEnabled = v
	default:
		return fmt.Errorf("unknown field: api.%s", field)
	}
	return nil
}

func (c *Config) getSearchField(field string) (string, error) {
	switch field {
	case "suggest_limit":
		return strconv.Itoa(c.Search.SuggestLimit), nil
	case "suggest_min_chars":
		return strconv.Itoa(c.Search.SuggestMinChars), nil
	case "debounce_ms":
		return strconv.Itoa(c.Search.DebounceMs), nil
	case "page_size":
		return strconv.Itoa(c.Search.PageSize), nil
	case "default_sort":
		return c.Search.DefaultSort, nil
	case "fuzzy":
		return strconv.FormatBool(c.Search.Fuzzy), nil
	default:
		return "", fmt.Errorf("unknown field: search.%s", field)
	}
}

func (c *Config) setSearchField(field, value string) error {
	switch field {
	case "suggest_limit":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for suggest_limit: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("invalid suggest_limit: must be >= 1")
		}
		c.Search.SuggestLimit = v
	case "suggest_min_chars":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for suggest_min_chars: %w", err)
		}
		if v < 1 {
			return fmt.Errorf("invalid suggest_min_chars: must be >= 1")
		}
		c.Search.SuggestMinChars = v
	case "debounce_ms":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for debounce_ms: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("invalid debounce_ms: must be >= 0")
		}
		c.Search.DebounceMs = v
	case "page_size":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for page_size: %w", err)
		}
		if v < 1 {
			v = 1
		}
		if v > 100 {
			v = 100
		}
		c.Search.PageSize = v
	case "default_sort":
		if !isValidSort(value) {
			return fmt.Errorf("invalid default_sort: %s (must be relevance, date, or views)", value)
		}
		c.Search.DefaultSort = value
	case "fuzzy":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for fuzzy: %w", err)
		}
		c.Search.Fuzzy = v
	default:
		return fmt.Errorf("unknown field: search.%s", field)
	}
	return nil
}

func (c *Config) getShareField(field string) (string, error) {
	switch field {
	case "web_base_url":
		return c.Share.WebBaseURL, nil
	default:
		return "", fmt.Errorf("unknown field: share.%s", field)
	}
}

func (c *Config) setShareField(field, value string) error {
	switch field {
	case "web_base_url":
		if !isValidBaseURL(value) {
			return fmt.Errorf("invalid web_base_url: %s (must be an http or https URL)", value)
		}
		c.Share.WebBaseURL = strings.TrimRight(value, "/")
	default:
		return fmt.Errorf("unknown field: share.%s", field)
	}
	return nil
}

func (c *Config) getLogField(field string) (string, error) {
	switch field {
	case "level":
		return c.Log.Level, nil
	default:
		return "", fmt.Errorf("unknown field: log.%s", field)
	}
}

func (c *Config) setLogField(field, value string) error {
	switch field {
	case "level":
		if !isValidLogLevel(value) {
			return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", value)
		}
		c.Log.Level = value
	default:
		return fmt.Errorf("unknown field: log.%s", field)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !isValidBaseURL(c.API.BaseURL) {
		return fmt.Errorf("api.base_url must be an http or https URL (got: %s)", c.API.BaseURL)
	}

	if !isValidBaseURL(c.Share.WebBaseURL) {
		return fmt.Errorf("share.web_base_url must be an http or https URL (got: %s)", c.Share.WebBaseURL)
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	// Search settings never prevent startup; invalid values fall back with warnings.
	c.Search.ValidateAndFix()

	return nil
}

// ValidationWarning represents a config validation warning.
type ValidationWarning struct {
	Field   string
	Message string
}

// ValidateAndFix validates search config values.
// Invalid values are fixed by falling back to defaults or clamping.
// Returns a list of warnings for diagnostics. Validation never prevents startup.
func (s *SearchConfig) ValidateAndFix() []ValidationWarning {
	defaults := DefaultConfig().Search
	var warnings []ValidationWarning

	warn := func(field, msg string) {
		w := ValidationWarning{Field: field, Message: msg}
		warnings = append(warnings, w)
		log.Printf("WARN config: search.%s: %s", field, msg)
	}

	if s.SuggestLimit < 1 {
		warn("suggest_limit", fmt.Sprintf("must be >= 1, got %d; falling back to default %d", s.SuggestLimit, defaults.SuggestLimit))
		s.SuggestLimit = defaults.SuggestLimit
	}

	if s.SuggestMinChars < 1 {
		warn("suggest_min_chars", fmt.Sprintf("must be >= 1, got %d; falling back to default %d", s.SuggestMinChars, defaults.SuggestMinChars))
		s.SuggestMinChars = defaults.SuggestMinChars
	}

	if s.DebounceMs < 0 {
		warn("debounce_ms", fmt.Sprintf("must be >= 0, got %d; falling back to default %d", s.DebounceMs, defaults.DebounceMs))
		s.DebounceMs = defaults.DebounceMs
	}

	// Clamp page size to [1, 100]
	if s.PageSize < 1 {
		warn("page_size", fmt.Sprintf("must be >= 1, got %d; clamping to 1", s.PageSize))
		s.PageSize = 1
	}
	if s.PageSize > 100 {
		warn("page_size", fmt.Sprintf("must be <= 100, got %d; clamping to 100", s.PageSize))
		s.PageSize = 100
	}

	if !isValidSort(s.DefaultSort) {
		warn("default_sort", fmt.Sprintf("must be relevance, date, or views, got %q; falling back to %q", s.DefaultSort, defaults.DefaultSort))
		s.DefaultSort = defaults.DefaultSort
	}

	return warnings
}

// ApplyEnvOverrides applies environment variable overrides to the config.
// Environment variables override config file values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GRAZER_API_BASE_URL"); v != "" {
		if isValidBaseURL(v) {
			c.API.BaseURL = strings.TrimRight(v, "/")
		}
	}
	if v := os.Getenv("GRAZER_WEB_BASE_URL"); v != "" {
		if isValidBaseURL(v) {
			c.Share.WebBaseURL = strings.TrimRight(v, "/")
		}
	}
	if v := os.Getenv("GRAZER_ANALYTICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.API.AnalyticsEnabled = b
		}
	}
	if v := os.Getenv("GRAZER_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("GRAZER_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
}

// ListKeys returns user-facing configuration keys.
func ListKeys() []string {
	return []string{
		"api.base_url",
		"api.request_timeout_ms",
		"api.analytics_enabled",
		"search.suggest_limit",
		"search.suggest_min_chars",
		"search.debounce_ms",
		"search.page_size",
		"search.default_sort",
		"search.fuzzy",
		"share.web_base_url",
		"log.level",
	}
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidSort(sort string) bool {
	switch sort {
	case "relevance", "date", "views":
		return true
	default:
		return false
	}
}

func isValidBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Package config handles loading and resolving timefilter configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flags --url and --token
//  2. Environment variables SUPERSET_URL, SUPERSET_ACCESS_TOKEN, TIMEFILTER_DB_PATH
//  3. .env in the current working directory
//  4. config.json in the current working directory
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultConfigFile  = "config.json"
	DefaultEnvFile     = ".env"
	DefaultFormat      = "table"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultRate        = 5.0
	DefaultBaseURL     = "http://localhost:8088/"
	DefaultDebounce    = 500 * time.Millisecond
	DefaultCacheTTL    = 10 * time.Minute
	DefaultEndpoints   = "inclusive,exclusive"
	EnvBaseURL         = "SUPERSET_URL"
	EnvToken           = "SUPERSET_ACCESS_TOKEN"
	EnvDBPath          = "TIMEFILTER_DB_PATH"
)

// File is the on-disk representation of config.json.
type File struct {
	BaseURL       string  `json:"base_url"`
	AccessToken   string  `json:"access_token"`
	DefaultFormat string  `json:"default_format"`
	Timeout       string  `json:"timeout"`
	Concurrency   int     `json:"concurrency"`
	Rate          float64 `json:"rate"`
	DBPath        string  `json:"db_path"`
	Debounce      string  `json:"debounce"`
	CacheTTL      string  `json:"cache_ttl"`
	Endpoints     string  `json:"endpoints"`
	RegistryPath  string  `json:"registry_path"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	BaseURL      string
	AccessToken  string
	Format       string
	Timeout      time.Duration
	Concurrency  int
	Rate         float64
	DBPath       string
	Debounce     time.Duration
	CacheTTL     time.Duration
	Endpoints    string
	RegistryPath string
	ConfigPath   string // path of the config.json that was loaded (empty if none found)
	EnvPath      string // path of the .env that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	NoCache bool
	Refresh bool
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from all sources.
// flagURL and flagToken are the values of --url and --token (empty if not set).
func Load(flagURL, flagToken string) (*Config, error) {
	cfg := &Config{
		BaseURL:     DefaultBaseURL,
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Rate:        DefaultRate,
		Debounce:    DefaultDebounce,
		CacheTTL:    DefaultCacheTTL,
		Endpoints:   DefaultEndpoints,
	}

	// Layer 1: config.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	}

	// Layer 2: .env, then the real environment on top of it
	dotenv, envPath := loadDotEnv()
	cfg.EnvPath = envPath
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}
	if v := lookup(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := lookup(EnvToken); v != "" {
		cfg.AccessToken = v
	}
	if v := lookup(EnvDBPath); v != "" {
		cfg.DBPath = v
	}

	// Layer 3: CLI flags (highest priority)
	if flagURL != "" {
		cfg.BaseURL = flagURL
	}
	if flagToken != "" {
		cfg.AccessToken = flagToken
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".timefilter", "timefilter.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if required fields are missing.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New(
			"Superset URL not set.\n\n" +
				"Set it one of these ways:\n" +
				"  1. CLI flag:        timefilter --url http://superset:8088 ...\n" +
				"  2. Environment:     export SUPERSET_URL=http://superset:8088\n" +
				"  3. config.json:     {\"base_url\": \"http://superset:8088\"}",
		)
	}
	return nil
}

// RedactedToken returns the access token with most characters replaced by
// asterisks. Safe for logging and display.
func (c *Config) RedactedToken() string {
	if len(c.AccessToken) <= 4 {
		return "****"
	}
	return c.AccessToken[:2] + "****" + c.AccessToken[len(c.AccessToken)-2:]
}

// loadFile attempts to read config.json from the current working directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// ReadFile parses the config file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config.json not found at %s", path)
		}
		return nil, fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, nil
}

// loadDotEnv reads .env from the current working directory without touching
// the process environment.
func loadDotEnv() (map[string]string, string) {
	path, err := filepath.Abs(DefaultEnvFile)
	if err != nil {
		return nil, ""
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		return nil, ""
	}
	return vals, path
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.AccessToken != "" {
		cfg.AccessToken = f.AccessToken
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.Debounce != "" {
		if d, err := time.ParseDuration(f.Debounce); err == nil && d >= 0 {
			cfg.Debounce = d
		}
	}
	if f.CacheTTL != "" {
		if d, err := time.ParseDuration(f.CacheTTL); err == nil && d >= 0 {
			cfg.CacheTTL = d
		}
	}
	if f.Endpoints != "" {
		cfg.Endpoints = f.Endpoints
	}
	if f.RegistryPath != "" {
		cfg.RegistryPath = f.RegistryPath
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `timefilter config init`.
func Template() File {
	return File{
		BaseURL:       DefaultBaseURL,
		AccessToken:   "",
		DefaultFormat: DefaultFormat,
		Timeout:       "30s",
		Concurrency:   DefaultConcurrency,
		Rate:          DefaultRate,
		Debounce:      DefaultDebounce.String(),
		CacheTTL:      DefaultCacheTTL.String(),
		Endpoints:     DefaultEndpoints,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

// Keys lists the config.json keys accepted by Set.
var Keys = []string{
	"base_url", "access_token", "default_format", "timeout", "concurrency",
	"rate", "db_path", "debounce", "cache_ttl", "endpoints", "registry_path",
}

// Set assigns one config.json key from its string form.
func (f *File) Set(key, val string) error {
	switch key {
	case "base_url", "url":
		f.BaseURL = val
	case "access_token", "token":
		f.AccessToken = val
	case "default_format", "format":
		f.DefaultFormat = val
	case "timeout":
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("timeout must be a duration (e.g. 30s)")
		}
		f.Timeout = val
	case "concurrency":
		var n int
		if _, err := fmt.Sscanf(val, "%d", &n); err != nil || n < 1 {
			return fmt.Errorf("concurrency must be a positive integer")
		}
		f.Concurrency = n
	case "rate":
		var r float64
		if _, err := fmt.Sscanf(val, "%f", &r); err != nil || r <= 0 {
			return fmt.Errorf("rate must be a positive number")
		}
		f.Rate = r
	case "db_path":
		f.DBPath = val
	case "debounce":
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("debounce must be a duration (e.g. 500ms)")
		}
		f.Debounce = val
	case "cache_ttl":
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("cache_ttl must be a duration (e.g. 10m)")
		}
		f.CacheTTL = val
	case "endpoints":
		f.Endpoints = val
	case "registry_path":
		f.RegistryPath = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, strings.Join(Keys, ", "))
	}
	return nil
}

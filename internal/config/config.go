// Package config loads runtime configuration from an optional TOML file and
// the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/pelletier/go-toml/v2"
)

// Error reports required settings that are missing. It is fatal: nothing is
// fetched until configuration is complete.
type Error struct {
	Missing []string
}

func (e *Error) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

type Config struct {
	Adzuna  AdzunaConfig  `toml:"adzuna"`
	Search  SearchConfig  `toml:"search"`
	Server  ServerConfig  `toml:"server"`
	Output  OutputConfig  `toml:"output"`
	Logging LoggingConfig `toml:"logging"`
	Geocode GeocodeConfig `toml:"geocode"`
}

type AdzunaConfig struct {
	APIID     string `toml:"api_id"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	UserAgent string `toml:"user_agent"`
	Cooldown  string `toml:"cooldown"`
}

type SearchConfig struct {
	What     string `toml:"what"`
	Where    string `toml:"where"`
	Distance int    `toml:"distance"`
	Category string `toml:"category"`
	Schedule string `toml:"schedule"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type OutputConfig struct {
	Dir string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

type GeocodeConfig struct {
	URL      string `toml:"url"`
	RedisURL string `toml:"redis_url"`
}

func defaults() Config {
	return Config{
		Adzuna:  AdzunaConfig{Cooldown: "60s"},
		Search:  SearchConfig{What: "data", Where: "Lille", Distance: 10, Category: "it-jobs", Schedule: "@daily"},
		Server:  ServerConfig{Port: "8080"},
		Output:  OutputConfig{Dir: "."},
		Logging: LoggingConfig{Level: "info", Format: "text", File: "app.log"},
		Geocode: GeocodeConfig{URL: "https://nominatim.openstreetmap.org/search"},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result. Missing required values yield *Error.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path from command line
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	env := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	env("ADZUNA_API_ID", &cfg.Adzuna.APIID)
	env("ADZUNA_API_KEY", &cfg.Adzuna.APIKey)
	env("ADZUNA_BASE_URL", &cfg.Adzuna.BaseURL)
	env("USER_AGENT", &cfg.Adzuna.UserAgent)
	env("COOLDOWN", &cfg.Adzuna.Cooldown)
	env("SEARCH_WHAT", &cfg.Search.What)
	env("SEARCH_WHERE", &cfg.Search.Where)
	env("SEARCH_CATEGORY", &cfg.Search.Category)
	env("COLLECT_SCHEDULE", &cfg.Search.Schedule)
	env("PORT", &cfg.Server.Port)
	env("OUTPUT_DIR", &cfg.Output.Dir)
	env("LOG_LEVEL", &cfg.Logging.Level)
	env("LOG_FORMAT", &cfg.Logging.Format)
	env("LOG_FILE", &cfg.Logging.File)
	env("GEOCODE_URL", &cfg.Geocode.URL)
	env("GEOCODE_REDIS_URL", &cfg.Geocode.RedisURL)

	if v := getenv("SEARCH_DISTANCE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("SEARCH_DISTANCE must be a non-negative integer, got %q", v)
		}
		cfg.Search.Distance = n
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	var err error
	if cfg.Adzuna.BaseURL, err = normalizeURL(cfg.Adzuna.BaseURL); err != nil {
		return Config{}, fmt.Errorf("ADZUNA_BASE_URL: %w", err)
	}
	if cfg.Geocode.URL, err = normalizeURL(cfg.Geocode.URL); err != nil {
		return Config{}, fmt.Errorf("GEOCODE_URL: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	required := []struct {
		key, val string
	}{
		{"ADZUNA_API_ID", c.Adzuna.APIID},
		{"ADZUNA_API_KEY", c.Adzuna.APIKey},
		{"ADZUNA_BASE_URL", c.Adzuna.BaseURL},
		{"USER_AGENT", c.Adzuna.UserAgent},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return &Error{Missing: missing}
	}

	if _, err := time.ParseDuration(c.Adzuna.Cooldown); err != nil {
		return fmt.Errorf("invalid cooldown %q: %w", c.Adzuna.Cooldown, err)
	}
	if c.Search.Distance < 0 {
		return errors.New("search distance cannot be negative")
	}
	return nil
}

// CooldownDuration returns the pause between rate-limit windows.
func (c Config) CooldownDuration() time.Duration {
	d, err := time.ParseDuration(c.Adzuna.Cooldown)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

func normalizeURL(u string) (string, error) {
	flags := purell.FlagLowercaseScheme |
		purell.FlagLowercaseHost |
		purell.FlagRemoveDefaultPort |
		purell.FlagRemoveDuplicateSlashes |
		purell.FlagRemoveTrailingSlash
	return purell.NormalizeURLString(u, flags)
}

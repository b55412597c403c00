package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

var requiredEnv = map[string]string{
	"ADZUNA_API_ID":   "id",
	"ADZUNA_API_KEY":  "key",
	"ADZUNA_BASE_URL": "HTTPS://API.Adzuna.com/v1/api/jobs/fr/",
	"USER_AGENT":      "adzuna-ads/1.0",
}

func TestLoad_FromEnv(t *testing.T) {
	cfg, err := load("", envMap(requiredEnv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Adzuna.BaseURL != "https://api.adzuna.com/v1/api/jobs/fr" {
		t.Errorf("base URL not normalized: %q", cfg.Adzuna.BaseURL)
	}
	if cfg.Search.Where != "Lille" || cfg.Search.Distance != 10 || cfg.Search.Category != "it-jobs" {
		t.Errorf("unexpected search defaults %+v", cfg.Search)
	}
	if cfg.CooldownDuration() != time.Minute {
		t.Errorf("cooldown = %v", cfg.CooldownDuration())
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	env := map[string]string{"ADZUNA_API_ID": "id", "USER_AGENT": "ua"}

	_, err := load("", envMap(env))
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	want := []string{"ADZUNA_API_KEY", "ADZUNA_BASE_URL"}
	if len(ce.Missing) != len(want) {
		t.Fatalf("missing = %v, want %v", ce.Missing, want)
	}
	for i := range want {
		if ce.Missing[i] != want[i] {
			t.Errorf("missing[%d] = %s, want %s", i, ce.Missing[i], want[i])
		}
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[adzuna]
api_id = "file-id"
api_key = "file-key"
base_url = "https://api.adzuna.com/v1/api/jobs/gb"
user_agent = "file-ua"
cooldown = "5s"

[search]
what = "golang"
where = "London"
distance = 25

[logging]
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(path, envMap(map[string]string{"ADZUNA_API_KEY": "env-key", "SEARCH_DISTANCE": "40"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Adzuna.APIID != "file-id" {
		t.Errorf("api id = %q", cfg.Adzuna.APIID)
	}
	if cfg.Adzuna.APIKey != "env-key" {
		t.Errorf("env should override file, got %q", cfg.Adzuna.APIKey)
	}
	if cfg.Search.What != "golang" || cfg.Search.Where != "London" || cfg.Search.Distance != 40 {
		t.Errorf("unexpected search %+v", cfg.Search)
	}
	if cfg.Search.Category != "it-jobs" {
		t.Errorf("unset keys keep defaults, got category %q", cfg.Search.Category)
	}
	if cfg.CooldownDuration() != 5*time.Second {
		t.Errorf("cooldown = %v", cfg.CooldownDuration())
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("format = %q", cfg.Logging.Format)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"distance", map[string]string{"SEARCH_DISTANCE": "far"}},
		{"negative distance", map[string]string{"SEARCH_DISTANCE": "-3"}},
		{"cooldown", map[string]string{"COOLDOWN": "one minute"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := map[string]string{}
			for k, v := range requiredEnv {
				env[k] = v
			}
			for k, v := range tt.env {
				env[k] = v
			}
			if _, err := load("", envMap(env)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := load(filepath.Join(t.TempDir(), "nope.toml"), envMap(requiredEnv)); err == nil {
		t.Error("expected error for missing config file")
	}
}

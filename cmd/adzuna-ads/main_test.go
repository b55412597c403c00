package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/adzuna-ads/internal/config"
	"github.com/ahmethakanbesel/adzuna-ads/internal/snapshot"
)

func fakeAdzuna(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/api/jobs/fr/search/{page}", func(w http.ResponseWriter, r *http.Request) {
		results := []map[string]any{}
		if r.PathValue("page") == "1" {
			results = append(results,
				map[string]any{
					"id": "1", "title": "Data Engineer", "description": "CDI", "redirect_url": "https://example.com/1",
					"location": map[string]any{"display_name": "Lille"},
					"category": map[string]any{"label": "IT", "tag": r.URL.Query().Get("category")},
				},
				map[string]any{"id": "2", "title": "No link"},
			)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"count": 2, "results": results})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("ADZUNA_API_ID", "id")
	t.Setenv("ADZUNA_API_KEY", "key")
	t.Setenv("ADZUNA_BASE_URL", baseURL)
	t.Setenv("USER_AGENT", "adzuna-ads-test")
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "app.log"))
}

func TestCollectCommand(t *testing.T) {
	ts := fakeAdzuna(t)
	setEnv(t, ts.URL+"/v1/api/jobs/fr")
	out := t.TempDir()

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"collect", "--out", out, "--category", "data-jobs", "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stdout.String(), "1 ads, 1/1 pages ok, 1 invalid ads dropped")

	path, err := snapshot.Latest(out)
	require.NoError(t, err)
	records, err := snapshot.Read(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "data-jobs", records[0].Tag)
}

func TestCollectCommand_MissingConfig(t *testing.T) {
	for _, k := range []string{"ADZUNA_API_ID", "ADZUNA_API_KEY", "ADZUNA_BASE_URL", "USER_AGENT"} {
		t.Setenv(k, "")
	}
	out := t.TempDir()

	cmd := newRootCmd()
	cmd.SetArgs([]string{"collect", "--out", out})
	err := cmd.Execute()

	var cfgErr *config.Error
	require.True(t, errors.As(err, &cfgErr), "expected config error, got %v", err)
	assert.Equal(t, 2, exitCode(err))

	entries, _ := os.ReadDir(out)
	assert.Empty(t, entries, "nothing is written without a valid config")
}

func TestHelp_NeedsNoCredentials(t *testing.T) {
	for _, k := range []string{"ADZUNA_API_ID", "ADZUNA_API_KEY", "ADZUNA_BASE_URL", "USER_AGENT"} {
		t.Setenv(k, "")
	}
	for _, args := range [][]string{{"--help"}, {"help", "collect"}, {"completion", "bash"}} {
		var stdout bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&stdout)
		cmd.SetArgs(args)
		assert.NoError(t, cmd.Execute(), "args %v", args)
		assert.NotEmpty(t, stdout.String(), "args %v", args)
	}
}

func TestCollectCommand_CountFailureClosesLog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/api/jobs/fr/search/{page}", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	setEnv(t, ts.URL+"/v1/api/jobs/fr")

	a := &app{}
	cmd := newCollectCmd(a)
	cmd.SetArgs([]string{"--out", t.TempDir()})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	assert.Nil(t, a.closeLog, "log file must be closed after a failed run")

	logged, err := os.ReadFile(os.Getenv("LOG_FILE"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "collection started")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("count ads: boom")))
	assert.Equal(t, 2, exitCode(&config.Error{Missing: []string{"USER_AGENT"}}))
}

// Package snapshot writes and reads dated JSON snapshots of collected ads.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ahmethakanbesel/adzuna-ads/internal/ad"
)

const (
	filePrefix = "adzuna_ads_"
	fileSuffix = ".json"
	dateFormat = "2006-01-02"
)

// ErrNotFound is returned by Latest when the directory holds no snapshot.
var ErrNotFound = errors.New("no snapshot found")

// Snapshot is the ordered result of one collection run.
type Snapshot struct {
	Date    time.Time
	Records []ad.Record
}

// FileName returns the artifact name for a collection date.
func FileName(date time.Time) string {
	return filePrefix + date.Format(dateFormat) + fileSuffix
}

// Writer persists snapshots into a directory.
type Writer struct {
	dir string
}

// NewWriter returns a Writer for dir. An empty dir means the working directory.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir}
}

// Write serializes s to adzuna_ads_<date>.json, replacing a file written
// earlier the same day. The file is written to a temporary name first and
// renamed into place, so readers never see a partial snapshot.
func (w *Writer) Write(s Snapshot) (string, error) {
	records := s.Records
	if records == nil {
		records = []ad.Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(w.dir, FileName(s.Date))
	tmp, err := os.CreateTemp(w.dir, filePrefix+"*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename snapshot: %w", err)
	}

	slog.Info("snapshot written", "path", path, "records", len(records))
	return path, nil
}

// Read loads the records of a snapshot file in their stored order.
func Read(path string) ([]ad.Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config or Latest
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var records []ad.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return records, nil
}

// Latest returns the path of the most recent snapshot in dir, judged by the
// date in the file name.
func Latest(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("list snapshots: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := DateOf(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", ErrNotFound
	}
	// ISO dates sort lexically.
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// DateOf extracts the collection date from a snapshot file name.
func DateOf(name string) (time.Time, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		return time.Time{}, false
	}
	d, err := time.Parse(dateFormat, strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

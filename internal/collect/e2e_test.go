package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmethakanbesel/adzuna-ads/internal/adzuna"
	"github.com/ahmethakanbesel/adzuna-ads/internal/snapshot"
)

// newAdzunaServer fakes the search endpoint for total ads, answering 503 for
// the pages in fail.
func newAdzunaServer(t *testing.T, total int, fail map[int]bool, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/api/jobs/fr/search/{page}", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		page, err := strconv.Atoi(r.PathValue("page"))
		if err != nil {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("app_key") != "k" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if fail[page] {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		var results []map[string]any
		for i := (page - 1) * adzuna.PageSize; i < min(page*adzuna.PageSize, total); i++ {
			results = append(results, map[string]any{
				"id":           i, // numeric ids, as the API sometimes sends them
				"title":        fmt.Sprintf("Développeur %d", i),
				"description":  "Poste à pourvoir à Lille",
				"redirect_url": fmt.Sprintf("https://www.adzuna.fr/land/ad/%d", i),
				"location":     map[string]any{"display_name": "Lille, Nord", "area": []string{"France", "Nord"}},
				"category":     map[string]any{"label": "Emplois Informatique", "tag": "it-jobs"},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"count": total, "results": results})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestE2E_CollectAndWriteSnapshot(t *testing.T) {
	var hits atomic.Int64
	ts := newAdzunaServer(t, 130, map[int]bool{2: true}, &hits)

	client := adzuna.New(
		adzuna.WithHTTPClient(ts.Client()),
		adzuna.WithBaseURL(ts.URL+"/v1/api/jobs/fr"),
		adzuna.WithCredentials("id", "k"),
		adzuna.WithUserAgent("test"),
	)
	date := time.Date(2024, 5, 17, 8, 0, 0, 0, time.UTC)
	c := New(client, WithSleeper(noSleep), WithClock(func() time.Time { return date }))

	res, err := c.Collect(context.Background(), adzuna.Query{What: "data", Where: "Lille", Distance: 10, Category: "it-jobs"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	// 1 count request + 3 page requests.
	if hits.Load() != 4 {
		t.Errorf("expected 4 requests, got %d", hits.Load())
	}
	if res.Pages != 3 || res.Succeeded != 2 || res.Failed != 1 {
		t.Errorf("unexpected summary %+v", res)
	}
	// Page 2 (ads 50..99) failed.
	if len(res.Snapshot.Records) != 80 {
		t.Fatalf("expected 80 records, got %d", len(res.Snapshot.Records))
	}
	if res.Snapshot.Records[0].ID != "0" || res.Snapshot.Records[50].ID != "100" {
		t.Errorf("unexpected order: %s, %s", res.Snapshot.Records[0].ID, res.Snapshot.Records[50].ID)
	}

	path, err := snapshot.NewWriter(t.TempDir()).Write(res.Snapshot)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasSuffix(path, "adzuna_ads_2024-05-17.json") {
		t.Errorf("unexpected path %s", path)
	}

	got, err := snapshot.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 80 || got[79].ID != "129" || got[0].Title != "Développeur 0" {
		t.Errorf("snapshot does not match collected records")
	}
}

func TestE2E_CountUnauthorized(t *testing.T) {
	var hits atomic.Int64
	ts := newAdzunaServer(t, 10, nil, &hits)

	client := adzuna.New(
		adzuna.WithHTTPClient(ts.Client()),
		adzuna.WithBaseURL(ts.URL+"/v1/api/jobs/fr"),
		adzuna.WithCredentials("id", "wrong"),
	)

	_, err := New(client, WithSleeper(noSleep)).Collect(context.Background(), adzuna.Query{Where: "Lille"})
	if err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != 1 {
		t.Errorf("run must stop after the failed count request, got %d requests", hits.Load())
	}
}

// nonFiniteFetcher returns one valid ad and one whose numbers cannot be
// encoded to JSON.
type nonFiniteFetcher struct{}

func (nonFiniteFetcher) Count(context.Context, adzuna.Query) (int, error) { return 2, nil }

func (nonFiniteFetcher) Results(context.Context, adzuna.Query, int) ([]map[string]any, error) {
	bad := rawAd("bad")
	bad["salary_min"] = "NaN"
	bad["latitude"] = "inf"
	return []map[string]any{rawAd("good"), bad}, nil
}

func TestE2E_NonFiniteAdDoesNotLoseSnapshot(t *testing.T) {
	res, err := New(nonFiniteFetcher{}, WithSleeper(noSleep)).Collect(context.Background(), adzuna.Query{Where: "Lille"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if res.Dropped != 1 || len(res.Snapshot.Records) != 1 {
		t.Fatalf("dropped = %d, records = %d", res.Dropped, len(res.Snapshot.Records))
	}

	path, err := snapshot.NewWriter(t.TempDir()).Write(res.Snapshot)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := snapshot.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "good" {
		t.Errorf("unexpected snapshot %+v", got)
	}
}

// Package collect drives a full collection run: it asks the search API for
// the total, walks every page in order under the per-minute call budget and
// accumulates the ads that pass validation.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahmethakanbesel/adzuna-ads/internal/ad"
	"github.com/ahmethakanbesel/adzuna-ads/internal/adzuna"
	"github.com/ahmethakanbesel/adzuna-ads/internal/logger"
	"github.com/ahmethakanbesel/adzuna-ads/internal/snapshot"
)

const (
	// PageSize is the page size PageCount divides by.
	PageSize = adzuna.PageSize
	// CooldownEvery is the number of pages fetched per rate-limit window.
	CooldownEvery = 25
	// DefaultCooldown is the pause between two rate-limit windows.
	DefaultCooldown = 60 * time.Second
)

// Fetcher is the part of the search client a run needs.
type Fetcher interface {
	Count(ctx context.Context, q adzuna.Query) (int, error)
	Results(ctx context.Context, q adzuna.Query, page int) ([]map[string]any, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// PageCount returns how many pages a run requests for total results. It is
// total/50 + 1, so an exact multiple of 50 requests one extra, empty page.
func PageCount(total int) int {
	return total/PageSize + 1
}

// NeedsCooldown reports whether the run pauses before fetching page.
// This happens before pages 26, 51, 76, ... and never before page 1.
func NeedsCooldown(page int) bool {
	return page > 1 && (page-1)%CooldownEvery == 0
}

// Result summarises one run.
type Result struct {
	RunID       string
	Query       adzuna.Query
	Total       int
	Pages       int
	Succeeded   int
	Failed      int
	FailedPages []int
	Dropped     int
	Elapsed     time.Duration
	Snapshot    snapshot.Snapshot
}

// Collector runs collections one page at a time.
type Collector struct {
	fetcher  Fetcher
	cooldown time.Duration
	sleep    Sleeper
	now      func() time.Time
}

// New creates a Collector with the given options applied.
func New(f Fetcher, opts ...Option) *Collector {
	c := &Collector{
		fetcher:  f,
		cooldown: DefaultCooldown,
		sleep:    sleep,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Option configures a Collector.
type Option func(*Collector)

// WithCooldown overrides the pause between rate-limit windows.
func WithCooldown(d time.Duration) Option {
	return func(c *Collector) { c.cooldown = d }
}

// WithSleeper replaces the function used to pause.
func WithSleeper(s Sleeper) Option {
	return func(c *Collector) { c.sleep = s }
}

// WithClock sets the clock used to date the snapshot.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// Collect runs one collection for q. Only a failure to get the total count
// is returned as an error; failed pages and invalid ads are counted in the
// Result. A cancelled ctx aborts the run without a snapshot.
func (c *Collector) Collect(ctx context.Context, q adzuna.Query) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	runID := uuid.NewString()
	log := slog.With("run", runID)
	timer := logger.StartTimer(log, "collect")

	log.Warn("collection started", "what", q.What, "where", q.Where, "distance", q.Distance, "category", q.Category)

	total, err := c.fetcher.Count(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count ads: %w", err)
	}
	pages := PageCount(total)
	log.Warn("collection planned", "ads", total, "pages", pages)

	res := &Result{
		RunID: runID,
		Query: q,
		Total: total,
		Pages: pages,
	}
	var records []ad.Record

	for page := 1; page <= pages; page++ {
		if NeedsCooldown(page) {
			log.Info("waiting for rate-limit window", "page", page, "cooldown", c.cooldown.String())
			if err := c.sleep(ctx, c.cooldown); err != nil {
				return nil, fmt.Errorf("cooldown before page %d: %w", page, err)
			}
		}

		raws, err := c.fetcher.Results(ctx, q, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("page %d: %w", page, ctx.Err())
			}
			log.Error("page failed", "page", page, "error", err)
			res.Failed++
			res.FailedPages = append(res.FailedPages, page)
			continue
		}

		for _, raw := range raws {
			r, err := ad.Parse(raw)
			if err != nil {
				log.Warn("ad dropped", "page", page, "error", err)
				res.Dropped++
				continue
			}
			records = append(records, r)
		}
		log.Info("page processed", "page", page, "ads", len(raws))
	}

	res.Succeeded = res.Pages - res.Failed
	res.Snapshot = snapshot.Snapshot{Date: c.now(), Records: records}
	res.Elapsed = timer.Stop()

	log.Warn("collection finished",
		"pagesSucceeded", res.Succeeded,
		"pagesFailed", res.Failed,
		"ads", len(records),
		"adsDropped", res.Dropped,
	)
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

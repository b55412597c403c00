package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/adzuna-ads/internal/adzuna"
	"github.com/ahmethakanbesel/adzuna-ads/internal/collect"
	"github.com/ahmethakanbesel/adzuna-ads/internal/config"
	"github.com/ahmethakanbesel/adzuna-ads/internal/geocode"
	"github.com/ahmethakanbesel/adzuna-ads/internal/logger"
)

const geocodeTTL = 30 * 24 * time.Hour

// app holds what every subcommand needs once the config is loaded.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg      config.Config
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "adzuna-ads",
		Short:         "Collect Adzuna job ads into daily snapshots and browse them on a map",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a TOML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text or json)")

	root.AddCommand(newCollectCmd(a), newServeCmd(a))
	return root
}

// load reads the config and installs the logger. Subcommands call it from
// RunE so help and completion work without credentials.
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	closeLog, err := logger.Setup(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.closeLog = closeLog
	return nil
}

// close releases the log file opened by load.
func (a *app) close() {
	if a.closeLog == nil {
		return
	}
	if err := a.closeLog(); err != nil {
		slog.Warn("close log file", "error", err)
	}
	a.closeLog = nil
}

func (a *app) adzunaClient() *adzuna.Client {
	return adzuna.New(
		adzuna.WithBaseURL(a.cfg.Adzuna.BaseURL),
		adzuna.WithCredentials(a.cfg.Adzuna.APIID, a.cfg.Adzuna.APIKey),
		adzuna.WithUserAgent(a.cfg.Adzuna.UserAgent),
	)
}

func (a *app) collector(client *adzuna.Client) *collect.Collector {
	return collect.New(client, collect.WithCooldown(a.cfg.CooldownDuration()))
}

// geocoder uses Redis as cache when configured and falls back to memory
// when Redis is unreachable.
func (a *app) geocoder(ctx context.Context) (*geocode.Client, func()) {
	opts := []geocode.Option{
		geocode.WithEndpoint(a.cfg.Geocode.URL),
		geocode.WithUserAgent(a.cfg.Adzuna.UserAgent),
	}
	cleanup := func() {}

	if a.cfg.Geocode.RedisURL != "" {
		rdb, err := geocode.NewRedisClient(ctx, a.cfg.Geocode.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, using in-memory geocode cache", "error", err)
		} else {
			opts = append(opts, geocode.WithCache(geocode.NewRedisCache(rdb, geocodeTTL)))
			cleanup = func() { _ = rdb.Close() }
		}
	}
	return geocode.New(opts...), cleanup
}

func (a *app) defaultQuery() adzuna.Query {
	return adzuna.Query{
		What:     a.cfg.Search.What,
		Where:    a.cfg.Search.Where,
		Distance: a.cfg.Search.Distance,
		Category: a.cfg.Search.Category,
	}
}

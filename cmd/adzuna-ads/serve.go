package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ahmethakanbesel/adzuna-ads/internal/schedule"
	"github.com/ahmethakanbesel/adzuna-ads/internal/server"
	"github.com/ahmethakanbesel/adzuna-ads/internal/snapshot"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port       string
		withCron   bool
		runAtStart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search page and API, optionally collecting on a schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, withCron, runAtStart)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "HTTP port (overrides PORT)")
	cmd.Flags().BoolVar(&withCron, "schedule", false, "also collect snapshots on the configured cron schedule")
	cmd.Flags().BoolVar(&runAtStart, "run-now", false, "with --schedule, start a collection immediately")
	return cmd
}

func (a *app) serve(ctx context.Context, withCron, runAtStart bool) error {
	client := a.adzunaClient()
	geo, closeGeo := a.geocoder(ctx)
	defer closeGeo()

	srv := server.New(ctx, a.cfg.Server.Port, server.Deps{
		Ads:         client,
		Geocoder:    geo,
		SnapshotDir: a.cfg.Output.Dir,
		Defaults:    a.defaultQuery(),
	})

	var sched *schedule.Scheduler
	if withCron {
		sched = schedule.New(a.collector(client), snapshot.NewWriter(a.cfg.Output.Dir), a.defaultQuery(), a.cfg.Search.Schedule)
		if err := sched.Start(ctx, runAtStart); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if sched != nil {
			sched.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	slog.Info("server started", "port", a.cfg.Server.Port, "schedule", withCron)
	err := g.Wait()
	slog.Info("server stopped")
	return err
}

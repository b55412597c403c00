package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/adzuna-ads/internal/collect"
	"github.com/ahmethakanbesel/adzuna-ads/internal/snapshot"
)

func newCollectCmd(a *app) *cobra.Command {
	var (
		what, where, category, out string
		distance                   int
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch every ad for the search once and write today's snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(); err != nil {
				return err
			}
			defer a.close()

			q := a.defaultQuery()
			flags := cmd.Flags()
			if flags.Changed("what") {
				q.What = what
			}
			if flags.Changed("where") {
				q.Where = where
			}
			if flags.Changed("distance") {
				q.Distance = distance
			}
			if flags.Changed("category") {
				q.Category = category
			}
			dir := a.cfg.Output.Dir
			if flags.Changed("out") {
				dir = out
			}

			res, err := a.collector(a.adzunaClient()).Collect(cmd.Context(), q)
			if err != nil {
				return err
			}
			path, err := snapshot.NewWriter(dir).Write(res.Snapshot)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&what, "what", "", "keywords to search for")
	cmd.Flags().StringVar(&where, "where", "", "location to search around")
	cmd.Flags().IntVar(&distance, "distance", 0, "search radius in kilometers")
	cmd.Flags().StringVar(&category, "category", "", "category tag, e.g. it-jobs")
	cmd.Flags().StringVar(&out, "out", "", "directory for the snapshot file")
	return cmd
}

func printSummary(w io.Writer, res *collect.Result, path string) {
	_, _ = fmt.Fprintf(w, "run %s: %d ads, %d/%d pages ok", res.RunID, len(res.Snapshot.Records), res.Succeeded, res.Pages)
	if res.Failed > 0 {
		_, _ = fmt.Fprintf(w, ", failed pages %v", res.FailedPages)
	}
	if res.Dropped > 0 {
		_, _ = fmt.Fprintf(w, ", %d invalid ads dropped", res.Dropped)
	}
	_, _ = fmt.Fprintf(w, " in %s\nsnapshot: %s\n", res.Elapsed.Round(time.Millisecond), path)
}

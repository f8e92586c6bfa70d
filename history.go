package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scan runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := store.Recent(limit)
			if err != nil {
				return failed(err)
			}
			if asJSON {
				return a.printJSON(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.stdout, "No runs recorded yet.")
				return nil
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tGRADE\tMEAN\tFILES\tCRIT\tWARN\tRESULT")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Grade, r.MeanScore,
					r.Files, r.Critical, r.Warning, passFail(r.Passed))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run with its per-file results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return usagef("invalid run id %q", args[0])
			}
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			run, err := store.Get(uint(id))
			if err != nil {
				return usageError(err)
			}
			if asJSON {
				return a.printJSON(run)
			}
			fmt.Fprintf(a.stdout, "Run %d  %s  %s\n", run.ID, run.CreatedAt.Local().Format(time.DateTime), run.Command)
			fmt.Fprintf(a.stdout, "Grade %s (mean %d, max %d), worst %s %s\n", run.Grade, run.MeanScore, run.MaxScore, run.WorstGrade, run.WorstFile)
			fmt.Fprintf(a.stdout, "%d critical, %d warning, %d info  %s\n\n", run.Critical, run.Warning, run.Info, passFail(run.Passed))
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, f := range run.Results {
				detail := f.Grade
				if f.Error != "" {
					detail = f.Status + ": " + f.Error
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", f.Path, f.Score, detail)
			}
			return tw.Flush()
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	var keep int
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep <= 0 {
				keep = a.cfg.History.Keep
			}
			if keep <= 0 {
				return usagef("--keep must be positive")
			}
			store, err := a.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Prune(keep)
			if err != nil {
				return failed(err)
			}
			fmt.Fprintf(a.stdout, "Removed %d runs\n", n)
			return nil
		},
	}
	prune.Flags().IntVar(&keep, "keep", 0, "runs to keep (default history.keep)")

	cmd.AddCommand(show, prune)
	return cmd
}

func (a *app) openHistory() (*history.Store, error) {
	if !a.cfg.History.Enabled {
		return nil, usagef("history is disabled (history.enabled: false)")
	}
	store, err := history.Open(history.Options{
		Path:     a.resolve(a.cfg.History.Path),
		LogLevel: a.cfg.History.LogLevel,
	})
	if err != nil {
		return nil, failed(err)
	}
	return store, nil
}

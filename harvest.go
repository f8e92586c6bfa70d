package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/harvest"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
)

type harvestOutput struct {
	GeneratedAtUtc string           `json:"generatedAtUtc"`
	Catalog        string           `json:"catalogVersion"`
	Total          int              `json:"total"`
	Failed         int              `json:"failed"`
	Interrupted    bool             `json:"interrupted,omitempty"`
	Results        []harvest.Result `json:"results"`
}

func newHarvestCmd(a *app) *cobra.Command {
	var (
		out      string
		noThumbs bool
	)
	cmd := &cobra.Command{
		Use:   "harvest <urls-file|->",
		Short: "Fetch and grade a list of live pages",
		Long: `Harvest reads one URL per line (blank lines and # comments are skipped),
fetches each page politely with harvest.delay between requests, grades it,
and downloads its og:image as a thumbnail. Results go to harvest.output_path.
A page that fails is recorded and the run continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := a.readURLList(args[0])
			if err != nil {
				return usageError(err)
			}
			if len(urls) == 0 {
				return usagef("no urls in %s", args[0])
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			thumbDir := ""
			if !noThumbs {
				thumbDir = a.output("thumbnails")
			}
			res, err := a.harvest(ctx, urls, thumbDir)
			if err != nil && !errors.Is(err, context.Canceled) {
				return failed(err)
			}
			path := a.resolve(firstNonEmpty(out, a.cfg.Harvest.OutputPath))
			if err := support.WriteJSONAtomic(path, res); err != nil {
				return failed(fmt.Errorf("cannot write %s: %w", path, err))
			}
			for _, r := range res.Results {
				if r.Analysis == nil {
					fmt.Fprintf(a.stdout, "  [!]    -  %s  %s\n", r.URL, r.Err)
					continue
				}
				fmt.Fprintf(a.stdout, "  %s  %3d  %s\n", gradeColor(r.Analysis.Grade).Sprintf("[%s]", r.Analysis.Grade), r.Analysis.Score, r.URL)
			}
			fmt.Fprintf(a.stdout, "%d/%d pages harvested, results in %s\n", res.Total-res.Failed, res.Total, path)
			a.audit(support.AuditEntry{
				Command: "harvest",
				Files:   res.Total,
				Errors:  res.Failed,
				Catalog: res.Catalog,
				Result:  passFail(res.Failed < res.Total && !res.Interrupted),
			})
			if res.Interrupted {
				a.warn("harvest interrupted after %d of %d urls", len(res.Results), len(urls))
				return failed(nil)
			}
			if res.Failed == res.Total {
				return failed(errors.New("every url failed"))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "results file (default harvest.output_path)")
	cmd.Flags().BoolVar(&noThumbs, "no-thumbnails", false, "skip thumbnail downloads")
	return cmd
}

func (a *app) readURLList(arg string) ([]string, error) {
	var r io.Reader
	if arg == "-" {
		r = a.stdin
	} else {
		f, err := os.Open(a.resolveArg(arg))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return harvest.ReadURLs(r)
}

// harvest returns the partial output together with ctx's error when
// interrupted.
func (a *app) harvest(ctx context.Context, urls []string, thumbDir string) (harvestOutput, error) {
	an := engine.NewAnalyzer(nil)
	h := harvest.New(a.cfg.Harvest, an, thumbDir)
	h.Logger = a.logger
	results, err := h.Run(ctx, urls)
	out := harvestOutput{
		GeneratedAtUtc: time.Now().UTC().Format(time.RFC3339),
		Catalog:        an.Catalog.Version(),
		Total:          len(urls),
		Interrupted:    err != nil,
		Results:        results,
	}
	if out.Results == nil {
		out.Results = []harvest.Result{}
	}
	for _, r := range results {
		if r.Err != "" {
			out.Failed++
		}
	}
	// urls never reached count as failed
	out.Failed += len(urls) - len(results)
	return out, err
}

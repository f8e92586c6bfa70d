package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/cache"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/history"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/kits"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
)

type doctorReport struct {
	GeneratedAtUtc string        `json:"generatedAtUtc"`
	Version        string        `json:"version"`
	Workspace      string        `json:"workspace"`
	ConfigPath     string        `json:"configPath,omitempty"`
	Catalog        doctorCatalog `json:"catalog"`
	Kits           []doctorKit   `json:"kits"`
	Output         doctorOutput  `json:"output"`
	History        doctorHistory `json:"history"`
	Cache          doctorCache   `json:"cache"`
	Status         string        `json:"status"`
	Reasons        []string      `json:"reasons,omitempty"`
}

type doctorCatalog struct {
	Version  string   `json:"version"`
	Signals  int      `json:"signals"`
	Problems []string `json:"problems,omitempty"`
}

type doctorKit struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Score    int      `json:"score"`
	Problems []string `json:"problems,omitempty"`
}

type doctorOutput struct {
	Dir      string `json:"dir"`
	Writable bool   `json:"writable"`
	Error    string `json:"error,omitempty"`
}

type doctorHistory struct {
	Enabled   bool   `json:"enabled"`
	Path      string `json:"path,omitempty"`
	Reachable bool   `json:"reachable"`
	Runs      int    `json:"recentRuns"`
	Error     string `json:"error,omitempty"`
}

type doctorCache struct {
	Backend   string `json:"backend"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

func newDoctorCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run prerequisite checks",
		Long: `Doctor checks catalog integrity, that every built-in kit validates clean,
that the output directory is writable, and that the history store and the
configured cache backend are reachable. It writes doctor.json and exits 1
when anything is degraded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep := a.buildDoctorReport(cmd.Context())
			path := a.output("doctor.json")
			if err := support.WriteJSONAtomic(path, rep); err != nil {
				// An unwritable output dir is already in the report.
				a.warn("cannot write doctor.json: %v", err)
			}
			if asJSON {
				if err := a.printJSON(rep); err != nil {
					return err
				}
			} else {
				a.printDoctor(rep)
			}
			a.audit(support.AuditEntry{Command: "doctor", Catalog: rep.Catalog.Version, Result: rep.Status})
			if rep.Status != "OK" {
				return failed(nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func (a *app) buildDoctorReport(ctx context.Context) doctorReport {
	if ctx == nil {
		ctx = context.Background()
	}
	rep := doctorReport{
		GeneratedAtUtc: time.Now().UTC().Format(time.RFC3339),
		Version:        Version,
		Workspace:      a.root(),
		ConfigPath:     a.cfgPath,
		Status:         "OK",
	}
	degrade := func(format string, args ...any) {
		rep.Status = "DEGRADED"
		rep.Reasons = append(rep.Reasons, fmt.Sprintf(format, args...))
	}

	cat := signals.Default()
	rep.Catalog = doctorCatalog{Version: cat.Version(), Signals: cat.Len()}
	for _, p := range cat.Check() {
		rep.Catalog.Problems = append(rep.Catalog.Problems, p.String())
	}
	if len(rep.Catalog.Problems) > 0 {
		degrade("catalog has %d problems", len(rep.Catalog.Problems))
	}

	an := engine.NewAnalyzer(cat)
	for _, k := range kits.All() {
		res := kits.Validate(k, an)
		rep.Kits = append(rep.Kits, doctorKit{Name: k.Name, Passed: res.Passed, Score: res.Score, Problems: res.Problems})
		if !res.Passed {
			degrade("built-in kit %s does not validate (score %d)", k.Name, res.Score)
		}
	}

	rep.Output.Dir = a.outputDir()
	if err := probeWritable(rep.Output.Dir); err != nil {
		rep.Output.Error = err.Error()
		degrade("output directory not writable")
	} else {
		rep.Output.Writable = true
	}

	rep.History.Enabled = a.cfg.History.Enabled
	if a.cfg.History.Enabled {
		rep.History.Path = a.resolve(a.cfg.History.Path)
		store, err := history.Open(history.Options{Path: rep.History.Path, LogLevel: a.cfg.History.LogLevel})
		if err == nil {
			var runs []history.Run
			runs, err = store.Recent(5)
			rep.History.Runs = len(runs)
			_ = store.Close()
		}
		if err != nil {
			rep.History.Error = err.Error()
			degrade("history store unreachable")
		} else {
			rep.History.Reachable = true
		}
	}

	rep.Cache.Backend = a.cfg.Server.Cache.Backend
	backend, err := cache.New(a.cfg.Server.Cache)
	if err == nil {
		_, _, err = backend.Get(ctx, cache.Key("doctor", []byte(Version)))
		_ = backend.Close()
	}
	if err != nil {
		rep.Cache.Error = err.Error()
		degrade("cache backend %s unreachable", rep.Cache.Backend)
	} else {
		rep.Cache.Reachable = true
	}
	return rep
}

func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, fmt.Sprintf(".probe.%d", os.Getpid()))
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

func (a *app) printDoctor(rep doctorReport) {
	line := func(ok bool, format string, args ...any) {
		tag := colorGreen.Sprint("[OK]  ")
		if !ok {
			tag = colorRed.Sprint("[FAIL]")
		}
		fmt.Fprintf(a.stdout, "%s %s\n", tag, fmt.Sprintf(format, args...))
	}
	line(len(rep.Catalog.Problems) == 0, "catalog %s: %d signals", rep.Catalog.Version, rep.Catalog.Signals)
	for _, p := range rep.Catalog.Problems {
		fmt.Fprintf(a.stdout, "         %s\n", p)
	}
	for _, k := range rep.Kits {
		line(k.Passed, "kit %s: score %d", k.Name, k.Score)
	}
	line(rep.Output.Writable, "output dir %s", rep.Output.Dir)
	if rep.History.Enabled {
		line(rep.History.Reachable, "history %s (%d recent runs)", rep.History.Path, rep.History.Runs)
	} else {
		fmt.Fprintln(a.stdout, "[INFO] history disabled")
	}
	line(rep.Cache.Reachable, "cache backend %s", rep.Cache.Backend)
	fmt.Fprintf(a.stdout, "\nDoctor status: %s\n", rep.Status)
}

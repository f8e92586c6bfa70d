package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/overlay"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

type checkOptions struct {
	snapshot  string
	format    string
	severity  string
	top       int
	threshold string
}

func newCheckCmd(a *app) *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Quick check of one file or a bookmarklet snapshot",
		Long: `Check grades a single document and lists its top fixes. Use --snapshot to
grade a DOM snapshot captured by the bookmarklet, and --format panel to get
the same panel the bookmarklet shows.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.snapshot, "snapshot", "", "bookmarklet DOM snapshot (JSON)")
	f.StringVarP(&opts.format, "format", "f", "text", "output format: text, json, panel")
	f.StringVar(&opts.severity, "severity", "", "minimum severity: info, warning, critical")
	f.IntVar(&opts.top, "top", 3, "fixes to list")
	f.StringVar(&opts.threshold, "threshold", "", "exit 1 when the grade is worse than this")
	return cmd
}

func (a *app) runCheck(args []string, opts checkOptions) error {
	if (len(args) == 0) == (opts.snapshot == "") {
		return usagef("check needs exactly one of <file> or --snapshot")
	}
	var threshold engine.Grade
	if opts.threshold != "" {
		g, err := engine.ParseGrade(opts.threshold)
		if err != nil {
			return usageError(err)
		}
		threshold = g
	}

	an := engine.NewAnalyzer(nil)
	if opts.severity != "" {
		min, err := signals.ParseSeverity(opts.severity)
		if err != nil {
			return usageError(err)
		}
		an.MinSeverity = min
	}

	doc, err := a.loadDocument(args, opts.snapshot)
	if err != nil {
		return err
	}
	res := an.QuickCheck(doc, opts.top)

	switch strings.ToLower(opts.format) {
	case "", "text":
		writeQuickCheck(a.stdout, res)
	case "json":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return failed(err)
		}
		fmt.Fprintln(a.stdout, string(data))
	case "panel":
		html, err := overlay.RenderPanel(res, an.Catalog.Version())
		if err != nil {
			return failed(err)
		}
		fmt.Fprintln(a.stdout, html)
	default:
		return usagef("unknown format %q (valid: text, json, panel)", opts.format)
	}

	a.audit(support.AuditEntry{
		Command:  "check",
		Files:    1,
		Score:    res.Score,
		Grade:    string(res.Grade),
		Critical: res.Summary.Critical,
		Warning:  res.Summary.Warning,
		Info:     res.Summary.Info,
		Catalog:  an.Catalog.Version(),
		Detail:   res.Source,
	})

	if threshold != "" && res.Grade.Worse(threshold) {
		return failed(nil)
	}
	return nil
}

// loadDocument reads the file argument or the snapshot. Read failures are
// input errors.
func (a *app) loadDocument(args []string, snapshot string) (view.DocumentView, error) {
	if snapshot != "" {
		data, err := support.ReadFileNoBOM(a.resolveArg(snapshot))
		if err != nil {
			return nil, usageError(err)
		}
		snap, err := view.ParseSnapshot(data)
		if err != nil {
			return nil, usageError(err)
		}
		return view.NewDOM(snap), nil
	}
	if args[0] == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, usageError(err)
		}
		return view.ParseString("stdin.html", view.Decode(data, "")), nil
	}
	path := a.resolveArg(args[0])
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, usageError(err)
	}
	return view.ParseString(args[0], view.Decode(data, "")), nil
}

// resolveArg anchors a command-line path at the workspace when it does not
// exist relative to the working directory.
func (a *app) resolveArg(p string) string {
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return a.resolve(p)
}

func writeQuickCheck(w io.Writer, res engine.QuickCheckResult) {
	fmt.Fprintf(w, "%s  %s\n", gradeColor(res.Grade).Sprintf("[%s]", res.Grade), res.Source)
	fmt.Fprintln(w, res.Verdict)
	for _, d := range res.Detections {
		fmt.Fprintf(w, "  %s %s x%d\n", severityColor(d.Severity).Sprintf("%-8s", d.Severity), d.Name, d.Count)
	}
	if len(res.Fixes) == 0 {
		return
	}
	fmt.Fprintln(w, "\nFix first:")
	for i, f := range res.Fixes {
		fmt.Fprintf(w, "  %d. %s", i+1, f.Name)
		if f.Effort != "" {
			fmt.Fprintf(w, " (%s effort)", f.Effort)
		}
		fmt.Fprintln(w)
		if f.Fix != "" {
			fmt.Fprintf(w, "     %s\n", f.Fix)
		}
		if f.Replacement != "" {
			fmt.Fprintf(w, "     try: %s\n", colorCyan.Sprint(f.Replacement))
		}
	}
}

func gradeColor(g engine.Grade) *color.Color {
	switch g {
	case engine.GradeA, engine.GradeB:
		return colorGreen
	case engine.GradeC:
		return colorYellow
	}
	return colorRed
}

func severityColor(s signals.Severity) *color.Color {
	switch s {
	case signals.Critical:
		return colorRed
	case signals.Warning:
		return colorYellow
	}
	return colorCyan
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"syscall"

	"github.com/h2non/filetype"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/gate"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/history"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/report"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

type scanOptions struct {
	globs       []string
	severity    string
	format      string
	threshold   string
	failWhen    string
	concurrency int
	out         string
	noHistory   bool
	top         int
	verbose     bool
}

func newScanCmd(a *app) *cobra.Command {
	var opts scanOptions
	cmd := &cobra.Command{
		Use:   "scan [paths|globs...]",
		Short: "Grade files and gate the result",
		Long: `Scan expands directories and globs (** is supported), grades every file,
writes the enabled reports under the output directory and records the run.

Exit codes: 0 passed, 1 failed the gate, 2 usage or input error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd.Context(), args, opts)
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&opts.globs, "glob", nil, "additional glob, relative to the workspace (repeatable)")
	f.StringVar(&opts.severity, "severity", "", "minimum severity: info, warning, critical")
	f.StringVarP(&opts.format, "format", "f", "text", "output format: text, json, sarif, junit, markdown, html")
	f.StringVar(&opts.threshold, "threshold", "", "fail when any file grades worse than this")
	f.StringVar(&opts.failWhen, "fail-when", "", "fail when this expression is true, e.g. 'critical > 0'")
	f.IntVar(&opts.concurrency, "concurrency", 0, "files analyzed in parallel (default from config)")
	f.StringVarP(&opts.out, "out", "o", "", "write the rendered output to this file instead of stdout")
	f.BoolVar(&opts.noHistory, "no-history", false, "do not record this run")
	f.IntVar(&opts.top, "top", -1, "fixes to list (default from config)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "list every detection")
	return cmd
}

// FileError is a file that could not be read or graded. It never aborts a
// batch; the file is reported with status error.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// scanOutcome is what one scan produced, for the caller to print or test.
type scanOutcome struct {
	Files       []engine.FileResult
	Aggregate   engine.Aggregate
	Policy      gate.Policy
	Verdict     gate.Verdict
	Report      report.Report
	Written     []string
	Interrupted bool
}

func (a *app) runScan(ctx context.Context, args []string, opts scanOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return usageError(err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := a.scan(ctx, args, opts)
	if err != nil {
		return err
	}

	w := a.stdout
	var buf strings.Builder
	if opts.out != "" {
		w = &buf
	}
	top := opts.top
	if top < 0 {
		top = a.cfg.Scan.Top
	}
	if err := report.Render(w, format, out.Report, report.TextOptions{NoColor: a.noColor, Top: top, Verbose: opts.verbose}); err != nil {
		return failed(fmt.Errorf("render %s: %w", format, err))
	}
	if opts.out != "" {
		path := opts.out
		if !filepath.IsAbs(path) {
			path = filepath.Join(a.root(), path)
		}
		if err := support.WriteFileAtomic(path, []byte(buf.String())); err != nil {
			return failed(fmt.Errorf("write %s: %w", path, err))
		}
	}

	if out.Interrupted {
		a.warn("scan interrupted; %d files graded before the signal", out.Aggregate.Graded)
		return failed(nil)
	}
	if !out.Verdict.Pass {
		return failed(nil)
	}
	return nil
}

// scan runs the pipeline without printing: collect, analyze, aggregate,
// gate, write reports, record history.
func (a *app) scan(ctx context.Context, args []string, opts scanOptions) (*scanOutcome, error) {
	root := a.root()

	overrides, found, err := gate.LoadOverrides(root)
	if err != nil {
		return nil, usageError(err)
	}
	if found {
		a.logger.Debug("workspace overrides loaded", "file", gate.OverridesFile)
	}

	policy, err := a.gatePolicy(overrides, opts)
	if err != nil {
		return nil, usageError(err)
	}
	if policy.FailWhen != "" {
		if _, err := gate.Compile(policy.FailWhen); err != nil {
			return nil, usageError(err)
		}
	}

	an := engine.NewAnalyzer(nil)
	sev := firstNonEmpty(opts.severity, deref(overrides.Severity), a.cfg.Scan.Severity)
	if sev != "" {
		min, err := signals.ParseSeverity(sev)
		if err != nil {
			return nil, usageError(err)
		}
		an.MinSeverity = min
	}

	ignore := append(append([]string(nil), a.cfg.Scan.Ignore...), overrides.Ignore...)
	targets := append(append([]string(nil), args...), opts.globs...)
	paths, missing, err := collectFiles(root, targets, a.cfg.Scan.Extensions, ignore)
	if err != nil {
		return nil, usageError(err)
	}
	if len(paths) == 0 && len(missing) == 0 {
		return nil, usagef("no files to scan under %s", root)
	}

	concurrency := opts.concurrency
	if concurrency <= 0 {
		concurrency = a.cfg.Scan.Concurrency
	}
	files, interrupted := a.analyzeFiles(ctx, an, root, paths, concurrency)
	for _, m := range missing {
		fe := &FileError{Path: m, Err: fs.ErrNotExist}
		a.logger.Warn("file not graded", "error", fe)
		files = append(files, engine.FileResult{Path: m, Status: engine.StatusError, Error: "no such file"})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	top := opts.top
	if top < 0 {
		top = a.cfg.Scan.Top
	}
	agg := an.Aggregate(files, top)
	verdict, err := gate.Evaluate(policy, agg)
	if err != nil {
		return nil, usageError(err)
	}
	if interrupted {
		verdict.Pass = false
		verdict.Reasons = append(verdict.Reasons, "scan interrupted")
	}

	rep := report.New(Version, an.Catalog, policy, verdict, agg, files)
	written, err := report.WriteFiles(root, a.cfg.Reports, rep)
	if err != nil {
		a.warn("%v", err)
	}
	for _, p := range written {
		a.logger.Debug("report written", "path", p)
	}

	if !opts.noHistory && a.cfg.History.Enabled {
		a.recordHistory("scan", an.Catalog.Version(), verdict.Pass, agg, files)
	}
	a.audit(support.AuditEntry{
		Command:  "scan",
		Files:    agg.Files,
		Errors:   agg.Errors,
		Score:    agg.MeanScore,
		Grade:    string(agg.Grade),
		Critical: agg.Summary.Critical,
		Warning:  agg.Summary.Warning,
		Info:     agg.Summary.Info,
		Catalog:  an.Catalog.Version(),
		Result:   passFail(verdict.Pass),
		Detail:   verdict.Message,
	})

	return &scanOutcome{
		Files:       files,
		Aggregate:   agg,
		Policy:      policy,
		Verdict:     verdict,
		Report:      rep,
		Written:     written,
		Interrupted: interrupted,
	}, nil
}

// gatePolicy layers config, workspace overrides and flags, in that order.
func (a *app) gatePolicy(o gate.Overrides, opts scanOptions) (gate.Policy, error) {
	threshold, err := engine.ParseGrade(a.cfg.Gate.Threshold)
	if err != nil {
		return gate.Policy{}, fmt.Errorf("gate.threshold: %w", err)
	}
	p := gate.Policy{Threshold: threshold, MaxCritical: a.cfg.Gate.MaxCritical, FailWhen: a.cfg.Gate.FailWhen}
	if p, err = o.Apply(p); err != nil {
		return gate.Policy{}, fmt.Errorf("%s: %w", gate.OverridesFile, err)
	}
	if opts.threshold != "" {
		g, err := engine.ParseGrade(opts.threshold)
		if err != nil {
			return gate.Policy{}, fmt.Errorf("--threshold: %w", err)
		}
		p.Threshold = g
	}
	if opts.failWhen != "" {
		p.FailWhen = opts.failWhen
	}
	return p, nil
}

func (a *app) recordHistory(command, catalog string, passed bool, agg engine.Aggregate, files []engine.FileResult) {
	store, err := history.Open(history.Options{Path: a.resolve(a.cfg.History.Path), LogLevel: a.cfg.History.LogLevel})
	if err != nil {
		a.warn("history unavailable: %v", err)
		return
	}
	defer store.Close()
	id, err := store.Record(history.NewRun(command, catalog, passed, agg, files))
	if err != nil {
		a.warn("history record failed: %v", err)
		return
	}
	a.logger.Debug("run recorded", "id", id)
	if a.cfg.History.Keep > 0 {
		if n, err := store.Prune(a.cfg.History.Keep); err != nil {
			a.warn("history prune failed: %v", err)
		} else if n > 0 {
			a.logger.Debug("history pruned", "runs", n)
		}
	}
}

// analyzeFiles grades paths in parallel. On cancellation no new file is
// started; results already finished are returned with interrupted set.
func (a *app) analyzeFiles(ctx context.Context, an *engine.Analyzer, root string, paths []string, concurrency int) ([]engine.FileResult, bool) {
	results := make([]engine.FileResult, len(paths))
	done := make([]bool, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i, p := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = a.analyzeFile(an, root, p)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]engine.FileResult, 0, len(paths))
	for i, ok := range done {
		if ok {
			out = append(out, results[i])
		}
	}
	return out, ctx.Err() != nil
}

func (a *app) analyzeFile(an *engine.Analyzer, root, path string) engine.FileResult {
	rel := relPath(root, path)
	fr := engine.FileResult{Path: rel}

	data, skip, err := readSource(path, a.cfg.Scan.MaxFileBytes)
	if err != nil {
		a.logger.Warn("file not graded", "error", &FileError{Path: rel, Err: err})
		fr.Status, fr.Error = engine.StatusError, err.Error()
		return fr
	}
	if skip != "" {
		a.logger.Debug("file skipped", "path", rel, "reason", skip)
		fr.Status, fr.Error = engine.StatusSkipped, skip
		return fr
	}

	res := an.Analyze(view.ParseString(rel, view.Decode(data, "")))
	fr.Status, fr.Result = engine.StatusGraded, &res
	return fr
}

// readSource reads a candidate file. skip is set for files that are not
// graded on purpose: binaries and files over the size limit.
func readSource(path string, maxBytes int64) (data []byte, skip string, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Sprintf("larger than %d bytes", maxBytes), nil
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	head := data
	if len(head) > 262 {
		head = head[:262]
	}
	if kind, _ := filetype.Match(head); kind != filetype.Unknown {
		return nil, "binary (" + kind.MIME.Value + ")", nil
	}
	return data, "", nil
}

// collectFiles expands targets into a sorted, de-duplicated file list.
// Targets are files, directories or globs, relative to root. A plain path
// that does not exist is returned in missing. No targets means root.
func collectFiles(root string, targets, exts, ignore []string) (paths, missing []string, err error) {
	if len(targets) == 0 {
		targets = []string{"."}
	}
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	wanted := map[string]bool{}
	for _, e := range exts {
		wanted[strings.ToLower(e)] = true
	}

	for _, t := range targets {
		abs := t
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, t)
		}
		if hasMeta(t) {
			matched, err := expandGlob(root, filepath.ToSlash(t), ignore)
			if err != nil {
				return nil, nil, err
			}
			for _, p := range matched {
				add(p)
			}
			continue
		}
		info, err := os.Stat(abs)
		if errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, filepath.ToSlash(t))
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			add(abs)
			continue
		}
		err = walkSources(abs, ignore, func(p string) {
			if wanted[strings.ToLower(filepath.Ext(p))] {
				add(p)
			}
		})
		if err != nil {
			return nil, nil, err
		}
	}
	sort.Strings(paths)
	return paths, missing, nil
}

func walkSources(dir string, ignore []string, visit func(string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped; the root itself must be readable.
			if path == dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != dir && ignored(d.Name(), ignore) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && !ignored(d.Name(), ignore) {
			visit(path)
		}
		return nil
	})
}

func ignored(name string, ignore []string) bool {
	for _, pat := range ignore {
		if name == pat {
			return true
		}
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// expandGlob walks from the pattern's literal prefix and keeps files whose
// slash path relative to root matches.
func expandGlob(root, pattern string, ignore []string) ([]string, error) {
	re, err := globRegexp(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	base := root
	var prefix []string
	for _, seg := range strings.Split(pattern, "/") {
		if hasMeta(seg) {
			break
		}
		prefix = append(prefix, seg)
	}
	if len(prefix) > 0 {
		base = filepath.Join(root, filepath.FromSlash(strings.Join(prefix, "/")))
	}
	if _, err := os.Stat(base); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var out []string
	err = walkSources(base, ignore, func(p string) {
		if re.MatchString(relPath(root, p)) {
			out = append(out, p)
		}
	})
	return out, err
}

// globRegexp translates a glob to a regexp: ** spans directories, * and ?
// stay within one path segment.
func globRegexp(pattern string) (*regexp.Regexp, error) {
	pattern = strings.TrimPrefix(pattern, "./")
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*\*/`, `(?:.*/)?`)
	escaped = strings.ReplaceAll(escaped, `\*\*`, `.*`)
	escaped = strings.ReplaceAll(escaped, `\*`, `[^/]*`)
	escaped = strings.ReplaceAll(escaped, `\?`, `[^/]`)
	escaped = strings.ReplaceAll(escaped, `\[`, `[`)
	escaped = strings.ReplaceAll(escaped, `\]`, `]`)
	return regexp.Compile("^" + escaped + "$")
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

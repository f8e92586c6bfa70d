package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/config"
)

const slopPage = `<!doctype html>
<html>
<head>
<link href="https://fonts.googleapis.com/css2?family=Inter:wght@400;700&display=swap" rel="stylesheet">
<style>
.hero { background: linear-gradient(135deg, #8B5CF6, #6366F1); min-height: 100vh; }
.card { border-radius: 16px; backdrop-filter: blur(12px); box-shadow: 0 0 40px rgba(139, 92, 246, 0.5); }
</style>
</head>
<body class="font-sans bg-slate-950">
<section class="min-h-screen flex items-center bg-gradient-to-br from-violet-600 to-indigo-600">
<h1 class="text-7xl font-bold tracking-tight bg-clip-text text-transparent">Unlock the future of work</h1>
<p>Supercharge your workflow with seamless AI. Trusted by 10,000+ teams.</p>
<a class="rounded-2xl shadow-2xl transition-all hover:scale-105">Get started</a>
</section>
<div class="grid md:grid-cols-3 gap-8 max-w-7xl mx-auto py-24">
<div class="rounded-2xl backdrop-blur-lg bg-white/10">🚀 Lorem ipsum dolor sit amet</div>
</div>
<img src="https://images.unsplash.com/photo-1.jpg">
</body>
</html>
`

const cleanPage = `<p class="text-sm">Invoices, sent.</p>
`

type cliResult struct {
	code   int
	stdout string
	stderr string
}

// runCLI runs one command line against the workspace dir.
func runCLI(t *testing.T, dir, stdin string, args ...string) cliResult {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"-C", dir, "--no-color"}, args...)
	code := run(full, strings.NewReader(stdin), &out, &errOut)
	return cliResult{code: code, stdout: out.String(), stderr: errOut.String()}
}

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestApp(t *testing.T, root string) *app {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.WorkspaceRoot = root
	return &app{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdin:  strings.NewReader(""),
		stdout: io.Discard,
		stderr: io.Discard,
	}
}

func TestVersionFlag(t *testing.T) {
	res := runCLI(t, t.TempDir(), "", "--version")
	if res.code != exitOK || !strings.Contains(res.stdout, Version) {
		t.Fatalf("code=%d stdout=%q", res.code, res.stdout)
	}
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	res := runCLI(t, t.TempDir(), "", "frobnicate")
	if res.code != exitUsage || !strings.HasPrefix(res.stderr, "ERROR:") {
		t.Fatalf("code=%d stderr=%q", res.code, res.stderr)
	}
}

func TestShouldExit(t *testing.T) {
	t.Setenv("ANTISLOP_NO_EXIT", "1")
	if shouldExit() {
		t.Fatal("shouldExit with ANTISLOP_NO_EXIT=1")
	}
	t.Setenv("ANTISLOP_NO_EXIT", "")
	if !shouldExit() {
		t.Fatal("shouldExit without ANTISLOP_NO_EXIT")
	}
}

func TestMainDoesNotExitWhenDisabled(t *testing.T) {
	t.Setenv("ANTISLOP_NO_EXIT", "1")
	orig := os.Args
	defer func() { os.Args = orig }()
	os.Args = []string{"antislop", "suggest", "not-a-category"}
	main()
}

func TestScanExitCodes(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		args []string
		want int
	}{
		{name: "clean passes", file: "site/index.html", body: cleanPage, want: exitOK},
		{name: "slop fails the gate", file: "site/index.html", body: slopPage, want: exitFailed},
		{name: "loose threshold passes", file: "site/index.html", body: slopPage, args: []string{"--threshold", "F"}, want: exitOK},
		{name: "fail-when trips", file: "site/index.html", body: cleanPage, args: []string{"--fail-when", "files > 0"}, want: exitFailed},
		{name: "broken fail-when", file: "site/index.html", body: cleanPage, args: []string{"--fail-when", "critical >"}, want: exitUsage},
		{name: "unknown format", file: "site/index.html", body: cleanPage, args: []string{"--format", "yaml"}, want: exitUsage},
		{name: "bad severity", file: "site/index.html", body: cleanPage, args: []string{"--severity", "loud"}, want: exitUsage},
		{name: "no sources", file: "notes.txt", body: "hello", want: exitUsage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tc.file, tc.body)
			args := append([]string{"scan", "--no-history"}, tc.args...)
			res := runCLI(t, dir, "", args...)
			if res.code != tc.want {
				t.Fatalf("code = %d, want %d\nstdout:\n%s\nstderr:\n%s", res.code, tc.want, res.stdout, res.stderr)
			}
		})
	}
}

func TestScanWritesReportsAndAudit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "site/landing.html", slopPage)
	writeFile(t, dir, "site/about.html", cleanPage)
	writeFile(t, dir, "node_modules/lib/index.html", slopPage)

	res := runCLI(t, dir, "", "scan", "--no-history", "--format", "json", "--threshold", "F")
	if res.code != exitOK {
		t.Fatalf("code=%d stderr=%s", res.code, res.stderr)
	}
	var rep struct {
		Tool      string `json:"tool"`
		Verdict   struct{ Pass bool } `json:"verdict"`
		Aggregate struct {
			Files      int    `json:"files"`
			WorstGrade string `json:"worstGrade"`
			WorstFile  string `json:"worstFile"`
		} `json:"aggregate"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &rep); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, res.stdout)
	}
	if rep.Tool != "antislop" || !rep.Verdict.Pass || rep.Aggregate.Files != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Aggregate.WorstGrade != "F" || rep.Aggregate.WorstFile != "site/landing.html" {
		t.Fatalf("worst = %s %s", rep.Aggregate.WorstGrade, rep.Aggregate.WorstFile)
	}
	for _, name := range []string{"report.json", "results.sarif", "junit.xml", "audit.log"} {
		if _, err := os.Stat(filepath.Join(dir, ".antislop", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestScanOutFileAndGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/a/page.html", slopPage)
	writeFile(t, dir, "src/b/page.html", cleanPage)
	writeFile(t, dir, "other/page.html", slopPage)

	res := runCLI(t, dir, "", "scan", "--no-history", "--glob", "src/**/*.html", "--threshold", "F", "-f", "markdown", "-o", "out/summary.md")
	if res.code != exitOK {
		t.Fatalf("code=%d stderr=%s", res.code, res.stderr)
	}
	if res.stdout != "" {
		t.Fatalf("stdout should be empty with --out, got %q", res.stdout)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out", "summary.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "src/a/page.html") || strings.Contains(string(data), "other/page.html") {
		t.Fatalf("summary:\n%s", data)
	}
}

func TestScanMissingPathIsPerFileError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", cleanPage)
	res := runCLI(t, dir, "", "scan", "--no-history", "-f", "json", "index.html", "gone.html")
	var rep struct {
		Files []struct {
			Path   string `json:"path"`
			Status string `json:"status"`
		} `json:"files"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &rep); err != nil {
		t.Fatalf("stdout is not JSON (code %d): %v\n%s", res.code, err, res.stderr)
	}
	if len(rep.Files) != 2 || rep.Files[0].Path != "gone.html" || rep.Files[0].Status != "error" {
		t.Fatalf("files = %+v", rep.Files)
	}
}

func TestScanHonorsWorkspaceOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", slopPage)
	writeFile(t, dir, ".antislop/config.yml", "threshold: F\n")
	if res := runCLI(t, dir, "", "scan", "--no-history"); res.code != exitOK {
		t.Fatalf("override threshold ignored: code=%d\n%s", res.code, res.stdout)
	}

	writeFile(t, dir, ".antislop/config.yml", "ignore: [\"index.html\"]\n")
	writeFile(t, dir, "ok.html", cleanPage)
	if res := runCLI(t, dir, "", "scan", "--no-history"); res.code != exitOK {
		t.Fatalf("override ignore not applied: code=%d\n%s", res.code, res.stdout)
	}
}

func TestScanRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", cleanPage)
	for i := 0; i < 2; i++ {
		if res := runCLI(t, dir, "", "scan"); res.code != exitOK {
			t.Fatalf("scan %d: code=%d stderr=%s", i, res.code, res.stderr)
		}
	}
	res := runCLI(t, dir, "", "history", "--json")
	if res.code != exitOK {
		t.Fatalf("history: code=%d stderr=%s", res.code, res.stderr)
	}
	var runs []struct {
		ID     uint   `json:"id"`
		Grade  string `json:"grade"`
		Passed bool   `json:"passed"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &runs); err != nil {
		t.Fatalf("history json: %v\n%s", err, res.stdout)
	}
	if len(runs) != 2 || runs[0].Grade != "A" || !runs[0].Passed {
		t.Fatalf("runs = %+v", runs)
	}

	show := runCLI(t, dir, "", "history", "show", "1")
	if show.code != exitOK || !strings.Contains(show.stdout, "index.html") {
		t.Fatalf("show: code=%d stdout=%s", show.code, show.stdout)
	}
	if bad := runCLI(t, dir, "", "history", "show", "x"); bad.code != exitUsage {
		t.Fatalf("bad id code = %d", bad.code)
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{
		"index.html",
		"src/app.tsx",
		"src/deep/nested/card.vue",
		"src/readme.txt",
		"node_modules/pkg/index.js",
		"dist/bundle.js",
	} {
		writeFile(t, dir, rel, "x")
	}
	exts := config.Default().Scan.Extensions
	ignore := config.Default().Scan.Ignore

	tests := []struct {
		name    string
		targets []string
		want    []string
		missing []string
	}{
		{name: "whole tree", want: []string{"index.html", "src/app.tsx", "src/deep/nested/card.vue"}},
		{name: "double star", targets: []string{"src/**/*.vue"}, want: []string{"src/deep/nested/card.vue"}},
		{name: "single star stays in segment", targets: []string{"src/*.tsx"}, want: []string{"src/app.tsx"}},
		{name: "explicit file ignores extension", targets: []string{"src/readme.txt"}, want: []string{"src/readme.txt"}},
		{name: "missing path", targets: []string{"index.html", "nope.html"}, want: []string{"index.html"}, missing: []string{"nope.html"}},
		{name: "dedupe", targets: []string{"src", "src/app.tsx"}, want: []string{"src/app.tsx", "src/deep/nested/card.vue"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			paths, missing, err := collectFiles(dir, tc.targets, exts, ignore)
			if err != nil {
				t.Fatalf("collectFiles: %v", err)
			}
			var got []string
			for _, p := range paths {
				got = append(got, relPath(dir, p))
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("paths = %v, want %v", got, tc.want)
			}
			if strings.Join(missing, ",") != strings.Join(tc.missing, ",") {
				t.Fatalf("missing = %v, want %v", missing, tc.missing)
			}
		})
	}
}

func TestGlobRegexp(t *testing.T) {
	tests := []struct {
		glob, path string
		want       bool
	}{
		{"**/*.html", "index.html", true},
		{"**/*.html", "a/b/c.html", true},
		{"src/*.html", "src/a/b.html", false},
		{"src/?.css", "src/a.css", true},
		{"src/[ab].css", "src/c.css", false},
		{"./site/**", "site/x/y.js", true},
	}
	for _, tc := range tests {
		re, err := globRegexp(tc.glob)
		if err != nil {
			t.Fatalf("globRegexp(%q): %v", tc.glob, err)
		}
		if got := re.MatchString(tc.path); got != tc.want {
			t.Errorf("%q matches %q = %v, want %v", tc.glob, tc.path, got, tc.want)
		}
	}
}

func TestReadSourceSkipsBinariesAndLargeFiles(t *testing.T) {
	dir := t.TempDir()
	png := writeFile(t, dir, "logo.html", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if _, skip, err := readSource(png, 0); err != nil || !strings.HasPrefix(skip, "binary") {
		t.Fatalf("png: skip=%q err=%v", skip, err)
	}
	big := writeFile(t, dir, "big.html", strings.Repeat("a", 64))
	if _, skip, err := readSource(big, 10); err != nil || !strings.Contains(skip, "larger than") {
		t.Fatalf("big: skip=%q err=%v", skip, err)
	}
	ok := writeFile(t, dir, "ok.html", cleanPage)
	if data, skip, err := readSource(ok, 0); err != nil || skip != "" || string(data) != cleanPage {
		t.Fatalf("ok: skip=%q err=%v", skip, err)
	}
}

package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/config"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/gate"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
)

const slop = `<div style="color: #8B5CF6" class="rounded-2xl bg-clip-text">
  <h1>Unlock growth with lorem ipsum</h1>
</div>`

const clean = `<main class="px-6"><h1>Invoices, sent.</h1></main>`

func fixture(t *testing.T) Report {
	t.Helper()
	a := engine.NewAnalyzer(nil)
	slopRes := a.AnalyzeString("site/landing.html", slop)
	cleanRes := a.AnalyzeString("site/about.html", clean)
	files := []engine.FileResult{
		{Path: "site/landing.html", Status: engine.StatusGraded, Result: &slopRes},
		{Path: "site/about.html", Status: engine.StatusGraded, Result: &cleanRes},
		{Path: "site/broken.html", Status: engine.StatusError, Error: "permission denied"},
	}
	agg := a.Aggregate(files, 5)
	policy := gate.Policy{Threshold: engine.GradeC, MaxCritical: -1}
	verdict, err := gate.Evaluate(policy, agg)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if verdict.Pass {
		t.Fatalf("fixture should fail the gate, landing grade %s", slopRes.Grade)
	}
	return New("1.2.3", nil, policy, verdict, agg, files)
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatText, "JSON": FormatJSON, "md": FormatMarkdown, "sarif": FormatSARIF}
	for in, want := range cases {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil || !strings.Contains(err.Error(), "junit") {
		t.Errorf("expected error listing formats, got %v", err)
	}
}

func TestJSONShape(t *testing.T) {
	data, err := JSON(fixture(t))
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var doc struct {
		Tool      string `json:"tool"`
		Aggregate struct {
			Files  int    `json:"files"`
			Errors int    `json:"errors"`
			Grade  string `json:"grade"`
		} `json:"aggregate"`
		Files []struct {
			Path   string `json:"path"`
			Status string `json:"status"`
		} `json:"files"`
		Verdict gate.Verdict `json:"verdict"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Tool != "antislop" || doc.Aggregate.Files != 3 || doc.Aggregate.Errors != 1 || doc.Verdict.Pass {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Files[0].Path != "site/landing.html" || doc.Files[2].Status != "error" {
		t.Fatalf("files = %+v", doc.Files)
	}
}

func TestSARIF(t *testing.T) {
	data, err := SARIF(fixture(t))
	if err != nil {
		t.Fatalf("SARIF: %v", err)
	}
	var doc sarifDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Version != "2.1.0" || len(doc.Runs) != 1 {
		t.Fatalf("bad envelope: %+v", doc)
	}
	run := doc.Runs[0]
	if len(run.Tool.Driver.Rules) != signals.Default().Len() {
		t.Fatalf("rules = %d", len(run.Tool.Driver.Rules))
	}
	var purple, gateResult bool
	for _, r := range run.Results {
		switch r.RuleID {
		case "color-ai-purple":
			purple = true
			if r.Level != "error" || len(r.Locs) != 1 || r.Locs[0].PhysicalLocation.Region == nil {
				t.Fatalf("purple result = %+v", r)
			}
			if r.Locs[0].PhysicalLocation.Region.StartLine != 1 {
				t.Fatalf("line = %d", r.Locs[0].PhysicalLocation.Region.StartLine)
			}
		case "antislop-gate":
			gateResult = true
		}
	}
	if !purple || !gateResult {
		t.Fatalf("missing results: purple=%v gate=%v", purple, gateResult)
	}
}

func TestJUnit(t *testing.T) {
	data, err := JUnit(fixture(t))
	if err != nil {
		t.Fatalf("JUnit: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		t.Fatalf("missing xml header")
	}
	var doc junitTestsuites
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	s := doc.Testsuites[0]
	if s.Tests != 4 || s.Errors != 1 || s.Failures != 2 {
		t.Fatalf("suite = tests %d errors %d failures %d", s.Tests, s.Errors, s.Failures)
	}
	if s.Cases[0].Failure == nil || s.Cases[1].Failure != nil {
		t.Fatalf("landing should fail and about should pass")
	}
}

func TestTextAndMarkdown(t *testing.T) {
	r := fixture(t)
	var buf bytes.Buffer
	if err := WriteText(&buf, r, TextOptions{NoColor: true, Top: 2, Verbose: true}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"site/landing.html", "error: permission denied", "Top fixes", "FAILED", "color-ai-purple", "no template patterns detected"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("NoColor output contains escape codes")
	}
	if strings.Count(out, "effort)") > 2 {
		t.Errorf("Top not applied:\n%s", out)
	}

	md := string(Markdown(r))
	if !strings.Contains(md, "| Grade | Score | File |") || !strings.Contains(md, "`site/about.html`") {
		t.Fatalf("markdown:\n%s", md)
	}

	page, err := HTML(r)
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if !bytes.Contains(page, []byte("<table>")) || !bytes.HasPrefix(page, []byte("<!doctype html>")) {
		t.Fatalf("html:\n%s", page)
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default().Reports
	cfg.HTML.Enabled = true
	written, err := WriteFiles(dir, cfg, fixture(t))
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	if len(written) != 4 {
		t.Fatalf("written = %v", written)
	}
	for _, name := range []string{"report.json", "results.sarif", "junit.xml", "report.html"} {
		if _, err := os.Stat(filepath.Join(dir, ".antislop", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

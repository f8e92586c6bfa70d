package main

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/agents"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/server"
)

func TestDoctor(t *testing.T) {
	dir := t.TempDir()
	res := runCLI(t, dir, "", "doctor")
	if res.code != exitOK || !strings.Contains(res.stdout, "Doctor status: OK") {
		t.Fatalf("code=%d\n%s%s", res.code, res.stdout, res.stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".antislop", "doctor.json"))
	if err != nil {
		t.Fatal(err)
	}
	var rep doctorReport
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Status != "OK" || !rep.Output.Writable || !rep.History.Reachable || !rep.Cache.Reachable || len(rep.Kits) == 0 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestDoctorDegradedCache(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANTISLOP_SERVER_CACHE_BACKEND", "redis")
	t.Setenv("ANTISLOP_SERVER_CACHE_REDIS_ADDR", "127.0.0.1:1")
	res := runCLI(t, dir, "", "doctor", "--json")
	var rep doctorReport
	if err := json.Unmarshal([]byte(res.stdout), &rep); err != nil {
		t.Fatalf("json: %v\n%s%s", err, res.stdout, res.stderr)
	}
	if res.code != exitFailed || rep.Status != "DEGRADED" || rep.Cache.Reachable {
		t.Fatalf("code=%d report=%+v", res.code, rep)
	}
}

func TestSupportBundle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", cleanPage)
	if res := runCLI(t, dir, "", "scan", "--no-history"); res.code != exitOK {
		t.Fatalf("scan: %d %s", res.code, res.stderr)
	}
	res := runCLI(t, dir, "", "support-bundle")
	if res.code != exitOK {
		t.Fatalf("code=%d %s", res.code, res.stderr)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".antislop", "support-bundle_*.zip"))
	if len(matches) != 1 {
		t.Fatalf("bundles = %v", matches)
	}
	zr, err := zip.OpenReader(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	names := map[string]*zip.File{}
	for _, f := range zr.File {
		names[f.Name] = f
	}
	for _, want := range []string{"manifest.json", "reports/report.json", "reports/results.sarif", "audit.log"} {
		if names[want] == nil {
			t.Fatalf("%s missing from bundle: %v", want, names)
		}
	}
	rc, err := names["manifest.json"].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	var m bundleManifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		t.Fatal(err)
	}
	for _, f := range m.Files {
		if len(f.SHA256) != 64 {
			t.Fatalf("entry %s has hash %q", f.Name, f.SHA256)
		}
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".antislop", "*.tmp.*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left: %v", leftovers)
	}
}

func TestConnectAgent(t *testing.T) {
	home := t.TempDir()
	origEnv := agentEnv
	agentEnv = func() agents.Env { return agents.Env{Home: home} }
	defer func() { agentEnv = origEnv }()

	cursor := writeFile(t, home, ".cursor/mcp.json", `{"mcpServers": {"other": {"command": "x"},}}`)
	dir := t.TempDir()
	exe := filepath.Join(t.TempDir(), "antislop")

	list := runCLI(t, dir, "", "connect-agent", "--list")
	if list.code != exitOK || !strings.Contains(list.stdout, "cursor") || !strings.Contains(list.stdout, "installed") {
		t.Fatalf("list:\n%s", list.stdout)
	}

	res := runCLI(t, dir, "", "connect-agent", "--client", "cursor", "--exe", exe)
	if res.code != exitOK {
		t.Fatalf("code=%d\n%s%s", res.code, res.stdout, res.stderr)
	}
	data, err := os.ReadFile(cursor)
	if err != nil {
		t.Fatal(err)
	}
	var cfg struct {
		MCPServers map[string]struct {
			Command string   `json:"command"`
			Args    []string `json:"args"`
		} `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("rewritten config: %v\n%s", err, data)
	}
	if cfg.MCPServers["antislop"].Command != exe || cfg.MCPServers["other"].Command != "x" {
		t.Fatalf("servers = %+v", cfg.MCPServers)
	}
	backups, _ := os.ReadDir(filepath.Join(dir, ".antislop", "backups"))
	if len(backups) != 1 {
		t.Fatalf("backups = %v", backups)
	}

	if res := runCLI(t, dir, "", "connect-agent"); res.code != exitUsage {
		t.Fatalf("no selection code = %d", res.code)
	}
	if res := runCLI(t, dir, "", "connect-agent", "--client", "notepad", "--exe", exe); res.code != exitUsage {
		t.Fatalf("unknown agent code = %d", res.code)
	}
}

func TestHarvestCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, slopPage)
	}))
	defer ts.Close()
	t.Setenv("ANTISLOP_HARVEST_DELAY", "1ms")

	dir := t.TempDir()
	writeFile(t, dir, "urls.txt", fmt.Sprintf("# sites\n%s/landing\n\n%s/missing\n", ts.URL, ts.URL))
	res := runCLI(t, dir, "", "harvest", filepath.Join(dir, "urls.txt"), "--no-thumbnails")
	if res.code != exitOK {
		t.Fatalf("code=%d\n%s%s", res.code, res.stdout, res.stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".antislop", "harvest.json"))
	if err != nil {
		t.Fatal(err)
	}
	var out harvestOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 2 || out.Failed != 1 || len(out.Results) != 2 {
		t.Fatalf("harvest = total %d failed %d results %d", out.Total, out.Failed, len(out.Results))
	}
	if out.Results[0].Analysis == nil || out.Results[0].Analysis.Grade != "F" || out.Results[1].Err == "" {
		t.Fatalf("results = %+v", out.Results)
	}

	writeFile(t, dir, "bad.txt", "ftp://example.com/\n")
	if res := runCLI(t, dir, "", "harvest", filepath.Join(dir, "bad.txt")); res.code != exitUsage {
		t.Fatalf("bad url code = %d", res.code)
	}
	if res := runCLI(t, dir, "", "harvest", "-"); res.code != exitUsage {
		t.Fatalf("empty stdin code = %d", res.code)
	}
}

func TestWatchEmitsResults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", cleanPage)
	a := newTestApp(t, dir)
	a.cfg.Watch.Debounce = 20 * time.Millisecond

	events := make(chan server.Event, 64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.watch(ctx, dir, func(ev server.Event) { events <- ev }) }()

	next := func(typ string) server.Event {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case ev := <-events:
				if ev.Type == typ {
					return ev
				}
			case <-timeout:
				t.Fatalf("no %s event", typ)
			}
		}
	}

	first := next("aggregate")
	if first.Aggregate == nil || first.Aggregate.Graded != 1 {
		t.Fatalf("initial aggregate = %+v", first.Aggregate)
	}

	writeFile(t, dir, "landing.html", slopPage)
	ev := next("result")
	if ev.Path != "landing.html" || ev.Result == nil || ev.Result.Grade != "F" {
		t.Fatalf("result event = %+v", ev)
	}
	agg := next("aggregate")
	if agg.Aggregate.Graded != 2 || agg.Aggregate.WorstFile != "landing.html" {
		t.Fatalf("aggregate = %+v", agg.Aggregate)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

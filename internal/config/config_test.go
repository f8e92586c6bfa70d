package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestResolveDefaults(t *testing.T) {
	cfg, path, warnings, err := Resolve(Flags{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path != "" || len(warnings) != 0 {
		t.Fatalf("unexpected path=%q warnings=%v", path, warnings)
	}
	if cfg.Gate.Threshold != "C" || cfg.Gate.MaxCritical != -1 {
		t.Fatalf("gate defaults = %+v", cfg.Gate)
	}
	if cfg.Scan.Concurrency <= 0 || len(cfg.Scan.Extensions) == 0 {
		t.Fatalf("scan defaults = %+v", cfg.Scan)
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Fatalf("debounce = %v", cfg.Watch.Debounce)
	}
	if got := cfg.OutputPath("report.json"); got != ".antislop/report.json" {
		t.Fatalf("OutputPath = %q", got)
	}
}

func TestResolveFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "antislop.yaml")
	doc := `
gate:
  threshold: B
  fail_when: "critical > 2"
scan:
  top: 9
watch:
  debounce: 1s
server:
  cache:
    backend: redis
    redis_addr: "localhost:6379"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ANTISLOP_GATE_THRESHOLD", "D")
	t.Setenv("ANTISLOP_HISTORY_ENABLED", "false")

	cfg, used, _, err := Resolve(Flags{ConfigPath: path, LogLevel: "debug"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if used != path {
		t.Fatalf("config used = %q", used)
	}
	if cfg.Gate.Threshold != "D" {
		t.Errorf("env should override file, threshold = %q", cfg.Gate.Threshold)
	}
	if cfg.Gate.FailWhen != "critical > 2" || cfg.Scan.Top != 9 {
		t.Errorf("file values not applied: %+v %+v", cfg.Gate, cfg.Scan)
	}
	if cfg.Scan.MaxFileBytes != Default().Scan.MaxFileBytes {
		t.Errorf("default not kept for unset key: %d", cfg.Scan.MaxFileBytes)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("debounce = %v", cfg.Watch.Debounce)
	}
	if cfg.History.Enabled {
		t.Errorf("history should be disabled from env")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("flag should override level, got %q", cfg.Logging.Level)
	}
	if cfg.Server.Cache.Backend != "redis" || cfg.Server.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Server.Cache)
	}
}

func TestResolveMissingFile(t *testing.T) {
	if _, _, _, err := Resolve(Flags{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestResolveWarnings(t *testing.T) {
	t.Setenv("ANTISLOP_SCAN_CONCURRENCY", "0")
	cfg, _, warnings, err := Resolve(Flags{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Scan.Concurrency <= 0 || len(warnings) != 1 {
		t.Fatalf("concurrency=%d warnings=%v", cfg.Scan.Concurrency, warnings)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"schema", func(c *Config) { c.SchemaVersion = "2.0" }, "schema_version"},
		{"threshold", func(c *Config) { c.Gate.Threshold = "Z" }, "gate.threshold"},
		{"severity", func(c *Config) { c.Scan.Severity = "loud" }, "scan.severity"},
		{"level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"redis addr", func(c *Config) { c.Server.Cache.Backend = "redis" }, "redis_addr"},
		{"backend", func(c *Config) { c.Server.Cache.Backend = "memcached" }, "server.cache.backend"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want mention of %q", err, tc.want)
			}
		})
	}
	d := Default()
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

package agents

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func findAgent(t *testing.T, agents []Agent, id string) Agent {
	t.Helper()
	for _, a := range agents {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("agent %s not detected", id)
	return Agent{}
}

func TestDetect(t *testing.T) {
	home := t.TempDir()
	env := Env{Home: home}
	writeFile(t, filepath.Join(home, ".cursor", "mcp.json"), `{"mcpServers": {"other": {"command": "x"},},}`)
	writeFile(t, filepath.Join(home, ".codex", "config.toml"), "model = \"o3\"\n\n[mcp_servers.antislop]\ncommand = '/bin/antislop'\n")

	agents := Detect(env)
	if len(agents) != 4 {
		t.Fatalf("agents = %d", len(agents))
	}
	cursor := findAgent(t, agents, "cursor")
	if !cursor.ConfigExists || !cursor.ConfigValid || cursor.Registered {
		t.Fatalf("cursor = %+v", cursor)
	}
	codex := findAgent(t, agents, "codex")
	if !codex.Registered {
		t.Fatalf("codex should already be registered: %+v", codex)
	}
	claude := findAgent(t, agents, "claude-desktop")
	if claude.ConfigExists || claude.ConfigPath == "" {
		t.Fatalf("claude = %+v", claude)
	}
}

func TestSelect(t *testing.T) {
	agents := Detect(Env{Home: t.TempDir()})
	if _, err := Select(agents, nil, true); err == nil {
		t.Fatalf("expected error when nothing is installed")
	}
	got, err := Select(agents, []string{"Claude Desktop", "windsurf"}, false)
	if err != nil || len(got) != 2 || got[0].ID != "claude-desktop" {
		t.Fatalf("Select = %+v, %v", got, err)
	}
	if _, err := Select(agents, []string{"vim"}, false); err == nil || !strings.Contains(err.Error(), "cursor") {
		t.Fatalf("unknown agent error = %v", err)
	}
}

func TestConnectJSONAndTOML(t *testing.T) {
	home := t.TempDir()
	backups := t.TempDir()
	env := Env{Home: home}
	cursorPath := filepath.Join(home, ".cursor", "mcp.json")
	writeFile(t, cursorPath, "\ufeff"+`{"theme": "dark", "mcpServers": {"other": {"command": "x"}}}`)
	codexPath := filepath.Join(home, ".codex", "config.toml")
	writeFile(t, codexPath, "model = \"o3\"\n\n[mcp_servers.antislop]\ncommand = '/old/antislop'\nargs = [\"mcp\", \"serve\"]\n\n[profiles.fast]\nmodel = \"mini\"\n")

	selected, err := Select(Detect(env), nil, true)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	exe := filepath.Join(home, "bin", "antislop")
	outcomes, err := Connect(selected, ConnectOptions{
		ExePath:   exe,
		BackupDir: backups,
		Now:       func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	for _, o := range outcomes {
		if o.Status != "OK" || !strings.HasSuffix(o.BackupPath, ".bak.20260203_040506") {
			t.Fatalf("outcome = %+v", o)
		}
		if _, err := os.Stat(o.BackupPath); err != nil {
			t.Fatalf("backup missing: %v", err)
		}
	}

	raw, _ := os.ReadFile(cursorPath)
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("rewritten json invalid: %v", err)
	}
	servers := doc["mcpServers"].(map[string]any)
	if _, ok := servers["other"]; !ok || doc["theme"] != "dark" {
		t.Fatalf("existing entries lost: %s", raw)
	}
	entry := servers[ServerName].(map[string]any)
	if entry["command"] != exe {
		t.Fatalf("entry = %v", entry)
	}

	toml, _ := os.ReadFile(codexPath)
	text := string(toml)
	if strings.Contains(text, "/old/antislop") || strings.Count(text, "[mcp_servers.antislop]") != 1 {
		t.Fatalf("toml not replaced:\n%s", text)
	}
	if !strings.Contains(text, "[profiles.fast]") || !strings.Contains(text, exe) {
		t.Fatalf("toml lost content:\n%s", text)
	}

	for _, a := range Detect(env) {
		if a.ConfigExists && !a.Registered {
			t.Fatalf("%s not registered after connect", a.ID)
		}
	}
}

func TestConnectRequiresAbsolutePath(t *testing.T) {
	if _, err := Connect(nil, ConnectOptions{ExePath: "antislop"}); err == nil {
		t.Fatalf("expected error for relative path")
	}
}

func TestConnectCreatesMissingConfig(t *testing.T) {
	home := t.TempDir()
	agents := Detect(Env{Home: home})
	sel, _ := Select(agents, []string{"windsurf"}, false)
	exe := filepath.Join(home, "antislop")
	if _, err := Connect(sel, ConnectOptions{ExePath: exe}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	raw, err := os.ReadFile(sel[0].ConfigPath)
	if err != nil || !strings.Contains(string(raw), `"antislop"`) {
		t.Fatalf("config = %s, %v", raw, err)
	}
}

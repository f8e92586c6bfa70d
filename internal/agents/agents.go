// Package agents registers the antislop MCP server with locally installed
// coding agents.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
)

// ServerName is the key the MCP server is registered under.
const ServerName = "antislop"

type Agent struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ConfigPath     string `json:"configPath"`
	ConfigType     string `json:"configType"`
	MCPKey         string `json:"mcpKey"`
	RestartMessage string `json:"restartMessage,omitempty"`
	ConfigExists   bool   `json:"configExists"`
	ConfigValid    bool   `json:"configValid"`
	ConfigError    string `json:"configError,omitempty"`
	Registered     bool   `json:"registered"`
}

type signature struct {
	name           string
	configType     string
	mcpKey         string
	paths          []string
	restartMessage string
}

// Env holds the directories agent configs are looked up in. Empty fields
// are filled from the process environment by DefaultEnv.
type Env struct {
	Home        string
	AppData     string
	UserProfile string
	CodexHome   string
}

func DefaultEnv() Env {
	home, _ := os.UserHomeDir()
	return Env{
		Home:        home,
		AppData:     os.Getenv("APPDATA"),
		UserProfile: os.Getenv("USERPROFILE"),
		CodexHome:   os.Getenv("CODEX_HOME"),
	}
}

func signatures(env Env) []signature {
	profile := env.UserProfile
	if profile == "" {
		profile = env.Home
	}
	codexHome := env.CodexHome
	if codexHome == "" {
		codexHome = filepath.Join(profile, ".codex")
	}
	withAppData := func(rel []string, rest ...string) []string {
		var out []string
		if env.AppData != "" {
			out = append(out, filepath.Join(append([]string{env.AppData}, rel...)...))
		}
		return append(out, rest...)
	}

	return []signature{
		{
			name:           "Cursor",
			configType:     "json",
			mcpKey:         "mcpServers",
			paths:          withAppData([]string{"Cursor", "mcp.json"}, filepath.Join(env.Home, ".cursor", "mcp.json")),
			restartMessage: "Restart Cursor to load the antislop tools.",
		},
		{
			name:       "Claude Desktop",
			configType: "json",
			mcpKey:     "mcpServers",
			paths: withAppData([]string{"Claude", "claude_desktop_config.json"},
				filepath.Join(env.Home, ".config", "Claude", "claude_desktop_config.json"),
				filepath.Join(env.Home, "Library", "Application Support", "Claude", "claude_desktop_config.json"),
			),
			restartMessage: "Restart Claude Desktop to load the antislop tools.",
		},
		{
			name:       "Windsurf",
			configType: "json",
			mcpKey:     "mcpServers",
			paths: withAppData([]string{"Windsurf", "User", "mcp.json"},
				filepath.Join(profile, ".codeium", "windsurf", "mcp_config.json"),
				filepath.Join(env.Home, ".config", "windsurf", "mcp.json"),
			),
			restartMessage: "Restart Windsurf to load the antislop tools.",
		},
		{
			name:       "Codex",
			configType: "toml",
			mcpKey:     "mcp_servers",
			paths: []string{
				filepath.Join(codexHome, "config.toml"),
				filepath.Join(env.Home, ".config", "codex", "config.toml"),
			},
			restartMessage: "Start a new Codex session to load the antislop tools.",
		},
	}
}

func toID(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

// Detect reports every known agent. Agents whose config file is missing are
// returned with their preferred path and ConfigExists false.
func Detect(env Env) []Agent {
	var out []Agent
	for _, sig := range signatures(env) {
		a := Agent{
			ID:             toID(sig.name),
			Name:           sig.name,
			ConfigType:     sig.configType,
			MCPKey:         sig.mcpKey,
			RestartMessage: sig.restartMessage,
		}
		for _, p := range sig.paths {
			if p == "" {
				continue
			}
			if a.ConfigPath == "" {
				a.ConfigPath = p
			}
			if _, err := os.Stat(p); err == nil {
				a.ConfigPath = p
				a.ConfigExists = true
				break
			}
		}
		if a.ConfigExists {
			a.Registered, a.ConfigError = inspect(a)
			a.ConfigValid = a.ConfigError == ""
		}
		out = append(out, a)
	}
	return out
}

func inspect(a Agent) (bool, string) {
	raw, err := support.ReadFileNoBOM(a.ConfigPath)
	if err != nil {
		return false, err.Error()
	}
	if a.ConfigType == "toml" {
		return hasTOMLSection(string(raw)), ""
	}
	parsed, err := parseJSONLenient(raw)
	if err != nil {
		return false, err.Error()
	}
	servers, _ := parsed[a.MCPKey].(map[string]any)
	_, ok := servers[ServerName]
	return ok, ""
}

// Select picks agents by ID or name. all selects every agent whose config
// exists.
func Select(agents []Agent, names []string, all bool) ([]Agent, error) {
	if all {
		var out []Agent
		for _, a := range agents {
			if a.ConfigExists {
				out = append(out, a)
			}
		}
		if len(out) == 0 {
			return nil, errors.New("no installed agents found")
		}
		return out, nil
	}
	if len(names) == 0 {
		return nil, errors.New("no agent selected")
	}
	var out []Agent
	for _, n := range names {
		found := false
		for _, a := range agents {
			if a.ID == strings.ToLower(n) || strings.EqualFold(a.Name, n) {
				out = append(out, a)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown agent %q (known: %s)", n, strings.Join(ids(agents), ", "))
		}
	}
	return out, nil
}

func ids(agents []Agent) []string {
	out := make([]string, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.ID)
	}
	return out
}

// Outcome is the result of connecting one agent.
type Outcome struct {
	Agent      string `json:"agent"`
	ConfigPath string `json:"configPath"`
	BackupPath string `json:"backupPath,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

type ConnectOptions struct {
	// ExePath is the absolute path of the antislop binary.
	ExePath string
	// BackupDir receives a copy of each config before it is rewritten.
	BackupDir string
	Now       func() time.Time
}

// Connect writes the antislop entry into each agent config, backing the
// config up first. It stops at the first failure.
func Connect(selected []Agent, opts ConnectOptions) ([]Outcome, error) {
	if opts.ExePath == "" || !filepath.IsAbs(opts.ExePath) {
		return nil, fmt.Errorf("binary path must be absolute, got %q", opts.ExePath)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var outcomes []Outcome
	for _, a := range selected {
		o := Outcome{Agent: a.ID, ConfigPath: a.ConfigPath}
		if a.ConfigExists {
			bak, err := backup(a, opts.BackupDir, now())
			if err != nil {
				o.Status, o.Error = "FAILED", "backup failed: "+err.Error()
				outcomes = append(outcomes, o)
				return outcomes, fmt.Errorf("backup %s: %w", a.ConfigPath, err)
			}
			o.BackupPath = bak
		}
		var err error
		if a.ConfigType == "toml" {
			err = writeTOML(a, opts.ExePath)
		} else {
			err = writeJSON(a, opts.ExePath)
		}
		if err != nil {
			o.Status, o.Error = "FAILED", err.Error()
			outcomes = append(outcomes, o)
			return outcomes, fmt.Errorf("configure %s: %w", a.Name, err)
		}
		o.Status = "OK"
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// parseJSONLenient accepts the trailing commas editors tend to leave behind.
func parseJSONLenient(data []byte) (map[string]any, error) {
	data = support.StripBOM(data)
	var out map[string]any
	if err := json.Unmarshal(data, &out); err == nil {
		if out == nil {
			out = map[string]any{}
		}
		return out, nil
	}
	if err := json.Unmarshal(trailingComma.ReplaceAll(data, []byte("$1")), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func writeJSON(a Agent, exe string) error {
	data := map[string]any{}
	if a.ConfigExists {
		raw, err := os.ReadFile(a.ConfigPath)
		if err != nil {
			return err
		}
		if data, err = parseJSONLenient(raw); err != nil {
			return err
		}
	}
	servers, ok := data[a.MCPKey].(map[string]any)
	if !ok {
		servers = map[string]any{}
		data[a.MCPKey] = servers
	}
	servers[ServerName] = map[string]any{
		"command": exe,
		"args":    []string{"mcp", "serve"},
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.ConfigPath), 0o755); err != nil {
		return err
	}
	return support.WriteFileAtomic(a.ConfigPath, append(out, '\n'))
}

var (
	tomlHeader   = regexp.MustCompile(`^\s*\[[^\]]+\]\s*(#.*)?$`)
	tomlOurTable = regexp.MustCompile(`^\s*\[mcp_servers\.(?:"antislop"|antislop)\]`)
)

func hasTOMLSection(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if tomlOurTable.MatchString(line) {
			return true
		}
	}
	return false
}

// replaceTOMLSection drops any existing antislop table and appends section.
func replaceTOMLSection(content, section string) string {
	var kept []string
	skipping := false
	for _, line := range strings.Split(content, "\n") {
		switch {
		case tomlOurTable.MatchString(line):
			skipping = true
			continue
		case skipping && tomlHeader.MatchString(line):
			skipping = false
		}
		if !skipping {
			kept = append(kept, line)
		}
	}
	body := strings.TrimRight(strings.Join(kept, "\n"), "\n")
	if strings.TrimSpace(body) == "" {
		return section
	}
	return body + "\n\n" + section
}

func writeTOML(a Agent, exe string) error {
	content := ""
	if a.ConfigExists {
		raw, err := support.ReadFileNoBOM(a.ConfigPath)
		if err != nil {
			return err
		}
		content = string(raw)
	}
	section := fmt.Sprintf("[mcp_servers.%s]\ncommand = '%s'\nargs = [\"mcp\", \"serve\"]\n", ServerName, exe)
	content = replaceTOMLSection(content, section)
	if err := os.MkdirAll(filepath.Dir(a.ConfigPath), 0o755); err != nil {
		return err
	}
	return support.WriteFileAtomic(a.ConfigPath, []byte(content))
}

func backup(a Agent, dir string, now time.Time) (string, error) {
	raw, err := os.ReadFile(a.ConfigPath)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = filepath.Dir(a.ConfigPath)
	}
	stamp := now.UTC().Format("20060102_150405")
	path := filepath.Join(dir, a.ID, fmt.Sprintf("%s.bak.%s", filepath.Base(a.ConfigPath), stamp))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := support.WriteFileAtomic(path, raw); err != nil {
		return "", err
	}
	return path, nil
}

// Selftest runs `<exe> mcp selftest` and reports whether it exited cleanly.
func Selftest(ctx context.Context, exe string, timeout time.Duration) error {
	if exe == "" {
		return errors.New("binary path is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, exe, "mcp", "selftest").CombinedOutput()
	if err != nil {
		return fmt.Errorf("mcp selftest: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

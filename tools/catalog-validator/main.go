// Command catalog-validator checks that a build of antislop is internally
// consistent: the signal catalog is well formed, built-in kits validate
// clean, reference pages grade as expected and the MCP server answers a
// handshake. It stops at the first failing phase and exits 2.
package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/kits"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/mcpio"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/view"
)

//go:embed fixtures
var fixtures embed.FS

type fixture struct {
	File    string   `yaml:"file"`
	Grade   string   `yaml:"grade"`
	Signals []string `yaml:"signals"`
}

type phase struct {
	name string
	fn   func() error
}

func main() {
	var bin string
	cmd := &cobra.Command{
		Use:           "catalog-validator",
		Short:         "Validate the catalog, kits, fixtures and MCP handshake",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), bin)
		},
	}
	cmd.Flags().StringVar(&bin, "bin", "", "antislop binary for the MCP phase (default: antislop on PATH)")
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}
}

func run(w io.Writer, bin string) error {
	phases := []phase{
		{"Catalog integrity", catalogIntegrity},
		{"Built-in kits score 0", builtinKits},
		{"Reference fixtures", referenceFixtures},
		{"MCP handshake", func() error { return mcpHandshake(w, bin) }},
	}
	for i, p := range phases {
		fmt.Fprintf(w, "PHASE %02d - %s\n", i+1, p.name)
		if err := p.fn(); err != nil {
			return fmt.Errorf("phase %d failed: %w", i+1, err)
		}
		fmt.Fprintf(w, "PHASE %02d PASS\n\n", i+1)
	}
	fmt.Fprintln(w, "CATALOG VALIDATION: ALL PHASES PASSED")
	return nil
}

func catalogIntegrity() error {
	cat := signals.Default()
	if cat.Len() == 0 {
		return errors.New("catalog is empty")
	}
	if problems := cat.Check(); len(problems) > 0 {
		lines := make([]string, len(problems))
		for i, p := range problems {
			lines[i] = p.String()
		}
		return fmt.Errorf("%d problems:\n  %s", len(problems), strings.Join(lines, "\n  "))
	}
	return nil
}

func builtinKits() error {
	an := engine.NewAnalyzer(nil)
	all := kits.All()
	if len(all) == 0 {
		return errors.New("no built-in kits")
	}
	for _, k := range all {
		res := kits.Validate(k, an)
		if !res.Passed || res.Score != 0 {
			return fmt.Errorf("kit %s: score %d, problems %v", k.Name, res.Score, res.Problems)
		}
	}
	return nil
}

func referenceFixtures() error {
	data, err := fixtures.ReadFile("fixtures/fixtures.yml")
	if err != nil {
		return err
	}
	var list []fixture
	if err := yaml.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("fixtures.yml: %w", err)
	}
	an := engine.NewAnalyzer(nil)
	for _, f := range list {
		raw, err := fixtures.ReadFile("fixtures/" + f.File)
		if err != nil {
			return err
		}
		want, err := engine.ParseGrade(f.Grade)
		if err != nil {
			return fmt.Errorf("%s: %w", f.File, err)
		}
		res := an.Analyze(view.ParseString(f.File, view.Decode(raw, "")))
		if res.Grade != want {
			return fmt.Errorf("%s: grade %s (score %d), want %s", f.File, res.Grade, res.Score, want)
		}
		found := map[string]bool{}
		for _, d := range res.Detections {
			found[d.SignalID] = true
		}
		for _, id := range f.Signals {
			if !found[id] {
				return fmt.Errorf("%s: signal %s not detected", f.File, id)
			}
		}
	}
	return nil
}

type rpcReply struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// mcpHandshake starts `<bin> mcp serve` and checks initialize and
// tools/list over Content-Length framing.
func mcpHandshake(w io.Writer, bin string) error {
	if bin == "" {
		path, err := exec.LookPath("antislop")
		if err != nil {
			fmt.Fprintln(w, "  SKIP: antislop not on PATH (use --bin)")
			return nil
		}
		bin = path
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "mcp", "serve")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return err
	}
	defer func() {
		_ = stdin.Close()
		_ = cmd.Wait()
	}()

	codec := mcpio.NewCodec(stdout, stdin)
	call := func(id int, method string) (rpcReply, error) {
		req := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":%q,"params":{}}`, id, method)
		if err := mcpio.WriteMessage(stdin, []byte(req)); err != nil {
			return rpcReply{}, err
		}
		raw, err := codec.Read()
		if err != nil {
			return rpcReply{}, fmt.Errorf("%s: %w", method, err)
		}
		var reply rpcReply
		if err := json.Unmarshal(raw, &reply); err != nil {
			return rpcReply{}, fmt.Errorf("%s: %w", method, err)
		}
		if reply.Error != nil {
			return reply, fmt.Errorf("%s: %d %s", method, reply.Error.Code, reply.Error.Message)
		}
		if reply.ID != id {
			return reply, fmt.Errorf("%s: reply id %d, want %d", method, reply.ID, id)
		}
		return reply, nil
	}

	initReply, err := call(1, "initialize")
	if err != nil {
		return err
	}
	var info struct {
		ServerInfo struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(initReply.Result, &info); err != nil || info.ServerInfo.Name == "" {
		return fmt.Errorf("initialize: no serverInfo in %s", initReply.Result)
	}

	list, err := call(2, "tools/list")
	if err != nil {
		return err
	}
	var tools struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(list.Result, &tools); err != nil {
		return fmt.Errorf("tools/list: %w", err)
	}
	names := make([]string, 0, len(tools.Tools))
	for _, t := range tools.Tools {
		names = append(names, t.Name)
	}
	for _, want := range []string{"analyze", "quick_check", "validate_kit", "suggest", "list_signals"} {
		if !contains(names, want) {
			return fmt.Errorf("tools/list: %s missing from %v", want, names)
		}
	}
	fmt.Fprintf(w, "  %s %s, %d tools, digest %s\n", info.ServerInfo.Name, bin, len(names), support.HashBytes(list.Result)[:12])
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

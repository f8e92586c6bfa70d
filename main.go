// antislop grades UI source and live pages for the visual and copy patterns
// of template-generated interfaces, and tells you what to change.
//
// Commands:
//
//	scan             Grade files, write reports, gate the result
//	check            Quick check of one file or DOM snapshot
//	suggest          Alternatives for a category
//	signals          List the signal catalog
//	kit              List, show and validate design kits
//	mcp serve        MCP server (JSON-RPC 2.0 over stdio)
//	mcp selftest     MCP handshake self-test
//	watch            Rescan on change
//	serve            HTTP API and live feed
//	bookmarklet      Emit the in-browser checker
//	plan             Write a fix plan and preview patch
//	calibrate        Run calibration vectors against the policy
//	history          Recent scan runs
//	harvest          Fetch and grade a list of URLs
//	connect-agent    Register the MCP server with coding agents
//	doctor           Run prerequisite checks
//	support-bundle   Zip the output directory for a bug report
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/config"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
)

// Version information (set at build time)
var (
	Version   = "0.4.0"
	BuildDate = "unknown"
)

var (
	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
	colorCyan   = color.New(color.FgCyan)
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// exitError carries an exit code out of a command. A nil err exits quietly.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error { return &exitError{code: exitUsage, err: err} }

func usagef(format string, args ...any) error {
	return usageError(fmt.Errorf(format, args...))
}

// failed exits 1. Commands that already printed why pass nil.
func failed(err error) error { return &exitError{code: exitFailed, err: err} }

// app is the state shared by every command of one invocation.
type app struct {
	flags     config.Flags
	workspace string
	noColor   bool

	cfg     config.Config
	cfgPath string
	logger  *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	code := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if code != exitOK && shouldExit() {
		os.Exit(code)
	}
}

func shouldExit() bool {
	return os.Getenv("ANTISLOP_NO_EXIT") != "1"
}

// run executes one command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return a.exitCode(root.Execute())
}

func (a *app) exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(a.stderr, "ERROR: %v\n", ee.err)
		}
		return ee.code
	}
	// Anything else came from cobra itself: unknown command, bad flag.
	fmt.Fprintf(a.stderr, "ERROR: %v\n", err)
	return exitUsage
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "antislop",
		Short: "Grade UI code for template patterns",
		Long: `antislop detects the visual and copy patterns that make an interface look
template-generated (default fonts, purple gradients, glassmorphism, stock
copy), scores them, and suggests specific alternatives.`,
		Version:           fmt.Sprintf("%s (catalog %s, built %s)", Version, signals.Version, BuildDate),
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	root.SetVersionTemplate("antislop {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.ConfigPath, "config", "", "config file (YAML or JSON)")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVarP(&a.workspace, "workspace", "C", "", "workspace root (default from config)")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newScanCmd(a),
		newCheckCmd(a),
		newSuggestCmd(a),
		newSignalsCmd(a),
		newKitCmd(a),
		newMCPCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newBookmarkletCmd(a),
		newPlanCmd(a),
		newCalibrateCmd(a),
		newHistoryCmd(a),
		newHarvestCmd(a),
		newConnectAgentCmd(a),
		newDoctorCmd(a),
		newSupportBundleCmd(a),
	)
	return root
}

// load resolves configuration and logging before any command runs.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, path, warnings, err := config.Resolve(a.flags)
	if err != nil {
		return usageError(err)
	}
	if a.workspace != "" {
		cfg.Paths.WorkspaceRoot = a.workspace
	}
	a.cfg, a.cfgPath = cfg, path
	a.logger = support.InitLogger(cfg.Logging.Level, cfg.Logging.JSON, a.stderr)
	if a.noColor {
		color.NoColor = true
	}
	for _, w := range warnings {
		a.warn("%s", w)
	}
	if path != "" {
		a.logger.Debug("config loaded", "path", path)
	}
	return nil
}

func (a *app) warn(format string, args ...any) {
	fmt.Fprintf(a.stderr, "WARNING: "+format+"\n", args...)
}

// root returns the workspace root as an absolute path when possible.
func (a *app) root() string {
	root := a.cfg.Paths.WorkspaceRoot
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// resolve anchors a relative path at the workspace root.
func (a *app) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.root(), p)
}

// outputDir is where reports, the audit log and history live.
func (a *app) outputDir() string {
	dir := a.cfg.Paths.OutputDir
	if dir == "" {
		dir = ".antislop"
	}
	return a.resolve(dir)
}

func (a *app) output(name string) string {
	return filepath.Join(a.outputDir(), name)
}

func (a *app) audit(entry support.AuditEntry) {
	if err := support.AppendAudit(a.outputDir(), entry); err != nil {
		a.logger.Warn("audit append failed", "error", err)
	}
}

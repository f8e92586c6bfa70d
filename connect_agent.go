package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/agents"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
)

// Swapped in tests.
var (
	agentEnv   = agents.DefaultEnv
	executable = os.Executable
)

func newConnectAgentCmd(a *app) *cobra.Command {
	var (
		clients  []string
		all      bool
		list     bool
		exe      string
		selftest bool
	)
	cmd := &cobra.Command{
		Use:   "connect-agent",
		Short: "Register the MCP server with installed coding agents",
		Long: `Connect-agent writes an "antislop" MCP server entry into the config of each
selected agent (Cursor, Claude Desktop, Windsurf, Codex). Existing configs are
backed up to the output directory first; other servers are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			detected := agents.Detect(agentEnv())
			if list {
				return a.printAgents(detected)
			}
			selected, err := agents.Select(detected, clients, all)
			if err != nil {
				return usageError(err)
			}
			if exe == "" {
				exe, err = executable()
				if err != nil {
					return failed(fmt.Errorf("cannot locate antislop binary: %w", err))
				}
			}
			if exe, err = filepath.Abs(exe); err != nil {
				return usageError(err)
			}
			if selftest {
				if err := agents.Selftest(cmd.Context(), exe, 20*time.Second); err != nil {
					return failed(err)
				}
				fmt.Fprintln(a.stdout, "[OK] mcp selftest")
			}

			outcomes, connErr := agents.Connect(selected, agents.ConnectOptions{
				ExePath:   exe,
				BackupDir: a.output("backups"),
			})
			for _, o := range outcomes {
				if o.Status == "OK" {
					fmt.Fprintf(a.stdout, "%s %s -> %s\n", colorGreen.Sprint("[OK]  "), o.Agent, o.ConfigPath)
					if o.BackupPath != "" {
						fmt.Fprintf(a.stdout, "       backup: %s\n", o.BackupPath)
					}
				} else {
					fmt.Fprintf(a.stdout, "%s %s: %s\n", colorRed.Sprint("[FAIL]"), o.Agent, o.Error)
				}
			}
			for _, ag := range selected {
				if ag.RestartMessage != "" {
					fmt.Fprintln(a.stdout, ag.RestartMessage)
				}
			}
			result := "OK"
			if connErr != nil {
				result = "FAILED"
			}
			a.audit(support.AuditEntry{Command: "connect-agent", Files: len(outcomes), Result: result, Detail: exe})
			if connErr != nil {
				return failed(connErr)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&clients, "client", nil, "agent id or name (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "every agent with an existing config")
	cmd.Flags().BoolVar(&list, "list", false, "list known agents and exit")
	cmd.Flags().StringVar(&exe, "exe", "", "binary to register (default: this binary)")
	cmd.Flags().BoolVar(&selftest, "selftest", false, "run mcp selftest against the binary first")
	return cmd
}

func (a *app) printAgents(list []agents.Agent) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCONFIG\tSTATE")
	for _, ag := range list {
		state := "not installed"
		switch {
		case ag.ConfigExists && !ag.ConfigValid:
			state = "invalid: " + ag.ConfigError
		case ag.Registered:
			state = "connected"
		case ag.ConfigExists:
			state = "installed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ag.ID, ag.ConfigPath, state)
	}
	return tw.Flush()
}

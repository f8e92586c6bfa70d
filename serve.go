package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/overlay"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/support"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the live feed",
		Long: `Serve exposes analysis over HTTP:

  POST /v1/analyze                 text/html body, or JSON {html} / {snapshot}
  POST /v1/quick-check             same input, top fixes added
  POST /v1/panel                   the bookmarklet panel as HTML
  GET  /v1/signals                 the catalog (?category=, ?severity=)
  GET  /v1/kits/{name}/validate    validate a built-in kit
  GET  /v1/live                    websocket feed of watch results
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv, closeCache, err := a.newServer()
			if err != nil {
				return usageError(err)
			}
			defer closeCache()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(a.stdout, "antislop %s listening on http://%s (cache: %s)\n", Version, addr, a.cfg.Server.Cache.Backend)
			if err := srv.ListenAndServe(ctx, addr, a.cfg.Server.ReadTimeout); err != nil {
				return failed(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newBookmarkletCmd(a *app) *cobra.Command {
	var (
		script bool
		out    string
	)
	cmd := &cobra.Command{
		Use:   "bookmarklet",
		Short: "Emit the in-browser checker",
		Long: `Bookmarklet prints a javascript: URL that grades the current page with the
same catalog and weights as the CLI. It makes no network calls. Use
--script to get the readable script instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			render := overlay.Bookmarklet
			if script {
				render = overlay.Script
			}
			text, err := render(signals.Default(), engine.DefaultPolicy)
			if err != nil {
				return failed(err)
			}
			if out == "" {
				fmt.Fprintln(a.stdout, text)
				return nil
			}
			path := a.resolve(out)
			if err := support.WriteFileAtomic(path, []byte(text+"\n")); err != nil {
				return failed(err)
			}
			fmt.Fprintf(a.stdout, "Bookmarklet written to %s (%d bytes)\n", path, len(text))
			return nil
		},
	}
	cmd.Flags().BoolVar(&script, "script", false, "print the plain script, not a javascript: URL")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a file")
	return cmd
}

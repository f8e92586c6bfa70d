package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/cache"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/server"
)

func newWatchCmd(a *app) *cobra.Command {
	var serveAddr string
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Rescan files as they change",
		Long: `Watch grades the tree once, then regrades every file that changes. With
--serve it also runs the HTTP API and pushes each result to /v1/live.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.root()
			if len(args) == 1 {
				root = a.resolveArg(args[0])
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var publish func(server.Event)
			if serveAddr != "" {
				srv, closeCache, err := a.newServer()
				if err != nil {
					return usageError(err)
				}
				defer closeCache()
				go func() {
					if err := srv.ListenAndServe(ctx, serveAddr, a.cfg.Server.ReadTimeout); err != nil {
						a.logger.Error("http server stopped", "error", err)
						stop()
					}
				}()
				publish = srv.Publish
				fmt.Fprintf(a.stdout, "Live feed: ws://%s/v1/live\n", serveAddr)
			}
			if err := a.watch(ctx, root, publish); err != nil {
				return failed(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serveAddr, "serve", "", "also serve the HTTP API on this address")
	return cmd
}

type fileWatcher struct {
	a       *app
	an      *engine.Analyzer
	root    string
	exts    map[string]bool
	publish func(server.Event)

	mu      sync.Mutex
	pending map[string]bool
	latest  map[string]engine.FileResult
	timer   *time.Timer
}

// watch blocks until ctx is done. publish may be nil.
func (a *app) watch(ctx context.Context, root string, publish func(server.Event)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init failed: %w", err)
	}
	defer w.Close()

	fw := &fileWatcher{
		a:       a,
		an:      engine.NewAnalyzer(nil),
		root:    root,
		exts:    map[string]bool{},
		publish: publish,
		pending: map[string]bool{},
		latest:  map[string]engine.FileResult{},
	}
	for _, e := range a.cfg.Scan.Extensions {
		fw.exts[strings.ToLower(e)] = true
	}

	if err := fw.addRecursive(w, root); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	fw.initial(ctx)
	fmt.Fprintf(a.stdout, "Watching %s (Ctrl+C to stop)\n", root)

	debounce := a.cfg.Watch.Debounce
	for {
		select {
		case <-ctx.Done():
			fw.mu.Lock()
			if fw.timer != nil {
				fw.timer.Stop()
			}
			fw.mu.Unlock()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			fw.handle(w, ev, debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "error", err)
		}
	}
}

func (fw *fileWatcher) skipped(path string) bool {
	rel := relPath(fw.root, path)
	for _, seg := range strings.Split(rel, "/") {
		if ignored(seg, fw.a.cfg.Scan.Ignore) {
			return true
		}
	}
	return false
}

func (fw *fileWatcher) addRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != fw.root && fw.skipped(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func (fw *fileWatcher) handle(w *fsnotify.Watcher, ev fsnotify.Event, debounce time.Duration) {
	if fw.skipped(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := fw.addRecursive(w, ev.Name); err != nil {
				fw.a.logger.Warn("watch add failed", "path", ev.Name, "error", err)
			}
			return
		}
	}
	if !fw.exts[strings.ToLower(filepath.Ext(ev.Name))] {
		return
	}
	if ev.Op == fsnotify.Chmod {
		return
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.pending[ev.Name] = true
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(debounce, fw.flush)
}

// initial grades the whole tree once so the first aggregate is complete.
func (fw *fileWatcher) initial(ctx context.Context) {
	paths, _, err := collectFiles(fw.root, nil, fw.a.cfg.Scan.Extensions, fw.a.cfg.Scan.Ignore)
	if err != nil {
		fw.a.logger.Warn("initial scan failed", "error", err)
		return
	}
	files, _ := fw.a.analyzeFiles(ctx, fw.an, fw.root, paths, fw.a.cfg.Scan.Concurrency)
	fw.mu.Lock()
	for _, f := range files {
		fw.latest[f.Path] = f
	}
	fw.mu.Unlock()
	fw.emitAggregate()
}

func (fw *fileWatcher) flush() {
	fw.mu.Lock()
	paths := make([]string, 0, len(fw.pending))
	for p := range fw.pending {
		paths = append(paths, p)
	}
	fw.pending = map[string]bool{}
	fw.mu.Unlock()
	sort.Strings(paths)

	for _, p := range paths {
		rel := relPath(fw.root, p)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			fw.mu.Lock()
			delete(fw.latest, rel)
			fw.mu.Unlock()
			fmt.Fprintf(fw.a.stdout, "  [-]    -  %s  removed\n", rel)
			fw.emit(server.Event{Type: "removed", Path: rel})
			continue
		}
		fr := fw.a.analyzeFile(fw.an, fw.root, p)
		fw.mu.Lock()
		fw.latest[rel] = fr
		fw.mu.Unlock()

		ev := server.Event{Type: "result", Path: rel, Result: fr.Result}
		if fr.Result == nil {
			ev.Type, ev.Error = string(fr.Status), fr.Error
			fmt.Fprintf(fw.a.stdout, "  [!]    -  %s  %s\n", rel, fr.Error)
		} else {
			fmt.Fprintf(fw.a.stdout, "  %s  %3d  %s\n", gradeColor(fr.Result.Grade).Sprintf("[%s]", fr.Result.Grade), fr.Result.Score, rel)
		}
		fw.emit(ev)
	}
	fw.emitAggregate()
}

func (fw *fileWatcher) emitAggregate() {
	fw.mu.Lock()
	files := make([]engine.FileResult, 0, len(fw.latest))
	for _, f := range fw.latest {
		files = append(files, f)
	}
	fw.mu.Unlock()
	agg := fw.an.Aggregate(files, fw.a.cfg.Scan.Top)
	fmt.Fprintf(fw.a.stdout, "Grade %s (mean score %d) across %d files\n", gradeColor(agg.Grade).Sprint(agg.Grade), agg.MeanScore, agg.Graded)
	fw.emit(server.Event{Type: "aggregate", Aggregate: &agg})
}

func (fw *fileWatcher) emit(ev server.Event) {
	if fw.publish != nil {
		fw.publish(ev)
	}
}

// newServer builds the HTTP API from the server config section. The
// returned func closes the cache backend.
func (a *app) newServer() (*server.Server, func(), error) {
	backend, err := cache.New(a.cfg.Server.Cache)
	if err != nil {
		return nil, nil, err
	}
	srv := server.New(server.Options{
		Cache:        backend,
		CacheTTL:     a.cfg.Server.Cache.TTL,
		MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
		Top:          a.cfg.Scan.Top,
		Logger:       a.logger,
	})
	return srv, func() {
		if err := backend.Close(); err != nil {
			a.logger.Warn("cache close failed", "error", err)
		}
	}, nil
}

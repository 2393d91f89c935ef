package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docwright/internal/config"
	"git.home.luguber.info/inful/docwright/internal/metrics"
)

// WatchCmd implements the 'watch' command: an update build on every
// corpus change, debounced so editor save bursts collapse into one run.
type WatchCmd struct {
	Jobs        int           `short:"j" help:"Worker slots including the coordinator (overrides config)"`
	Color       bool          `help:"Colorize console output"`
	Debounce    time.Duration `help:"Quiet period before a rebuild" default:"300ms"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9090)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if w.Jobs > 0 {
		cfg.Parallelism = w.Jobs
	}

	rt, err := newRuntime(cfg, w.Color)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if w.MetricsAddr != "" {
		stop, err := serveMetrics(ctx, w.MetricsAddr, rt)
		if err != nil {
			return err
		}
		defer stop()
	}

	// Initial build so the output is current before the first change.
	if err := rt.orch.BuildUpdate(ctx); err != nil {
		slog.Error("initial build failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := addDirsRecursive(watcher, cfg.SourceDir); err != nil {
		return err
	}

	rebuild, trigger := newDebouncer(w.Debounce)
	slog.Info("watching for changes", "dir", cfg.SourceDir)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down watch")
			return nil
		case <-rebuild:
			if err := rt.orch.BuildUpdate(ctx); err != nil {
				slog.Warn("rebuild failed", "error", err)
			}
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = addDirsRecursive(watcher, ev.Name)
					continue
				}
			}
			if shouldIgnoreEvent(ev.Name, cfg) {
				continue
			}
			slog.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			trigger()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", werr)
		}
	}
}

// serveMetrics attaches a Prometheus recorder to the build runtime and
// serves its registry over HTTP until ctx ends.
func serveMetrics(ctx context.Context, addr string, rt *buildRuntime) (func(), error) {
	reg := prom.NewRegistry()
	rt.orch.WithMetrics(metrics.NewPrometheusRecorder(reg))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return func() { _ = srv.Close() }, nil
}

// newDebouncer returns a signal channel and a trigger that fires it after
// a quiet period. Triggers during the quiet period restart the timer.
func newDebouncer(quiet time.Duration) (<-chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	ch := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(quiet, func() {
			select {
			case ch <- struct{}{}:
			default:
			}
		})
	}
	return ch, trigger
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// shouldIgnoreEvent filters hidden files, editor temp files and anything
// without the source suffix.
func shouldIgnoreEvent(path string, cfg *config.Config) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return true
	}
	return !strings.HasSuffix(base, cfg.SourceSuffix)
}

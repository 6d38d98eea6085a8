package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/compiletest/pkg/artifacts"
	"github.com/platinummonkey/compiletest/pkg/observability"
)

func (a *app) watchCommand() *cobra.Command {
	var (
		opts        runOptions
		delay       time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch UNIT_FILE...",
		Short: "Recompile units when their files change",
		Long: `Compile the given units, then watch the unit files and their existing
source files and recompile a unit once its files have been quiet for --delay.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if metricsAddr == "" {
				metricsAddr = a.cfg.Observability.MetricsAddr
			}
			var server *http.Server
			if metricsAddr != "" {
				server = observability.NewMetricsServer(metricsAddr, a.registry)
				go func() {
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.WithError(err).Error("Metrics server failed")
					}
				}()
				a.logger.WithField("addr", metricsAddr).Info("Serving metrics")
			}
			shutdown := observability.NewShutdownManager(a.logger, server, 10*time.Second)

			w, err := a.newWatcher(ctx, opts, args, delay)
			if err != nil {
				return err
			}
			shutdown.RegisterShutdownFunc(func(context.Context) error { return w.Close() })

			go w.run(ctx)
			return shutdown.WaitForShutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&opts.workDir, "work-dir", "", "root of the unit working directories, overrides COMPILETEST_WORK_DIR")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "upload the outputs of compiled units to the configured S3 bucket")
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "quiet period before recompiling a changed unit")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, overrides COMPILETEST_METRICS_ADDR")
	return cmd
}

// watcher recompiles units after their files change. Changes are
// debounced per unit.
type watcher struct {
	app     *app
	env     *environment
	store   artifacts.Store
	opts    runOptions
	delay   time.Duration
	paths   []string
	fsw     *fsnotify.Watcher
	compile chan string
	done    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	units  map[string]*unitFile // by unit file path
	timers map[string]*time.Timer
}

func (a *app) newWatcher(ctx context.Context, opts runOptions, paths []string, delay time.Duration) (*watcher, error) {
	w := &watcher{
		app:     a,
		opts:    opts,
		delay:   delay,
		compile: make(chan string, len(paths)),
		done:    make(chan struct{}),
		units:   make(map[string]*unitFile),
		timers:  make(map[string]*time.Timer),
	}

	var units []*unitFile
	for _, path := range paths {
		u, err := loadUnitFile(path)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
		w.units[u.path] = u
		w.paths = append(w.paths, u.path)
	}
	if err := uniqueNames(units); err != nil {
		return nil, err
	}

	var err error
	if w.env, err = a.newEnvironment(ctx); err != nil {
		return nil, err
	}
	if opts.upload {
		if w.store, err = a.newStore(ctx); err != nil {
			w.env.Close()
			return nil, err
		}
	}

	if w.fsw, err = fsnotify.NewWatcher(); err != nil {
		w.env.Close()
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	watched := make(map[string]bool)
	for _, u := range units {
		for _, dir := range u.watchDirs() {
			if watched[dir] {
				continue
			}
			if err := w.fsw.Add(dir); err != nil {
				w.Close()
				return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			watched[dir] = true
		}
	}
	return w, nil
}

// run compiles every unit once, then recompiles on change until ctx is done
func (w *watcher) run(ctx context.Context) {
	for _, path := range w.paths {
		w.compile <- path
	}
	w.app.logger.WithField("units", len(w.paths)).Info("Started watching for changes")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case path := <-w.compile:
			w.recompile(ctx, path)
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.app.logger.WithError(err).Warn("Watcher error")
		}
	}
}

// handle schedules the units affected by a file event
func (w *watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for unitPath, u := range w.units {
		if !u.watches(path) {
			continue
		}
		w.app.logger.WithFields(logrus.Fields{"unit": u.Name, "file": path}).Debug("File changed")
		if t, ok := w.timers[unitPath]; ok {
			t.Stop()
		}
		w.timers[unitPath] = time.AfterFunc(w.delay, func() {
			select {
			case w.compile <- unitPath:
			case <-w.done:
			}
		})
	}
}

// recompile reloads the unit file and compiles the unit
func (w *watcher) recompile(ctx context.Context, path string) {
	u, err := loadUnitFile(path)
	if err != nil {
		w.app.logger.WithError(err).Error("Failed to reload unit file")
		return
	}

	w.mu.Lock()
	previous := w.units[path]
	if previous != nil && previous.Name != u.Name {
		w.app.logger.WithField("unit", previous.Name).Warn("Unit names cannot change while watching, keeping the old name")
		u.Name = previous.Name
	}
	w.units[path] = u
	w.mu.Unlock()

	for _, dir := range u.watchDirs() {
		if err := w.fsw.Add(dir); err != nil {
			w.app.logger.WithError(err).WithField("dir", dir).Warn("Failed to watch directory")
		}
	}

	report := w.app.compileUnit(ctx, w.env, w.store, w.opts, u)
	w.app.printReport(w.app.stdout, report)
}

// Close stops the pending timers, the file watcher and the compilers
func (w *watcher) Close() error {
	w.once.Do(func() { close(w.done) })

	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	var errs []error
	if w.fsw != nil {
		errs = append(errs, w.fsw.Close())
	}
	errs = append(errs, w.env.Close())
	return errors.Join(errs...)
}

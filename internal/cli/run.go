package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hotclick/internal/config"
	"github.com/roach88/hotclick/internal/engine"
	"github.com/roach88/hotclick/internal/input"
	"github.com/roach88/hotclick/internal/input/hook"
	"github.com/roach88/hotclick/internal/input/robot"
	"github.com/roach88/hotclick/internal/statusfeed"
	"github.com/roach88/hotclick/internal/store"
)

// ShutdownTimeout bounds the wait for macro runs and the final save.
const ShutdownTimeout = 5 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// FeedAddr overrides feed.addr from the config. Empty keeps the config.
	FeedAddr string

	// Listener overrides the OS keyboard hook (for testing).
	Listener input.Listener

	// Injector overrides the OS input injector (for testing).
	Injector input.Injector

	// RunIDs overrides run ID generation. Defaults to UUIDv7.
	RunIDs engine.RunIDGenerator

	// Ready is called once the listener is installed (for testing).
	Ready func(*engine.Engine)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for trigger keys and send actions",
		Long: `Install the global keyboard hook and run until interrupted.

Macros are loaded from the database. Master settings come from --config and
are reloaded whenever the file changes. Macro edits made with "hotclick
macro" while run is active take effect on the next start; run does not
overwrite them when it exits. With feed.addr (or --feed) set, a
status feed is served over HTTP and websocket.

Example:
  hotclick run --config hotclick.yaml
  hotclick run --db ./macros.db --feed 127.0.0.1:7777`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHotclick(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FeedAddr, "feed", "", "serve the status feed on this address")

	return cmd
}

func runHotclick(opts *RunOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	log := newLogger(cmd.ErrOrStderr(), opts.RootOptions, cfg)
	slog.SetDefault(log)

	dbPath := databasePath(opts.RootOptions, cfg)
	log.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	if cfg.LegacyJSON != "" {
		importLegacyOnce(ctx, st, cfg.LegacyJSON, log)
	}

	sinks := engine.MultiSink{engine.LogSink{Logger: log}}
	feedAddr := cfg.Feed.Addr
	if opts.FeedAddr != "" {
		feedAddr = opts.FeedAddr
	}
	var hub *statusfeed.Hub
	if feedAddr != "" {
		hub = statusfeed.NewHub(log)
		sinks = append(sinks, hub)
	}
	sink := engine.NewAsyncSink(sinks)
	defer sink.Close()

	inj := opts.Injector
	if inj == nil {
		inj = robot.New()
	}
	engOpts := []engine.EngineOption{engine.WithLogger(log)}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDs(opts.RunIDs))
	}
	eng := engine.New(inj, sink, st, engOpts...)

	if err := eng.Load(ctx); err != nil {
		log.Warn("starting with no macros", "error", err, "event", "load_failed")
	}
	settings, _ := eng.UpdateSettings(cfg.Master.SettingsInput())

	shutdown := func() error {
		sctx, scancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer scancel()
		return eng.Shutdown(sctx)
	}

	if hub != nil {
		hub.Attach(eng)
		ln, err := net.Listen("tcp", feedAddr)
		if err != nil {
			_ = shutdown()
			return f.Fail(ExitCommandError, ErrCodeGeneric, "failed to start status feed", err)
		}
		srv := statusfeed.NewServer(feedAddr, hub, log)
		go func() {
			if err := srv.Serve(ln); err != nil {
				log.Error("status feed stopped", "error", err, "event", "feed_failed")
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if opts.Config != "" {
		w, err := config.NewWatcher(opts.Config, func(c *config.Config) {
			eng.UpdateSettings(c.Master.SettingsInput())
		}, config.WithWatcherLogger(log))
		if err != nil {
			log.Warn("config changes will not be picked up", "error", err, "event", "watch_failed")
		} else {
			defer w.Close()
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	listener := opts.Listener
	if listener == nil {
		listener = hook.New(hook.WithLogger(log))
	}
	if err := listener.Start(ctx, eng.HandleKey); err != nil {
		_ = shutdown()
		lerr := engine.NewListenerError(err)
		return f.Fail(ExitCommandError, string(lerr.Code), "cannot listen for trigger keys", lerr)
	}

	out := cmd.OutOrStdout()
	if opts.Format != "json" {
		fmt.Fprintf(out, "hotclick running: master trigger %s (%s), %d macro(s).\n",
			settings.Trigger, settings.Mode, len(eng.Macros()))
		fmt.Fprintln(out, "Press Ctrl-C to stop.")
	}
	if opts.Ready != nil {
		opts.Ready(eng)
	}

	<-ctx.Done()

	if err := listener.Stop(); err != nil {
		log.Warn("error removing keyboard hook", "error", err)
	}
	sent := eng.Sent()
	if err := shutdown(); err != nil && !macrosChangedExternally(err, log) {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("shutdown timed out waiting for macro runs", "error", err)
		}
		return f.Fail(ExitFailure, errorCode(err), "shutdown incomplete", err)
	}

	log.Info("hotclick stopped", "sent", sent, "event", "stopped")
	return f.Success(map[string]any{"sent": sent}, "")
}

// macrosChangedExternally reports whether err is only the store refusing to
// overwrite macros edited by another command while run was live. The stored
// list is kept in that case.
func macrosChangedExternally(err error, log *slog.Logger) bool {
	if !errors.Is(err, store.ErrStale) {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !errors.Is(e, store.ErrStale) {
				return false
			}
		}
	}
	log.Warn("macros changed in the database while running; keeping the stored list",
		"event", "macros_changed_externally")
	return true
}

// legacyImportKey marks a store that has already been seeded from a legacy
// file, so removing every macro later does not bring them back.
const legacyImportKey = "legacy_import"

// importLegacyOnce seeds an empty database from a legacy macros.json file.
func importLegacyOnce(ctx context.Context, st *store.Store, path string, log *slog.Logger) {
	if _, done, err := st.Meta(ctx, legacyImportKey); err != nil || done {
		return
	}
	n, err := st.Count(ctx)
	if err != nil || n > 0 {
		return
	}
	macros, err := store.ReadLegacyJSON(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("legacy macro file not imported", "path", path, "error", err, "event", "legacy_import_failed")
		}
		return
	}
	if err := st.Save(ctx, macros); err != nil {
		log.Warn("legacy macro file not imported", "path", path, "error", err, "event", "legacy_import_failed")
		return
	}
	if err := st.SetMeta(ctx, legacyImportKey, path); err != nil {
		log.Warn("legacy import not recorded", "error", err, "event", "legacy_import_failed")
	}
	log.Info("imported legacy macros", "path", path, "count", len(macros), "event", "legacy_imported")
}

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mtarnawa/bnetlocal/internal/catalog"
	"github.com/mtarnawa/bnetlocal/internal/client"
	"github.com/mtarnawa/bnetlocal/internal/engine"
	"github.com/mtarnawa/bnetlocal/internal/game"
	"github.com/mtarnawa/bnetlocal/internal/journal"
	"github.com/mtarnawa/bnetlocal/internal/watcher"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Journal string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the installation and print state changes",
		Long: `Watch the agent's database and the client config for changes and print
every game state transition as it happens.

The first refresh reports the starting state of every installed game.
File changes are debounced, so a burst of agent writes costs one
refresh. With --journal (or a configured journal path) transitions are
also recorded for later inspection with the history command.

Examples:
  bnetlocal watch
  bnetlocal watch --journal ./journal.db --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record transitions to this journal database")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	dbPath := cfg.ProductDBPath()
	if dbPath == "" && cfg.ClientConfigPath == "" {
		return NewExitError(ExitCommandError, "nothing to watch: configure agent_dir or client_config")
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	notify := engine.NotifierFunc(func(st game.Status) {
		if opts.Format == "json" {
			if err := enc.Encode(st); err != nil {
				slog.Error("failed to write transition", "error", err)
			}
			return
		}
		fmt.Fprintf(out, "%s -> %s\n", st.ID, st.State)
	})

	engOpts := []engine.Option{
		engine.WithNotifier(notify),
		engine.WithWatchDelay(cfg.WatchDelay.Std()),
		engine.WithWatchInterval(cfg.WatchInterval.Std()),
	}
	if cfg.LauncherPath != "" {
		engOpts = append(engOpts, engine.WithLauncherProbe(client.New(cfg.LauncherPath)))
	}

	journalPath := opts.Journal
	if journalPath == "" {
		journalPath = cfg.JournalPath
	}
	if journalPath != "" {
		store, err := journal.Open(journalPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		engOpts = append(engOpts, engine.WithJournal(store))
	}

	eng := engine.New(catalog.Default(), engine.FileSource{
		DBPath:     dbPath,
		ConfigPath: cfg.ClientConfigPath,
	}, engOpts...)
	defer eng.Close()

	w := watcher.New(cfg.Debounce.Std())
	if dbPath != "" {
		w.Watch(dbPath, cfg.DBPoll.Std())
	}
	if cfg.ClientConfigPath != "" {
		w.Watch(cfg.ClientConfigPath, cfg.ConfigPoll.Std())
	}
	if err := w.Start(); err != nil {
		return WrapExitError(ExitCommandError, "failed to start file watcher", err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			slog.Error("error closing watcher", "error", closeErr)
		}
	}()

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("watching installation", "db", dbPath, "config", cfg.ClientConfigPath, "journal", journalPath)
	if opts.Format != "json" {
		fmt.Fprintln(out, "Watching for changes. Press Ctrl-C to stop.")
	}

	if err := eng.Run(ctx, w.Signal()); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	slog.Info("watch stopped")
	return nil
}

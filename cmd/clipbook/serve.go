package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipbook/internal/clip"
	"go.klb.dev/clipbook/internal/hub"
	"go.klb.dev/clipbook/internal/ipc"
	"go.klb.dev/clipbook/internal/ipcserver"
	"go.klb.dev/clipbook/internal/monitor"
	"go.klb.dev/clipbook/internal/retention"
	"go.klb.dev/clipbook/internal/settings"
	"go.klb.dev/clipbook/internal/store"
)

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the clipboard history daemon",
		Long: `Starts the clipbook daemon. It polls the system clipboard, records
new text and image snippets in the history database, and answers
list/copy/delete/clean/status requests over the local IPC socket.

When auto-clean is enabled in settings.json, entries older than the
configured number of days are swept once per day.

Precedence (lowest → highest): defaults → config file → CLIPBOOK_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runServe(v) },
	}

	f := cmd.Flags()
	f.String("data-dir", "", "directory for the database, images, and settings (default: platform config dir)")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServe(v *viper.Viper) error {
	setupLogging(v)

	dir, err := dataDir(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "history.db")
	imageDir := filepath.Join(dir, "images")
	settingsPath := filepath.Join(dir, "settings.json")

	slog.Info("clipbook daemon starting",
		"version", Version,
		"data_dir", dir,
	)

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	backend := clip.New()
	defer backend.Close()
	slog.Info("clipboard backend ready", "backend", backend.Name())

	h := hub.New()
	sweeper := retention.New(st)

	eng, err := monitor.New(st, backend, h, imageDir)
	if err != nil {
		return fmt.Errorf("starting monitor: %w", err)
	}

	// IPC socket for the CLI tools and GUI subscribers
	srv := ipcserver.New(st, h, backend, sweeper, Version)
	ipcLn, err := ipc.Listen()
	if err != nil {
		slog.Warn("IPC socket unavailable", "err", err)
	} else {
		slog.Info("IPC socket listening", "path", ipc.SocketPath())
		go srv.Serve(ipcLn)
		defer ipcLn.Close()
	}

	// Daily retention sweep; also runs once at startup to catch up after
	// the machine was off at the scheduled time.
	autoClean(settingsPath, sweeper, h)
	cr := cron.New()
	if _, err := cr.AddFunc("@daily", func() { autoClean(settingsPath, sweeper, h) }); err != nil {
		return fmt.Errorf("scheduling auto-clean: %w", err)
	}
	cr.Start()
	defer cr.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng.Run(ctx)
	slog.Info("clipbook daemon stopped")
	return nil
}

// autoClean sweeps old entries when auto-clean is enabled and has not run
// yet today. last_clean_date in settings.json tracks the last run.
func autoClean(settingsPath string, sweeper *retention.Sweeper, h *hub.Hub) {
	s, err := settings.Load(settingsPath)
	if err != nil {
		slog.Warn("settings unreadable, skipping auto-clean", "err", err)
		return
	}
	if !s.AutoCleanEnabled {
		return
	}
	today := time.Now().Format("2006-01-02")
	if s.LastCleanDate == today {
		return
	}

	deleted, err := sweeper.Sweep(s.AutoCleanDays)
	if err != nil {
		slog.Error("auto-clean failed", "err", err)
		return
	}
	if deleted > 0 {
		h.FullRefresh()
	}

	s.LastCleanDate = today
	if err := settings.Save(settingsPath, s); err != nil {
		slog.Warn("recording auto-clean date failed", "err", err)
	}
}

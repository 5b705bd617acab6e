// Command taskhubd is the taskhub server daemon.
// It wires the SQLite stores, the event bus, the task lifecycle service, and
// the HTTP server from a YAML config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/xwindash/taskhub/config"
	"github.com/xwindash/taskhub/events"
	"github.com/xwindash/taskhub/internal/version"
	"github.com/xwindash/taskhub/project"
	"github.com/xwindash/taskhub/server"
	"github.com/xwindash/taskhub/task"
)

var configPath = flag.String("config", "taskhub.yaml", "path to config file")

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if _, err := os.Stat(*configPath); err == nil {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("starting taskhubd",
		"version", version.Version,
		"commit", version.Commit,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir %s: %v", cfg.DataDir, err)
	}

	taskStore, err := task.NewSQLiteStore(filepath.Join(cfg.DataDir, "tasks.db"))
	if err != nil {
		log.Fatalf("Failed to open task store: %v", err)
	}
	defer taskStore.Close()

	projectStore, err := project.NewSQLiteStore(filepath.Join(cfg.DataDir, "projects.db"))
	if err != nil {
		log.Fatalf("Failed to open project store: %v", err)
	}
	defer projectStore.Close()

	bus := events.NewInMemoryBus()

	svc := task.NewService(taskStore, projectStore, bus, logger)
	svc.SetDueSoonDays(cfg.Tasks.DueSoonDays)

	srv := server.New(*cfg, version.Version, logger)
	srv.SetTaskService(svc)
	srv.SetProjectStore(projectStore)
	srv.SetBus(bus)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Printf("taskhub server running on %s\n", cfg.Server.Addr)
	fmt.Printf("Version: %s (%s)\n", version.Version, version.Commit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	case <-sigCh:
	}

	fmt.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("server stop error", "error", err)
	}
	fmt.Println("Shutdown complete")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

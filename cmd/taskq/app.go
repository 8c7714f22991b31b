// Command taskq is the CLI front-end binding cobra verbs to the
// taskq engine: enqueue, worker lifecycle, status/metrics, listing,
// cancellation, and DLQ/config management. Grounded on the CLI
// example repos' flag and subcommand layout, adapted to cobra (the
// convention the rest of the retrieved CLI pack uses) and to taskq's
// file-backed store.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/taskq-dev/taskq/config"
	"github.com/taskq-dev/taskq/dlq"
	"github.com/taskq-dev/taskq/observability"
	"github.com/taskq-dev/taskq/runner"
	"github.com/taskq-dev/taskq/store"
	"github.com/taskq-dev/taskq/worker"
)

// app bundles the dependencies every CLI verb needs. It is
// constructed once in main and threaded through via the root
// command's context-free closures.
type app struct {
	dataDir string
	store   store.Store
	cfg     *config.Store
	dlq     *dlq.Service
	logger  *slog.Logger
}

func newApp() (*app, error) {
	dataDir := os.Getenv("DATA_PATH")
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	cfgStore, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}

	s := store.NewFile(dataDir)

	return &app{
		dataDir: dataDir,
		store:   s,
		cfg:     cfgStore,
		dlq:     dlq.NewService(s),
		logger:  logger,
	}, nil
}

func (a *app) workerStatusPath() string {
	return filepath.Join(a.dataDir, "worker.status")
}

// newPool builds a worker.Pool wired to this app's store and config.
func (a *app) newPool(count int) *worker.Pool {
	backoffBase, err := a.cfg.Get(config.KeyBackoffBase)
	if err != nil {
		backoffBase = config.DefaultBackoffBase
	}
	return worker.New(a.store, runner.New(), observability.New(), a.logger, count, backoffBase)
}

func logLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

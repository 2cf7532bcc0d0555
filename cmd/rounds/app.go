package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/palliative-rounds/rounds/internal/config"
	"github.com/palliative-rounds/rounds/internal/remote"
	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/snapshot"
	"github.com/palliative-rounds/rounds/internal/storage"
	"github.com/palliative-rounds/rounds/internal/store"
	"github.com/palliative-rounds/rounds/internal/sync"
)

// app bundles everything a command needs: resolved config, the local store,
// and lazily constructed sync plumbing.
type app struct {
	cfg     *config.Config
	backend storage.Store
	store   *store.LocalStore
	logger  *log.Logger
}

// openApp loads config, opens the storage backend, and restores the store.
// Callers must defer a.close().
func openApp(prefix string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	logger := log.New(os.Stderr, prefix, log.LstdFlags)
	st := store.New(backend, logger)
	if err := st.Restore(cfg.Seed); err != nil {
		backend.Close()
		return nil, err
	}
	return &app{cfg: cfg, backend: backend, store: st, logger: logger}, nil
}

func (a *app) close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Printf("close backend: %v", err)
	}
}

func openBackend(cfg *config.Config) (storage.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return storage.OpenSQLite(filepath.Join(cfg.DataDir, "rounds.db"), schema.StorageNamespace)
	default:
		return storage.OpenJSONFile(cfg.DataDir, schema.StorageNamespace)
	}
}

// newSyncer builds the remote client and syncer from config. The returned
// cleanup closes the transport; call it when syncing is done. Fails when no
// remote is configured.
func (a *app) newSyncer(ctx context.Context) (*sync.Syncer, func(), error) {
	if a.cfg.RemoteURL == "" {
		return nil, nil, fmt.Errorf("no remote configured; set remote_url or ROUNDS_REMOTE_URL")
	}

	var (
		rem     sync.RemoteStore
		cleanup = func() {}
	)
	switch a.cfg.RemoteTransport {
	case "ws":
		client, err := remote.DialWS(ctx, wsURL(a.cfg.RemoteURL))
		if err != nil {
			return nil, nil, err
		}
		rem = client
		cleanup = func() { _ = client.Close() }
	default:
		rem = remote.NewHTTPClient(a.cfg.RemoteURL)
	}

	snap := snapshot.NewCache(a.backend)
	syncer := sync.New(rem, a.store, snap, a.logger, sync.Options{
		DeleteDetection: a.cfg.DeleteDetection,
	})
	return syncer, cleanup, nil
}

// wsURL converts a server base URL into the websocket endpoint.
func wsURL(base string) string {
	u := base
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	if !strings.HasSuffix(u, "/ws") {
		u = strings.TrimRight(u, "/") + "/ws"
	}
	return u
}

// daemonLogger returns the engine logger, routed through lumberjack when a
// log file is configured.
func (a *app) daemonLogger() *log.Logger {
	if a.cfg.LogFile == "" {
		return log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   a.cfg.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}, "[daemon] ", log.LstdFlags)
}

package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/palliative-rounds/rounds/internal/config"
	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/server"
	"github.com/palliative-rounds/rounds/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync server",
	Long: `Run the server the daemons sync against. Records are stored in a
SQLite database under the data directory and served over HTTP and a
websocket endpoint at /ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if dataDirFlag != "" {
			cfg.DataDir = dataDirFlag
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return err
		}

		backend, err := storage.OpenSQLite(filepath.Join(cfg.DataDir, "server.db"), schema.StorageNamespace)
		if err != nil {
			return err
		}
		defer backend.Close()

		logger := log.New(os.Stderr, "[serve] ", log.LstdFlags)
		srv, err := server.New(backend, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, cfg.ListenAddr)
	},
}

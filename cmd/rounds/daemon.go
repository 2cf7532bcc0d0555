package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/palliative-rounds/rounds/internal/daemon"
	"github.com/palliative-rounds/rounds/internal/storage"
	"github.com/palliative-rounds/rounds/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the autosync daemon",
	Long: `Run the background sync loop in the foreground.

The daemon watches the local roster for changes, pushes them to the remote
after a short debounce, and periodically pulls remote changes in. With the
JSON backend it also watches the data directory, so edits made by another
process on the same machine are picked up and synced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[daemon] ")
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		syncer, cleanup, err := a.newSyncer(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		logger := a.daemonLogger()
		engine := daemon.New(syncer, a.store, &daemon.Config{
			Debounce:     a.cfg.Debounce,
			PullInterval: a.cfg.PullInterval,
			Logger:       logger,
			OnStateChange: func(s daemon.State) {
				fmt.Printf("\r%s ", ui.StatusBadge(s))
			},
		})

		// With file-backed storage, watch for writes from other processes
		// sharing the data directory.
		if js, ok := a.backend.(*storage.JSONFileStore); ok {
			fw, err := daemon.NewFileWatcher()
			if err != nil {
				return err
			}
			if err := fw.Start(js.Dir()); err != nil {
				return err
			}
			defer fw.Stop()

			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case ev, ok := <-fw.Events():
						if !ok {
							return
						}
						logger.Printf("External change to %s, reloading", ev.Collection)
						if err := a.store.Reload(); err != nil {
							logger.Printf("Reload failed: %v", err)
						}
					case err, ok := <-fw.Errors():
						if !ok {
							return
						}
						logger.Printf("Watcher error: %v", err)
					}
				}
			}()
		}

		return engine.Start(ctx)
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/palliative-rounds/rounds/internal/loadtest"
	"github.com/palliative-rounds/rounds/internal/remote"
)

var (
	benchDevices int
	benchCalls   int
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load-test the configured sync server",
	Long: `Simulate concurrent devices saving and listing patients against the
configured remote and report latency percentiles. Synthetic records use
fixed ids, so repeated runs upsert instead of growing the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[bench] ")
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.RemoteURL == "" {
			return fmt.Errorf("no remote configured; set remote_url or ROUNDS_REMOTE_URL")
		}
		client := remote.NewHTTPClient(a.cfg.RemoteURL)

		fmt.Printf("Benchmarking %s with %d devices x %d calls...\n",
			a.cfg.RemoteURL, benchDevices, benchCalls)
		stats, err := loadtest.Run(cmd.Context(), client, loadtest.Options{
			Devices:        benchDevices,
			CallsPerDevice: benchCalls,
		})
		if err != nil {
			return err
		}
		stats.PrintStats()
		return nil
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchDevices, "devices", 10, "concurrent simulated devices")
	benchCmd.Flags().IntVar(&benchCalls, "calls", 20, "save+list pairs per device")

	rootCmd.AddCommand(benchCmd)
}

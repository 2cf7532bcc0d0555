// Command rounds manages a clinical rounding roster: local-first patient
// records with background sync to a shared server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	dataDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "rounds",
	Short: "Clinical rounding roster with local-first sync",
	Long: `rounds keeps a palliative care rounding roster on local storage and
syncs it in the background to a shared server.

All edits land locally first and survive offline use; the autosync daemon
pushes changes after a short debounce and merges remote edits in under a
last-writer-wins rule.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/rounds/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "override data directory")

	rootCmd.AddCommand(patientCmd)
	rootCmd.AddCommand(reminderCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

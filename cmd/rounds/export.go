package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/palliative-rounds/rounds/internal/report"
)

var (
	exportFormat  string
	exportSection string
	importMode    string
	importSection string
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the roster",
	Long: `Export the roster to a file. The format follows --format:

  csv   one row per patient with the standard hospital columns
  json  full state, suitable for rounds import
  pdf   printable round sheet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[rounds] ")
		if err != nil {
			return err
		}
		defer a.close()

		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		patients := a.store.Patients()
		if exportSection != "" {
			patients = a.store.PatientsInSection(exportSection)
		}

		switch exportFormat {
		case "csv":
			err = report.WriteCSV(f, patients)
		case "json":
			err = report.ExportJSON(f, a.store.State())
		case "pdf":
			title := fmt.Sprintf("Rounds %s", time.Now().Format("2006-01-02"))
			err = report.WritePDF(f, title, patients)
		default:
			err = fmt.Errorf("unknown format %q (want csv, json, or pdf)", exportFormat)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a JSON export or a census CSV",
	Long: `Import a document produced by rounds export --format json, or a
hospital census CSV whose header matches the standard bio columns. CSV rows
become new patients in the target section.

Without --mode, an interactive prompt asks whether to merge a JSON document
into the current roster or replace the roster with it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[rounds] ")
		if err != nil {
			return err
		}
		defer a.close()

		if strings.EqualFold(filepath.Ext(args[0]), ".csv") {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			section := importSection
			if section == "" {
				section = a.cfg.DefaultSection
			}
			added, err := report.ImportCSV(f, a.store, section)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d patients into section %s\n", added, section)
			return nil
		}

		mode := importMode
		if mode == "" {
			form := huh.NewForm(huh.NewGroup(
				huh.NewSelect[string]().
					Title("How should the import combine with the current roster?").
					Options(
						huh.NewOption("Merge (newer record wins)", "merge"),
						huh.NewOption("Replace the whole roster", "replace"),
					).
					Value(&mode),
			))
			if err := form.Run(); err != nil {
				return err
			}
		}

		var m report.ImportMode
		switch mode {
		case "merge":
			m = report.ImportMerge
		case "replace":
			m = report.ImportReplace
		default:
			return fmt.Errorf("unknown mode %q (want merge or replace)", mode)
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		if err := report.ImportJSON(f, a.store, m); err != nil {
			return err
		}
		fmt.Printf("Imported %s (%s), roster now has %d patients\n",
			args[0], mode, len(a.store.Patients()))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "export format: csv, json, or pdf")
	exportCmd.Flags().StringVarP(&exportSection, "section", "s", "", "limit csv/pdf export to one section")

	importCmd.Flags().StringVarP(&importMode, "mode", "m", "", "merge or replace for JSON (prompts when omitted)")
	importCmd.Flags().StringVarP(&importSection, "section", "s", "", "section for patients imported from CSV")
}

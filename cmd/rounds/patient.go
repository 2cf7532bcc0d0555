package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/ui"
)

var patientCmd = &cobra.Command{
	Use:   "patient",
	Short: "Manage the patient roster",
}

var (
	patientSection string
	patientSearch  string
	patientName    string
	patientRoom    string
	patientCode    string
	patientCause   string
	patientNotes   string
)

var patientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patients in a section",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[rounds] ")
		if err != nil {
			return err
		}
		defer a.close()

		section := patientSection
		if section == "" {
			section = a.cfg.DefaultSection
		}

		patients := a.store.Search(section, patientSearch)
		for _, p := range patients {
			fmt.Println(ui.PatientLine(p))
		}
		done, total := a.store.Progress(section)
		fmt.Println(ui.ProgressLine(section, done, total))
		return nil
	},
}

var patientAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a patient",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[rounds] ")
		if err != nil {
			return err
		}
		defer a.close()

		section := patientSection
		if section == "" {
			section = a.cfg.DefaultSection
		}

		p := schema.Patient{
			Section: schema.Text(section),
			Bio: map[string]schema.Text{
				"Patient Name":       schema.Text(patientName),
				"Room":               schema.Text(patientRoom),
				"Patient Code":       schema.Text(patientCode),
				"Cause Of Admission": schema.Text(patientCause),
			},
			LatestNotes: schema.Text(patientNotes),
		}
		id := a.store.AddPatient(p)
		fmt.Printf("Added patient %s\n", id)
		return nil
	},
}

var patientDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a patient as seen on this round",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPatientDone(args[0], true)
	},
}

var patientUndoneCmd = &cobra.Command{
	Use:   "undone <id>",
	Short: "Mark a patient as not yet seen",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPatientDone(args[0], false)
	},
}

func setPatientDone(id string, done bool) error {
	a, err := openApp("[rounds] ")
	if err != nil {
		return err
	}
	defer a.close()

	if !a.store.UpdatePatient(id, schema.PatientPatch{Done: &done}) {
		return fmt.Errorf("no patient with id %s", id)
	}
	p, _ := a.store.PatientByID(id)
	fmt.Println(ui.PatientLine(p))
	return nil
}

var patientRemoveCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a patient and their reminders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[rounds] ")
		if err != nil {
			return err
		}
		defer a.close()

		removed, ok := a.store.RemovePatient(args[0])
		if !ok {
			return fmt.Errorf("no patient with id %s", args[0])
		}
		name := removed.Name()
		if name == "" {
			name = removed.ID
		}
		fmt.Printf("Removed %s\n", name)
		return nil
	},
}

var patientShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a patient's full record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[rounds] ")
		if err != nil {
			return err
		}
		defer a.close()

		p, ok := a.store.PatientByID(args[0])
		if !ok {
			return fmt.Errorf("no patient with id %s", args[0])
		}

		fmt.Println(ui.PatientLine(p))
		for _, col := range schema.HospitalHeaders {
			if v := string(p.Bio[col]); v != "" {
				fmt.Printf("  %-22s %s\n", col+":", v)
			}
		}
		for _, field := range schema.ESASFields {
			if score := p.ESAS[field]; score.Answered() {
				fmt.Printf("  ESAS %-17s %d\n", field+":", int(score))
			}
		}
		if v := string(p.LatestNotes); v != "" {
			fmt.Printf("  Notes: %s\n", v)
		}
		for _, r := range a.store.RemindersForPatient(p.ID) {
			mark := " "
			if bool(r.Done) {
				mark = "x"
			}
			fmt.Printf("  [%s] %s\n", mark, r.Text)
		}
		return nil
	},
}

func init() {
	patientListCmd.Flags().StringVarP(&patientSection, "section", "s", "", "section to list")
	patientListCmd.Flags().StringVarP(&patientSearch, "search", "q", "", "filter by name, room, code, or notes")

	patientAddCmd.Flags().StringVarP(&patientSection, "section", "s", "", "section for the new patient")
	patientAddCmd.Flags().StringVar(&patientName, "name", "", "patient name")
	patientAddCmd.Flags().StringVar(&patientRoom, "room", "", "room")
	patientAddCmd.Flags().StringVar(&patientCode, "code", "", "patient code")
	patientAddCmd.Flags().StringVar(&patientCause, "cause", "", "cause of admission")
	patientAddCmd.Flags().StringVar(&patientNotes, "notes", "", "initial notes")

	patientCmd.AddCommand(patientListCmd)
	patientCmd.AddCommand(patientAddCmd)
	patientCmd.AddCommand(patientDoneCmd)
	patientCmd.AddCommand(patientUndoneCmd)
	patientCmd.AddCommand(patientRemoveCmd)
	patientCmd.AddCommand(patientShowCmd)
}

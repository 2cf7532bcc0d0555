package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/palliative-rounds/rounds/internal/schema"
)

var reminderCmd = &cobra.Command{
	Use:   "reminder",
	Short: "Manage reminders",
}

var (
	reminderFor string
	reminderAt  string
)

var reminderAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a reminder",
	Long: `Add a free-text reminder, optionally tied to a patient and a due time.

The --at flag accepts natural language, e.g. "tomorrow at 9am" or
"in 2 hours".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[rounds] ")
		if err != nil {
			return err
		}
		defer a.close()

		rem := schema.NewReminder(args[0], reminderFor)
		if reminderAt != "" {
			due, err := parseDue(reminderAt)
			if err != nil {
				return err
			}
			rem.DueAt = schema.Text(due.Format(schema.StampLayout))
		}
		id := a.store.AddReminder(rem)
		fmt.Printf("Added reminder %s\n", id)
		return nil
	},
}

// parseDue turns natural language into a concrete time.
func parseDue(text string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse due time %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand due time %q", text)
	}
	return r.Time, nil
}

var reminderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminders, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[rounds] ")
		if err != nil {
			return err
		}
		defer a.close()

		for _, r := range a.store.Reminders() {
			mark := " "
			if bool(r.Done) {
				mark = "x"
			}
			line := fmt.Sprintf("[%s] %-40s %s", mark, r.Text, r.ID)
			if r.DueAt != "" {
				line += "  due " + string(r.DueAt)
			}
			if r.ForPatientID != "" {
				if p, ok := a.store.PatientByID(string(r.ForPatientID)); ok {
					line += "  for " + p.Name()
				}
			}
			fmt.Println(line)
		}
		return nil
	},
}

var reminderDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a reminder done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[rounds] ")
		if err != nil {
			return err
		}
		defer a.close()

		if !a.store.SetReminderDone(args[0], true) {
			return fmt.Errorf("no reminder with id %s", args[0])
		}
		return nil
	},
}

var reminderRemoveCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp("[rounds] ")
		if err != nil {
			return err
		}
		defer a.close()

		if !a.store.RemoveReminder(args[0]) {
			return fmt.Errorf("no reminder with id %s", args[0])
		}
		return nil
	},
}

func init() {
	reminderAddCmd.Flags().StringVar(&reminderFor, "for", "", "patient id the reminder belongs to")
	reminderAddCmd.Flags().StringVar(&reminderAt, "at", "", "due time in natural language")

	reminderCmd.AddCommand(reminderAddCmd)
	reminderCmd.AddCommand(reminderListCmd)
	reminderCmd.AddCommand(reminderDoneCmd)
	reminderCmd.AddCommand(reminderRemoveCmd)
}

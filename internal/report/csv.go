// Package report renders the roster for exchange and handoff: CSV for
// spreadsheets, JSON for backup and transfer, PDF for a printable round
// sheet.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/store"
)

// WriteCSV writes one row per patient with the standard hospital columns,
// followed by section and done status.
func WriteCSV(w io.Writer, patients []schema.Patient) error {
	cw := csv.NewWriter(w)

	header := append([]string{}, schema.HospitalHeaders...)
	header = append(header, "Section", "Done", "Updated At")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range patients {
		row := make([]string, 0, len(header))
		for _, col := range schema.HospitalHeaders {
			row = append(row, string(p.Bio[col]))
		}
		done := "no"
		if bool(p.Done) {
			done = "yes"
		}
		row = append(row, string(p.Section), done, string(p.UpdatedAt))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", p.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ImportCSV reads a hospital census export and adds one patient per row
// through the store, so ids, timestamps, and change events come from the
// usual path. Only bio columns are taken from the file; column order does
// not matter and unknown columns are ignored. Returns the number of
// patients added.
func ImportCSV(r io.Reader, st *store.LocalStore, section string) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}

	// Map known bio columns to their positions in this file.
	cols := map[int]string{}
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		for _, want := range schema.HospitalHeaders {
			if strings.EqualFold(name, want) {
				cols[i] = want
			}
		}
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("no recognized columns in csv header %v", header)
	}

	added := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, fmt.Errorf("read csv row: %w", err)
		}

		bio := map[string]schema.Text{}
		for i, cell := range row {
			if name, ok := cols[i]; ok {
				bio[name] = schema.Text(strings.TrimSpace(cell))
			}
		}
		if bio["Patient Name"] == "" && bio["Patient Code"] == "" {
			continue
		}

		st.AddPatient(schema.Patient{
			Section: schema.Text(section),
			Bio:     bio,
		})
		added++
	}
	return added, nil
}

package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/store"
	"github.com/palliative-rounds/rounds/internal/sync"
)

// ExportJSON writes the full state as an indented JSON document.
func ExportJSON(w io.Writer, st schema.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// ImportMode selects how an imported document combines with current state.
type ImportMode int

const (
	// ImportMerge folds the document in under the usual sync rules: newer
	// patient wins, reminders union, non-empty imported prefs win.
	ImportMerge ImportMode = iota
	// ImportReplace discards current state in favor of the document.
	ImportReplace
)

// ImportJSON reads a document produced by ExportJSON and applies it to the
// store.
func ImportJSON(r io.Reader, st *store.LocalStore, mode ImportMode) error {
	var doc schema.State
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("decode import: %w", err)
	}
	doc = schema.NormalizeState(doc)

	switch mode {
	case ImportReplace:
		st.ReplaceCollections(doc, schema.Collections...)
	case ImportMerge:
		current := st.State()
		merged := schema.State{
			Patients:  sync.MergePatients(current.Patients, doc.Patients),
			Reminders: sync.MergeReminders(current.Reminders, doc.Reminders),
			Settings:  sync.MergePrefs(current.Settings, doc.Settings),
			UI:        sync.MergePrefs(current.UI, doc.UI),
		}
		st.ReplaceCollections(merged, schema.Collections...)
	default:
		return fmt.Errorf("unknown import mode %d", mode)
	}
	return nil
}

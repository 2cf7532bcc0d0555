package sync

import (
	"encoding/json"

	"github.com/palliative-rounds/rounds/internal/schema"
)

// PatientDiff lists what a push must send and delete for the patients
// collection, relative to the last-push baseline.
type PatientDiff struct {
	Upserts []schema.Patient
	Deletes []string
}

// ReminderDiff is the reminder counterpart of PatientDiff.
type ReminderDiff struct {
	Upserts []schema.Reminder
	Deletes []string
}

// DiffPatients compares current local patients against the baseline. A
// record is dirty when the baseline has no entry for its id, or when its
// updatedAt is strictly newer than the baseline's. Ids present in the
// baseline but gone locally become deletes.
func DiffPatients(local, baseline []schema.Patient) PatientDiff {
	base := make(map[string]schema.Patient, len(baseline))
	for _, b := range baseline {
		base[b.ID] = b
	}

	var d PatientDiff
	current := make(map[string]bool, len(local))
	for _, p := range local {
		current[p.ID] = true
		b, ok := base[p.ID]
		if !ok || schema.StampAfter(p.UpdatedAt, b.UpdatedAt) {
			d.Upserts = append(d.Upserts, p)
		}
	}
	for _, b := range baseline {
		if !current[b.ID] {
			d.Deletes = append(d.Deletes, b.ID)
		}
	}
	return d
}

// DiffReminders compares reminders against the baseline. Reminders have no
// updatedAt, so dirtiness falls back to createdAt, then to structural
// comparison of the serialized record (a done toggle changes the bytes).
func DiffReminders(local, baseline []schema.Reminder) ReminderDiff {
	base := make(map[string]schema.Reminder, len(baseline))
	for _, b := range baseline {
		base[b.ID] = b
	}

	var d ReminderDiff
	current := make(map[string]bool, len(local))
	for _, r := range local {
		current[r.ID] = true
		b, ok := base[r.ID]
		if !ok || schema.StampAfter(r.CreatedAt, b.CreatedAt) || !sameReminder(r, b) {
			d.Upserts = append(d.Upserts, r)
		}
	}
	for _, b := range baseline {
		if !current[b.ID] {
			d.Deletes = append(d.Deletes, b.ID)
		}
	}
	return d
}

func sameReminder(a, b schema.Reminder) bool {
	ab, aerr := json.Marshal(a)
	bb, berr := json.Marshal(b)
	if aerr != nil || berr != nil {
		return false
	}
	return string(ab) == string(bb)
}

// PrefsDirty reports whether any preference key differs from the baseline.
func PrefsDirty(local, baseline schema.Prefs) bool {
	if len(local) != len(baseline) {
		return true
	}
	for k, v := range local {
		if baseline[k] != v {
			return true
		}
	}
	return false
}

package sync

import (
	"strings"

	"github.com/palliative-rounds/rounds/internal/schema"
)

// MergePatients combines local and remote rosters record by record. For ids
// present on both sides, the record with the strictly newer updatedAt wins;
// on equal or unparseable stamps the local copy wins, so a flaky clock never
// silently discards unsaved local work. Output preserves local order, with
// remote-only records appended in remote order.
func MergePatients(local, remote []schema.Patient) []schema.Patient {
	remoteByID := make(map[string]schema.Patient, len(remote))
	for _, r := range remote {
		if r.ID == "" {
			continue
		}
		remoteByID[r.ID] = r
	}

	out := make([]schema.Patient, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(local))
	for _, l := range local {
		seen[l.ID] = true
		r, ok := remoteByID[l.ID]
		if ok && schema.StampAfter(r.UpdatedAt, l.UpdatedAt) {
			out = append(out, schema.NormalizePatient(r))
			continue
		}
		out = append(out, schema.NormalizePatient(l))
	}
	for _, r := range remote {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		out = append(out, schema.NormalizePatient(r))
	}
	return out
}

// MergeReminders unions both sides by id. When an id exists on both sides
// the remote copy is kept. Reminders are small and append-mostly, so the
// occasional lost local toggle is an accepted cost of the simpler rule.
// Output order follows the patient rule: local first, remote-only appended.
func MergeReminders(local, remote []schema.Reminder) []schema.Reminder {
	remoteByID := make(map[string]schema.Reminder, len(remote))
	for _, r := range remote {
		if r.ID == "" {
			continue
		}
		remoteByID[r.ID] = r
	}

	out := make([]schema.Reminder, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(local))
	for _, l := range local {
		seen[l.ID] = true
		if r, ok := remoteByID[l.ID]; ok {
			out = append(out, schema.NormalizeReminder(r))
			continue
		}
		out = append(out, schema.NormalizeReminder(l))
	}
	for _, r := range remote {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		out = append(out, schema.NormalizeReminder(r))
	}
	return out
}

// MergePrefs merges preference maps field-wise. A remote value replaces the
// local one only when it is non-empty after trimming; blank remote values
// never blank out a local preference. Keys unknown to either side survive.
func MergePrefs(local, remote schema.Prefs) schema.Prefs {
	out := local.Clone()
	if out == nil {
		out = schema.Prefs{}
	}
	for k, v := range remote {
		if strings.TrimSpace(string(v)) == "" {
			continue
		}
		out[k] = v
	}
	return out
}

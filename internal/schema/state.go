package schema

import "encoding/json"

// Collection names the four synchronized record collections. The values
// double as durable storage keys.
type Collection string

const (
	ColPatients  Collection = "patients"
	ColReminders Collection = "reminders"
	ColSettings  Collection = "settings"
	ColUI        Collection = "ui"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{ColPatients, ColReminders, ColSettings, ColUI}

// State bundles the four collections. It is the unit the snapshot cache
// captures and the JSON export format.
type State struct {
	Patients  []Patient  `json:"patients"`
	Reminders []Reminder `json:"reminders"`
	Settings  Prefs      `json:"settings"`
	UI        Prefs      `json:"ui"`
}

// EmptyState returns a state with default settings/ui and no records.
func EmptyState() State {
	return State{
		Patients:  []Patient{},
		Reminders: []Reminder{},
		Settings:  DefaultSettings(),
		UI:        DefaultUI(),
	}
}

// NormalizeState runs every record through its normalizer. Total; a nil or
// partially populated state comes back complete.
func NormalizeState(s State) State {
	out := EmptyState()
	for _, p := range s.Patients {
		out.Patients = append(out.Patients, NormalizePatient(p))
	}
	for _, r := range s.Reminders {
		out.Reminders = append(out.Reminders, NormalizeReminder(r))
	}
	out.Settings = NormalizePrefs(out.Settings, s.Settings)
	out.UI = NormalizePrefs(out.UI, s.UI)
	return out
}

// Clone deep-copies the state via a JSON round trip. Record shapes are fully
// JSON-representable, so this cannot fail for normalized input; on the
// impossible marshal error an empty state is returned.
func (s State) Clone() State {
	data, err := json.Marshal(s)
	if err != nil {
		return EmptyState()
	}
	var out State
	if err := json.Unmarshal(data, &out); err != nil {
		return EmptyState()
	}
	return NormalizeState(out)
}

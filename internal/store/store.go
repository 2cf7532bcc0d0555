// Package store holds the in-memory roster state and keeps it mirrored to a
// storage backend. All reads and writes go through LocalStore; interested
// modules subscribe to its Bus rather than polling.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/storage"
)

// LocalStore is the authoritative copy of the roster while the process runs.
// Every mutation normalizes its input, updates memory first, persists the
// affected collection, and then emits change events. Persistence failures are
// logged and otherwise ignored; the in-memory state stays authoritative.
type LocalStore struct {
	mu      sync.Mutex
	backend storage.Store
	logger  *log.Logger
	bus     *Bus
	state   schema.State
}

// New returns a store backed by backend. Call Restore before first use.
func New(backend storage.Store, logger *log.Logger) *LocalStore {
	return &LocalStore{
		backend: backend,
		logger:  logger,
		bus:     NewBus(),
		state:   schema.EmptyState(),
	}
}

// Bus exposes the store's event bus for subscribers.
func (s *LocalStore) Bus() *Bus { return s.bus }

// Restore loads all collections from the backend into memory, normalizing as
// it goes. Malformed or missing payloads fall back to empty defaults; a
// corrupt collection never aborts startup. When seed is true and no patients
// were loaded, the bundled demo roster is written in. Emits EventRestored.
func (s *LocalStore) Restore(seed bool) error {
	s.mu.Lock()

	st := schema.EmptyState()
	s.loadCollection(schema.ColPatients, &st.Patients)
	s.loadCollection(schema.ColReminders, &st.Reminders)
	s.loadCollection(schema.ColSettings, &st.Settings)
	s.loadCollection(schema.ColUI, &st.UI)
	s.state = schema.NormalizeState(st)

	seeded := false
	if seed && len(s.state.Patients) == 0 {
		demo, err := DemoPatients()
		if err != nil {
			s.logger.Printf("demo seed unavailable: %v", err)
		} else {
			s.state.Patients = demo
			s.persist(schema.ColPatients)
			seeded = true
		}
	}
	s.mu.Unlock()

	s.bus.Emit(EventRestored, nil)
	if seeded {
		s.bus.Emit(EventPatientsChanged, s.Patients())
	}
	return nil
}

// Reload re-reads every collection from the backend, replacing memory. Used
// when another process may have written the files underneath us.
func (s *LocalStore) Reload() error {
	if err := s.Restore(false); err != nil {
		return err
	}
	s.bus.Emit(EventPatientsChanged, s.Patients())
	s.bus.Emit(EventRemindersChanged, s.Reminders())
	s.bus.Emit(EventSettingsChanged, s.Settings())
	s.bus.Emit(EventUIChanged, s.UI())
	return nil
}

func (s *LocalStore) loadCollection(col schema.Collection, dst any) {
	data, ok, err := s.backend.Get(string(col))
	if err != nil {
		s.logger.Printf("load %s: %v", col, err)
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Printf("load %s: discarding malformed payload: %v", col, err)
	}
}

// persist writes one collection to the backend. Caller holds the lock.
func (s *LocalStore) persist(col schema.Collection) {
	var v any
	switch col {
	case schema.ColPatients:
		v = s.state.Patients
	case schema.ColReminders:
		v = s.state.Reminders
	case schema.ColSettings:
		v = s.state.Settings
	case schema.ColUI:
		v = s.state.UI
	default:
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Printf("persist %s: %v", col, err)
		return
	}
	if err := s.backend.Put(string(col), data); err != nil {
		s.logger.Printf("persist %s: %v", col, err)
	}
}

// PersistAll writes every collection to the backend.
func (s *LocalStore) PersistAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, col := range schema.Collections {
		s.persist(col)
	}
}

// State returns a deep copy of the whole state.
func (s *LocalStore) State() schema.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// ---- patients ----------------------------------------------------------

// AddPatient inserts a new patient built from partial and returns its id.
// Missing fields are filled with blanks and the record is stamped now.
func (s *LocalStore) AddPatient(partial schema.Patient) string {
	s.mu.Lock()
	p := schema.NewPatient(partial)
	s.state.Patients = append(s.state.Patients, p)
	s.persist(schema.ColPatients)
	patients := clonePatients(s.state.Patients)
	s.mu.Unlock()

	s.bus.Emit(EventPatientsChanged, patients)
	return p.ID
}

// UpdatePatient deep-merges patch into the patient with the given id, stamps
// its updatedAt, and reports whether the id was found.
func (s *LocalStore) UpdatePatient(id string, patch schema.PatientPatch) bool {
	s.mu.Lock()
	idx := s.indexOfPatient(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	p := schema.ApplyPatch(s.state.Patients[idx], patch)
	p.UpdatedAt = schema.NowStamp()
	s.state.Patients[idx] = p
	s.persist(schema.ColPatients)
	patients := clonePatients(s.state.Patients)
	s.mu.Unlock()

	s.bus.Emit(EventPatientUpdated, p)
	s.bus.Emit(EventPatientsChanged, patients)
	return true
}

// RemovePatient deletes the patient and any reminders attached to it. It
// returns the removed record so callers can report what went away.
func (s *LocalStore) RemovePatient(id string) (schema.Patient, bool) {
	s.mu.Lock()
	idx := s.indexOfPatient(id)
	if idx < 0 {
		s.mu.Unlock()
		return schema.Patient{}, false
	}
	removed := s.state.Patients[idx]
	s.state.Patients = append(s.state.Patients[:idx], s.state.Patients[idx+1:]...)
	s.persist(schema.ColPatients)

	kept := s.state.Reminders[:0]
	dropped := 0
	for _, r := range s.state.Reminders {
		if string(r.ForPatientID) == id {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	s.state.Reminders = kept
	if dropped > 0 {
		s.persist(schema.ColReminders)
	}

	uiChanged := false
	if string(s.state.UI[schema.PrefCurrentPatientID]) == id {
		s.state.UI[schema.PrefCurrentPatientID] = ""
		s.persist(schema.ColUI)
		uiChanged = true
	}

	patients := clonePatients(s.state.Patients)
	reminders := cloneReminders(s.state.Reminders)
	ui := s.state.UI.Clone()
	s.mu.Unlock()

	s.bus.Emit(EventPatientsChanged, patients)
	if dropped > 0 {
		s.bus.Emit(EventRemindersChanged, reminders)
	}
	if uiChanged {
		s.bus.Emit(EventUIChanged, ui)
	}
	return removed, true
}

// PatientByID returns a copy of the patient with the given id.
func (s *LocalStore) PatientByID(id string) (schema.Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOfPatient(id)
	if idx < 0 {
		return schema.Patient{}, false
	}
	return clonePatient(s.state.Patients[idx]), true
}

// Patients returns a copy of all patients in roster order.
func (s *LocalStore) Patients() []schema.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePatients(s.state.Patients)
}

// PatientsInSection returns copies of the patients assigned to section.
func (s *LocalStore) PatientsInSection(section string) []schema.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.Patient
	for _, p := range s.state.Patients {
		if string(p.Section) == section {
			out = append(out, clonePatient(p))
		}
	}
	return out
}

// Search returns the patients in section whose searchable text contains
// query, case-insensitively. An empty query matches everything.
func (s *LocalStore) Search(section, query string) []schema.Patient {
	query = strings.ToLower(strings.TrimSpace(query))
	patients := s.PatientsInSection(section)
	if query == "" {
		return patients
	}
	out := patients[:0]
	for _, p := range patients {
		if strings.Contains(strings.ToLower(p.SearchBlob()), query) {
			out = append(out, p)
		}
	}
	return out
}

// Progress reports how many patients in section are done, out of how many.
func (s *LocalStore) Progress(section string) (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.state.Patients {
		if string(p.Section) != section {
			continue
		}
		total++
		if bool(p.Done) {
			done++
		}
	}
	return done, total
}

func (s *LocalStore) indexOfPatient(id string) int {
	for i, p := range s.state.Patients {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// ---- reminders ---------------------------------------------------------

// AddReminder inserts rem, filling id and createdAt when absent, and returns
// the id.
func (s *LocalStore) AddReminder(rem schema.Reminder) string {
	if rem.ID == "" {
		rem.ID = schema.NewID("rem")
	}
	rem = schema.NormalizeReminder(rem)

	s.mu.Lock()
	s.state.Reminders = append(s.state.Reminders, rem)
	s.persist(schema.ColReminders)
	reminders := cloneReminders(s.state.Reminders)
	s.mu.Unlock()

	s.bus.Emit(EventRemindersChanged, reminders)
	return rem.ID
}

// SetReminderDone marks the reminder done or not done.
func (s *LocalStore) SetReminderDone(id string, done bool) bool {
	s.mu.Lock()
	idx := -1
	for i, r := range s.state.Reminders {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.state.Reminders[idx].Done = schema.Flag(done)
	s.persist(schema.ColReminders)
	reminders := cloneReminders(s.state.Reminders)
	s.mu.Unlock()

	s.bus.Emit(EventRemindersChanged, reminders)
	return true
}

// RemoveReminder deletes the reminder with the given id.
func (s *LocalStore) RemoveReminder(id string) bool {
	s.mu.Lock()
	idx := -1
	for i, r := range s.state.Reminders {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.state.Reminders = append(s.state.Reminders[:idx], s.state.Reminders[idx+1:]...)
	s.persist(schema.ColReminders)
	reminders := cloneReminders(s.state.Reminders)
	s.mu.Unlock()

	s.bus.Emit(EventRemindersChanged, reminders)
	return true
}

// Reminders returns a copy of all reminders, newest first by createdAt.
func (s *LocalStore) Reminders() []schema.Reminder {
	s.mu.Lock()
	out := cloneReminders(s.state.Reminders)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		return schema.StampAfter(out[i].CreatedAt, out[j].CreatedAt)
	})
	return out
}

// RemindersForPatient returns the reminders attached to the given patient.
func (s *LocalStore) RemindersForPatient(id string) []schema.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.Reminder
	for _, r := range s.state.Reminders {
		if string(r.ForPatientID) == id {
			out = append(out, r)
		}
	}
	return out
}

// ---- preferences -------------------------------------------------------

// Settings returns a copy of the settings map.
func (s *LocalStore) Settings() schema.Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings.Clone()
}

// UI returns a copy of the UI preference map.
func (s *LocalStore) UI() schema.Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UI.Clone()
}

// SetSetting stores one settings key and persists.
func (s *LocalStore) SetSetting(key string, value schema.Text) {
	s.mu.Lock()
	s.state.Settings[key] = value
	s.persist(schema.ColSettings)
	settings := s.state.Settings.Clone()
	s.mu.Unlock()

	s.bus.Emit(EventSettingsChanged, settings)
}

// SetUI stores one UI preference key and persists.
func (s *LocalStore) SetUI(key string, value schema.Text) {
	s.mu.Lock()
	s.state.UI[key] = value
	s.persist(schema.ColUI)
	ui := s.state.UI.Clone()
	s.mu.Unlock()

	s.bus.Emit(EventUIChanged, ui)
}

// ---- sync integration --------------------------------------------------

// ReplaceCollections swaps in merged collections produced by a sync pull,
// persists them, and emits the matching change events. Records arrive with
// their own updatedAt stamps and are stored as-is.
func (s *LocalStore) ReplaceCollections(st schema.State, cols ...schema.Collection) {
	st = schema.NormalizeState(st)

	s.mu.Lock()
	for _, col := range cols {
		switch col {
		case schema.ColPatients:
			s.state.Patients = st.Patients
		case schema.ColReminders:
			s.state.Reminders = st.Reminders
		case schema.ColSettings:
			s.state.Settings = st.Settings
		case schema.ColUI:
			s.state.UI = st.UI
		}
		s.persist(col)
	}
	snap := s.state.Clone()
	s.mu.Unlock()

	for _, col := range cols {
		switch col {
		case schema.ColPatients:
			s.bus.Emit(EventPatientsChanged, snap.Patients)
		case schema.ColReminders:
			s.bus.Emit(EventRemindersChanged, snap.Reminders)
		case schema.ColSettings:
			s.bus.Emit(EventSettingsChanged, snap.Settings)
		case schema.ColUI:
			s.bus.Emit(EventUIChanged, snap.UI)
		}
	}
}

// ---- helpers -----------------------------------------------------------

func clonePatient(p schema.Patient) schema.Patient {
	data, err := json.Marshal(p)
	if err != nil {
		return p
	}
	var out schema.Patient
	if err := json.Unmarshal(data, &out); err != nil {
		return p
	}
	return schema.NormalizePatient(out)
}

func clonePatients(in []schema.Patient) []schema.Patient {
	out := make([]schema.Patient, len(in))
	for i, p := range in {
		out[i] = clonePatient(p)
	}
	return out
}

func cloneReminders(in []schema.Reminder) []schema.Reminder {
	out := make([]schema.Reminder, len(in))
	copy(out, in)
	return out
}

// DescribePatient renders a short one-line summary for logs and CLI output.
func DescribePatient(p schema.Patient) string {
	name := p.Name()
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s [%s] section %s", name, p.ID, p.Section)
}

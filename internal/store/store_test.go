package store

import (
	"io"
	"log"
	"testing"

	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/storage"
)

func newTestStore(t *testing.T) (*LocalStore, *storage.MemoryStore) {
	t.Helper()
	backend := storage.NewMemory()
	s := New(backend, log.New(io.Discard, "", 0))
	if err := s.Restore(false); err != nil {
		t.Fatalf("restore: %v", err)
	}
	return s, backend
}

func TestAddAndUpdatePatient(t *testing.T) {
	s, _ := newTestStore(t)

	id := s.AddPatient(schema.Patient{
		Bio: map[string]schema.Text{"Patient Name": "Adel Hassan"},
	})
	p, ok := s.PatientByID(id)
	if !ok {
		t.Fatalf("patient %s not found after add", id)
	}
	if p.UpdatedAt == "" {
		t.Error("new patient missing updatedAt stamp")
	}
	if got := string(p.Section); got != schema.DefaultSection {
		t.Errorf("section = %q, want default %q", got, schema.DefaultSection)
	}

	if !s.UpdatePatient(id, schema.PatientPatch{
		Bio: map[string]schema.Text{"Room": "A-12"},
	}) {
		t.Fatal("update reported unknown id")
	}
	p, _ = s.PatientByID(id)
	if got := string(p.Bio["Room"]); got != "A-12" {
		t.Errorf("room = %q after patch", got)
	}
	if got := string(p.Bio["Patient Name"]); got != "Adel Hassan" {
		t.Errorf("patch clobbered untouched bio field: name = %q", got)
	}
	if p.UpdatedAt == "" {
		t.Error("update cleared updatedAt stamp")
	}

	if s.UpdatePatient("nope", schema.PatientPatch{}) {
		t.Error("update of unknown id reported success")
	}
}

func TestRemovePatientCascades(t *testing.T) {
	s, _ := newTestStore(t)

	id := s.AddPatient(schema.Patient{})
	other := s.AddPatient(schema.Patient{})
	s.AddReminder(schema.Reminder{Text: "check labs", ForPatientID: schema.Text(id)})
	keptID := s.AddReminder(schema.Reminder{Text: "family meeting", ForPatientID: schema.Text(other)})
	s.SetUI(schema.PrefCurrentPatientID, schema.Text(id))

	if _, ok := s.RemovePatient(id); !ok {
		t.Fatal("remove reported unknown id")
	}
	if _, ok := s.PatientByID(id); ok {
		t.Error("patient still present after remove")
	}
	rems := s.Reminders()
	if len(rems) != 1 || rems[0].ID != keptID {
		t.Errorf("cascade kept %d reminders, want only %s", len(rems), keptID)
	}
	if got := string(s.UI()[schema.PrefCurrentPatientID]); got != "" {
		t.Errorf("ui still points at removed patient: %q", got)
	}

	if _, ok := s.RemovePatient(id); ok {
		t.Error("second remove of same id reported success")
	}
}

func TestEventsFireAfterMutation(t *testing.T) {
	s, _ := newTestStore(t)

	var patientEvents, reminderEvents int
	s.Bus().On(EventPatientsChanged, func(any) { patientEvents++ })
	off := s.Bus().On(EventRemindersChanged, func(any) { reminderEvents++ })

	id := s.AddPatient(schema.Patient{})
	s.UpdatePatient(id, schema.PatientPatch{})
	s.AddReminder(schema.Reminder{Text: "call pharmacy"})

	if patientEvents != 2 {
		t.Errorf("patients:changed fired %d times, want 2", patientEvents)
	}
	if reminderEvents != 1 {
		t.Errorf("reminders:changed fired %d times, want 1", reminderEvents)
	}

	off()
	s.AddReminder(schema.Reminder{Text: "after unsubscribe"})
	if reminderEvents != 1 {
		t.Error("handler still invoked after unsubscribe")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	s, backend := newTestStore(t)
	id := s.AddPatient(schema.Patient{
		Bio: map[string]schema.Text{"Patient Name": "Mona Farid"},
	})
	s.AddReminder(schema.Reminder{Text: "renew order"})
	s.SetSetting(schema.PrefTheme, "dark")

	reopened := New(backend, log.New(io.Discard, "", 0))
	if err := reopened.Restore(false); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, ok := reopened.PatientByID(id); !ok {
		t.Error("patient lost across restore")
	}
	if len(reopened.Reminders()) != 1 {
		t.Error("reminder lost across restore")
	}
	if got := string(reopened.Settings()[schema.PrefTheme]); got != "dark" {
		t.Errorf("theme = %q across restore", got)
	}
}

func TestRestoreToleratesMalformedPayload(t *testing.T) {
	backend := storage.NewMemory()
	if err := backend.Put(string(schema.ColPatients), []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	s := New(backend, log.New(io.Discard, "", 0))
	if err := s.Restore(false); err != nil {
		t.Fatalf("restore should not fail on malformed payload: %v", err)
	}
	if len(s.Patients()) != 0 {
		t.Error("malformed payload produced patients")
	}
}

func TestRestoreSeedsEmptyRoster(t *testing.T) {
	backend := storage.NewMemory()
	s := New(backend, log.New(io.Discard, "", 0))
	if err := s.Restore(true); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(s.Patients()) == 0 {
		t.Fatal("seeded restore produced no patients")
	}

	// Seeding must not run again once data exists.
	id := s.Patients()[0].ID
	s2 := New(backend, log.New(io.Discard, "", 0))
	if err := s2.Restore(true); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, ok := s2.PatientByID(id); !ok {
		t.Error("existing roster replaced by demo seed")
	}
}

func TestSearchAndProgress(t *testing.T) {
	s, _ := newTestStore(t)
	a := s.AddPatient(schema.Patient{
		Section: "A",
		Bio:     map[string]schema.Text{"Patient Name": "Sami Nader", "Room": "B-03"},
	})
	s.AddPatient(schema.Patient{
		Section: "A",
		Bio:     map[string]schema.Text{"Patient Name": "Adel Hassan"},
	})
	s.AddPatient(schema.Patient{Section: "B"})

	done := true
	s.UpdatePatient(a, schema.PatientPatch{Done: &done})

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"sami", 1},
		{"B-03", 1},
		{"zzz", 0},
	}
	for _, tt := range tests {
		if got := len(s.Search("A", tt.query)); got != tt.want {
			t.Errorf("Search(A, %q) = %d patients, want %d", tt.query, got, tt.want)
		}
	}

	doneCount, total := s.Progress("A")
	if doneCount != 1 || total != 2 {
		t.Errorf("Progress(A) = %d/%d, want 1/2", doneCount, total)
	}
}

func TestReplaceCollections(t *testing.T) {
	s, backend := newTestStore(t)
	s.AddPatient(schema.Patient{})

	merged := schema.EmptyState()
	merged.Patients = []schema.Patient{
		schema.NewPatient(schema.Patient{Bio: map[string]schema.Text{"Patient Name": "Remote One"}}),
		schema.NewPatient(schema.Patient{Bio: map[string]schema.Text{"Patient Name": "Remote Two"}}),
	}

	var fired int
	s.Bus().On(EventPatientsChanged, func(any) { fired++ })
	s.ReplaceCollections(merged, schema.ColPatients)

	if got := len(s.Patients()); got != 2 {
		t.Errorf("replaced roster has %d patients, want 2", got)
	}
	if fired != 1 {
		t.Errorf("patients:changed fired %d times, want 1", fired)
	}

	// Replacement must hit the backend too.
	if _, ok, _ := backend.Get(string(schema.ColPatients)); !ok {
		t.Error("replacement not persisted")
	}
}

func TestDemoPatientsParse(t *testing.T) {
	demo, err := DemoPatients()
	if err != nil {
		t.Fatalf("DemoPatients: %v", err)
	}
	if len(demo) == 0 {
		t.Fatal("empty demo roster")
	}
	for _, p := range demo {
		if p.ID == "" || p.UpdatedAt == "" {
			t.Errorf("demo patient missing id or stamp: %+v", p)
		}
		if p.Name() == "" {
			t.Errorf("demo patient %s has no name", p.ID)
		}
	}
}

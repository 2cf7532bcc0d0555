package snapshot

import (
	"testing"

	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/storage"
)

func TestCaptureAndLoad(t *testing.T) {
	cache := NewCache(storage.NewMemory())

	st := schema.EmptyState()
	p := schema.NewPatient(schema.Patient{
		Bio: map[string]schema.Text{"Patient Name": "Adel Hassan"},
	})
	st.Patients = append(st.Patients, p)

	if err := cache.Capture(st); err != nil {
		t.Fatalf("capture: %v", err)
	}

	// Mutating the captured state must not leak into the baseline.
	st.Patients[0].Bio["Patient Name"] = "Changed"

	got := cache.Load()
	if len(got.Patients) != 1 {
		t.Fatalf("loaded %d patients, want 1", len(got.Patients))
	}
	if name := got.Patients[0].Name(); name != "Adel Hassan" {
		t.Errorf("baseline name = %q, wanted capture-time value", name)
	}
}

func TestLoadMissingReturnsEmpty(t *testing.T) {
	cache := NewCache(storage.NewMemory())
	got := cache.Load()
	if len(got.Patients) != 0 || len(got.Reminders) != 0 {
		t.Error("missing snapshot should load as empty state")
	}
	if got.Settings == nil || got.UI == nil {
		t.Error("empty state should still have preference maps")
	}
}

func TestLoadMalformedReturnsEmpty(t *testing.T) {
	backend := storage.NewMemory()
	if err := backend.Put(Key, []byte("{broken")); err != nil {
		t.Fatal(err)
	}
	cache := NewCache(backend)
	if got := cache.Load(); len(got.Patients) != 0 {
		t.Error("malformed snapshot should load as empty state")
	}
}

func TestClear(t *testing.T) {
	backend := storage.NewMemory()
	cache := NewCache(backend)

	st := schema.EmptyState()
	st.Patients = append(st.Patients, schema.NewPatient(schema.Patient{}))
	if err := cache.Capture(st); err != nil {
		t.Fatal(err)
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := cache.Load(); len(got.Patients) != 0 {
		t.Error("baseline survived clear")
	}
}

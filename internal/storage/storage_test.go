package storage

import (
	"path/filepath"
	"testing"
)

// backends returns every Store implementation against a temp location.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	jf, err := OpenJSONFile(t.TempDir(), "test_ns")
	if err != nil {
		t.Fatalf("OpenJSONFile: %v", err)
	}

	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"), "test_ns")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	return map[string]Store{
		"jsonfile": jf,
		"sqlite":   sq,
		"memory":   NewMemory(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			if _, ok, err := s.Get("patients"); err != nil || ok {
				t.Fatalf("Get on empty store = ok=%v err=%v, want absent", ok, err)
			}

			if err := s.Put("patients", []byte(`[{"id":"pt-1"}]`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			data, ok, err := s.Get("patients")
			if err != nil || !ok {
				t.Fatalf("Get after Put = ok=%v err=%v", ok, err)
			}
			if string(data) != `[{"id":"pt-1"}]` {
				t.Errorf("Get = %s", data)
			}

			// Overwrite
			if err := s.Put("patients", []byte(`[]`)); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			data, _, _ = s.Get("patients")
			if string(data) != `[]` {
				t.Errorf("after overwrite = %s", data)
			}

			// Delete, then delete again (no-op)
			if err := s.Delete("patients"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := s.Delete("patients"); err != nil {
				t.Fatalf("Delete absent: %v", err)
			}
			if _, ok, _ := s.Get("patients"); ok {
				t.Error("key present after Delete")
			}
		})
	}
}

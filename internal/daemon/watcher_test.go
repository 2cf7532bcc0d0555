package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/palliative-rounds/rounds/internal/schema"
)

func startWatcher(t *testing.T) (*FileWatcher, string) {
	t.Helper()
	dir := t.TempDir()
	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := fw.Start(dir); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = fw.Stop() })
	return fw, dir
}

func expectEvent(t *testing.T, fw *FileWatcher, want schema.Collection) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-fw.Events():
			if ev.Collection == want {
				return
			}
		case err := <-fw.Errors():
			t.Fatalf("watcher error: %v", err)
		case <-deadline:
			t.Fatalf("no event for %s", want)
		}
	}
}

func TestWatcherReportsCollectionWrites(t *testing.T) {
	fw, dir := startWatcher(t)

	path := filepath.Join(dir, "patients.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, fw, schema.ColPatients)
}

func TestWatcherSeesRenameIntoPlace(t *testing.T) {
	fw, dir := startWatcher(t)

	tmp := filepath.Join(dir, "reminders.json.tmp")
	if err := os.WriteFile(tmp, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, "reminders.json")); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, fw, schema.ColReminders)
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	fw, dir := startWatcher(t)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-fw.Events():
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	fw, _ := startWatcher(t)
	if err := fw.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := fw.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if fw.IsRunning() {
		t.Error("watcher reports running after stop")
	}
}

package sync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/snapshot"
	"github.com/palliative-rounds/rounds/internal/storage"
	"github.com/palliative-rounds/rounds/internal/store"
)

// stubRemote is an in-memory RemoteStore with injectable failures.
type stubRemote struct {
	mu      sync.Mutex
	records map[schema.Collection]map[string]json.RawMessage

	saveErr   error
	removeErr error

	saves   int
	removes []string
}

func newStubRemote() *stubRemote {
	return &stubRemote{records: map[schema.Collection]map[string]json.RawMessage{}}
}

func (r *stubRemote) List(_ context.Context, col schema.Collection) ([]json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []json.RawMessage
	for _, doc := range r.records[col] {
		out = append(out, doc)
	}
	return out, nil
}

func (r *stubRemote) Save(_ context.Context, col schema.Collection, record any) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return "", r.saveErr
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", err
	}
	if r.records[col] == nil {
		r.records[col] = map[string]json.RawMessage{}
	}
	r.records[col][probe.ID] = data
	r.saves++
	return probe.ID, nil
}

func (r *stubRemote) Remove(_ context.Context, col schema.Collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removeErr != nil {
		return r.removeErr
	}
	delete(r.records[col], id)
	r.removes = append(r.removes, id)
	return nil
}

func (r *stubRemote) count(col schema.Collection) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records[col])
}

func newTestSyncer(t *testing.T, remote RemoteStore, opts Options) (*Syncer, *store.LocalStore) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	local := store.New(storage.NewMemory(), logger)
	if err := local.Restore(false); err != nil {
		t.Fatal(err)
	}
	snap := snapshot.NewCache(storage.NewMemory())
	return New(remote, local, snap, logger, opts), local
}

func TestPushOnlySendsDirtyRecords(t *testing.T) {
	remote := newStubRemote()
	syncer, local := newTestSyncer(t, remote, Options{})

	local.AddPatient(schema.Patient{})
	local.AddPatient(schema.Patient{})

	stats, err := syncer.Push(context.Background(), false)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if stats.Patients != 2 {
		t.Errorf("first push sent %d patients, want 2", stats.Patients)
	}

	// Nothing changed since the snapshot; the second push must be empty.
	remote.saves = 0
	stats, err = syncer.Push(context.Background(), false)
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	if stats.Total() != 0 || remote.saves != 0 {
		t.Errorf("clean push still sent %d writes", stats.Total())
	}
}

func TestPushFailureKeepsRecordsDirty(t *testing.T) {
	remote := newStubRemote()
	syncer, local := newTestSyncer(t, remote, Options{})

	local.AddPatient(schema.Patient{})
	remote.saveErr = errors.New("remote down")

	if _, err := syncer.Push(context.Background(), false); err == nil {
		t.Fatal("push should fail when saves fail")
	}

	// After the remote recovers the same record must go out again.
	remote.saveErr = nil
	stats, err := syncer.Push(context.Background(), false)
	if err != nil {
		t.Fatalf("retry push: %v", err)
	}
	if stats.Patients != 1 {
		t.Errorf("retry sent %d patients, want 1", stats.Patients)
	}
}

func TestPushDeleteDetection(t *testing.T) {
	remote := newStubRemote()
	syncer, local := newTestSyncer(t, remote, Options{DeleteDetection: true})

	id := local.AddPatient(schema.Patient{})
	if _, err := syncer.Push(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	local.RemovePatient(id)
	stats, err := syncer.Push(context.Background(), false)
	if err != nil {
		t.Fatalf("push after delete: %v", err)
	}
	if stats.Deletes != 1 || len(remote.removes) != 1 || remote.removes[0] != id {
		t.Errorf("delete not propagated: stats=%+v removes=%v", stats, remote.removes)
	}

	// Deleting again must be a no-op: baseline no longer has the record.
	stats, _ = syncer.Push(context.Background(), false)
	if stats.Deletes != 0 {
		t.Errorf("delete sent twice: %+v", stats)
	}
}

func TestPushDeleteFailureIsSwallowed(t *testing.T) {
	remote := newStubRemote()
	syncer, local := newTestSyncer(t, remote, Options{DeleteDetection: true})

	id := local.AddPatient(schema.Patient{})
	if _, err := syncer.Push(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	local.RemovePatient(id)
	remote.removeErr = errors.New("remote refuses")
	stats, err := syncer.Push(context.Background(), false)
	if err != nil {
		t.Fatalf("failed delete must not fail the push: %v", err)
	}
	if stats.Deletes != 0 {
		t.Errorf("failed delete counted as sent: %+v", stats)
	}
}

func TestPullMergesRemoteState(t *testing.T) {
	remote := newStubRemote()
	syncer, local := newTestSyncer(t, remote, Options{})

	// Local record plus a newer remote version of it and a remote-only one.
	id := local.AddPatient(schema.Patient{
		Bio: map[string]schema.Text{"Patient Name": "Local"},
	})
	newer := pat(id, "Remote Newer", "2099-01-01 00:00")
	only := pat("p_remote", "Remote Only", "2026-08-30 10:00")
	mustSave(t, remote, schema.ColPatients, newer)
	mustSave(t, remote, schema.ColPatients, only)

	seed, err := syncer.Pull(context.Background())
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if seed {
		t.Fatal("pull asked for a seed with a populated remote")
	}

	got := local.Patients()
	if len(got) != 2 {
		t.Fatalf("merged roster has %d patients, want 2", len(got))
	}
	if got[0].ID != id || got[0].Name() != "Remote Newer" {
		t.Errorf("local slot not replaced by newer remote: %s %q", got[0].ID, got[0].Name())
	}
	if got[1].ID != "p_remote" {
		t.Errorf("remote-only record not appended: %s", got[1].ID)
	}
}

func TestPullSignalsSeedForEmptyRemote(t *testing.T) {
	remote := newStubRemote()
	syncer, local := newTestSyncer(t, remote, Options{})
	local.AddPatient(schema.Patient{})

	// The remote has no patients but does hold a reminder and settings;
	// those must be adopted even though the pull asks for a seed.
	mustSave(t, remote, schema.ColReminders, schema.Reminder{
		ID:        "r_remote",
		Text:      "from remote",
		CreatedAt: "2026-08-30 10:00",
	})
	mustSave(t, remote, schema.ColSettings, prefsRecord{
		ID:     prefsRecordID,
		Values: schema.Prefs{schema.PrefTheme: "dark"},
	})

	seed, err := syncer.Pull(context.Background())
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if !seed {
		t.Fatal("empty remote with local data must request a seed")
	}
	if got := len(local.Patients()); got != 1 {
		t.Errorf("seed-needed pull dropped local patients: %d", got)
	}
	if got := len(local.Reminders()); got != 1 {
		t.Errorf("seed-needed pull skipped remote reminders: %d", got)
	}
	if got := local.Settings()[schema.PrefTheme]; got != "dark" {
		t.Errorf("seed-needed pull skipped remote settings: theme = %q", got)
	}
}

func TestPullAppliesMergeThroughHook(t *testing.T) {
	remote := newStubRemote()
	syncer, local := newTestSyncer(t, remote, Options{})
	mustSave(t, remote, schema.ColPatients, pat("p_remote", "Remote", "2026-08-30 10:00"))

	calls := 0
	syncer.SetApplyHook(func(apply func()) {
		calls++
		if len(local.Patients()) != 0 {
			t.Error("merge landed before the hook ran")
		}
		apply()
	})

	if _, err := syncer.Pull(context.Background()); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if calls != 1 {
		t.Errorf("apply hook ran %d times, want 1", calls)
	}
	if got := len(local.Patients()); got != 1 {
		t.Errorf("hooked pull left %d patients, want 1", got)
	}
}

func TestSyncSeedsEmptyRemote(t *testing.T) {
	remote := newStubRemote()
	syncer, local := newTestSyncer(t, remote, Options{})
	local.AddPatient(schema.Patient{})
	local.AddPatient(schema.Patient{})
	local.AddPatient(schema.Patient{})

	stats, err := syncer.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if stats.Patients != 3 {
		t.Errorf("seed pushed %d patients, want 3", stats.Patients)
	}
	if remote.count(schema.ColPatients) != 3 {
		t.Errorf("remote holds %d patients after seed", remote.count(schema.ColPatients))
	}
}

func TestPushSendsPrefsWhenDirty(t *testing.T) {
	remote := newStubRemote()
	syncer, local := newTestSyncer(t, remote, Options{})

	if _, err := syncer.Push(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	local.SetSetting(schema.PrefTheme, "dark")

	stats, err := syncer.Push(context.Background(), false)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if stats.Prefs != 1 {
		t.Errorf("dirty settings sent %d pref writes, want 1", stats.Prefs)
	}
	if remote.count(schema.ColSettings) != 1 {
		t.Error("settings document missing on remote")
	}
}

func mustSave(t *testing.T, remote RemoteStore, col schema.Collection, record any) {
	t.Helper()
	if _, err := remote.Save(context.Background(), col, record); err != nil {
		t.Fatalf("seed remote: %v", err)
	}
}

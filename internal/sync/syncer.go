package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/snapshot"
	"github.com/palliative-rounds/rounds/internal/store"
)

// DefaultCallTimeout bounds each individual remote call.
const DefaultCallTimeout = 20 * time.Second

// prefsRecordID keys the single document each preference collection holds
// on the remote.
const prefsRecordID = "prefs"

type prefsRecord struct {
	ID     string       `json:"id"`
	Values schema.Prefs `json:"values"`
}

// Options tune a Syncer. Zero values get sensible defaults.
type Options struct {
	// CallTimeout bounds each remote call. Defaults to DefaultCallTimeout.
	CallTimeout time.Duration

	// DeleteDetection pushes deletions of records that existed in the
	// last-push baseline but are gone locally. Best effort: a failed
	// delete is logged and skipped, never fatal.
	DeleteDetection bool
}

// Syncer pushes local changes to a remote and pulls remote state back in,
// merging under last-writer-wins. It holds no locks of its own; callers
// serialize Push and Pull (the daemon engine guarantees one in flight).
type Syncer struct {
	remote    RemoteStore
	local     *store.LocalStore
	snap      *snapshot.Cache
	logger    *log.Logger
	opts      Options
	applyHook func(apply func())
}

// New returns a Syncer wired to the given remote, local store, and snapshot
// cache.
func New(remote RemoteStore, local *store.LocalStore, snap *snapshot.Cache, logger *log.Logger, opts Options) *Syncer {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Syncer{remote: remote, local: local, snap: snap, logger: logger, opts: opts}
}

// SetApplyHook wraps the local-store write that lands merged pull results.
// The daemon engine uses it to tell the merge's own store events apart from
// real edits. The hook must invoke apply exactly once, synchronously.
func (s *Syncer) SetApplyHook(hook func(apply func())) {
	s.applyHook = hook
}

// PushStats reports what a push sent.
type PushStats struct {
	Patients  int
	Reminders int
	Deletes   int
	Prefs     int
}

// Total returns the number of remote writes the push performed.
func (st PushStats) Total() int {
	return st.Patients + st.Reminders + st.Deletes + st.Prefs
}

// Push sends everything that changed since the last successful push. With
// forceAll the baseline is ignored and every record goes out; that is how a
// fresh remote gets its initial copy.
//
// The baseline snapshot is rewritten only when every upsert succeeded, so a
// failed push leaves the dirty records dirty for the retry.
func (s *Syncer) Push(ctx context.Context, forceAll bool) (PushStats, error) {
	local := s.local.State()
	baseline := s.snap.Load()
	if forceAll {
		baseline = schema.EmptyState()
	}

	var stats PushStats

	pd := DiffPatients(local.Patients, baseline.Patients)
	for _, p := range pd.Upserts {
		if _, err := s.save(ctx, schema.ColPatients, p); err != nil {
			return stats, fmt.Errorf("push patient %s: %w", p.ID, err)
		}
		stats.Patients++
	}

	rd := DiffReminders(local.Reminders, baseline.Reminders)
	for _, r := range rd.Upserts {
		if _, err := s.save(ctx, schema.ColReminders, r); err != nil {
			return stats, fmt.Errorf("push reminder %s: %w", r.ID, err)
		}
		stats.Reminders++
	}

	if s.opts.DeleteDetection {
		stats.Deletes += s.removeAll(ctx, schema.ColPatients, pd.Deletes)
		stats.Deletes += s.removeAll(ctx, schema.ColReminders, rd.Deletes)
	}

	if PrefsDirty(local.Settings, baseline.Settings) {
		if _, err := s.save(ctx, schema.ColSettings, prefsRecord{ID: prefsRecordID, Values: local.Settings}); err != nil {
			return stats, fmt.Errorf("push settings: %w", err)
		}
		stats.Prefs++
	}
	if PrefsDirty(local.UI, baseline.UI) {
		if _, err := s.save(ctx, schema.ColUI, prefsRecord{ID: prefsRecordID, Values: local.UI}); err != nil {
			return stats, fmt.Errorf("push ui prefs: %w", err)
		}
		stats.Prefs++
	}

	if err := s.snap.Capture(local); err != nil {
		s.logger.Printf("[sync] snapshot capture failed: %v", err)
	}
	return stats, nil
}

// Pull fetches all four collections, merges them against local state, and
// writes the merged result into the local store.
//
// seedNeeded reports that the remote has no patients while the local roster
// is non-empty. The merge still runs, so reminders and preferences on an
// otherwise patient-empty remote are adopted; the caller should respond with
// Push(forceAll) so the empty remote gets the roster.
func (s *Syncer) Pull(ctx context.Context) (seedNeeded bool, err error) {
	var (
		remotePatients  []schema.Patient
		remoteReminders []schema.Reminder
		remoteSettings  schema.Prefs
		remoteUI        schema.Prefs
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := s.list(gctx, schema.ColPatients)
		if err != nil {
			return fmt.Errorf("pull patients: %w", err)
		}
		remotePatients = s.decodePatients(docs)
		return nil
	})
	g.Go(func() error {
		docs, err := s.list(gctx, schema.ColReminders)
		if err != nil {
			return fmt.Errorf("pull reminders: %w", err)
		}
		remoteReminders = s.decodeReminders(docs)
		return nil
	})
	g.Go(func() error {
		docs, err := s.list(gctx, schema.ColSettings)
		if err != nil {
			return fmt.Errorf("pull settings: %w", err)
		}
		remoteSettings = s.decodePrefs(docs)
		return nil
	})
	g.Go(func() error {
		docs, err := s.list(gctx, schema.ColUI)
		if err != nil {
			return fmt.Errorf("pull ui prefs: %w", err)
		}
		remoteUI = s.decodePrefs(docs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	local := s.local.State()
	seedNeeded = len(remotePatients) == 0 && len(local.Patients) > 0

	merged := schema.State{
		Patients:  MergePatients(local.Patients, remotePatients),
		Reminders: MergeReminders(local.Reminders, remoteReminders),
		Settings:  MergePrefs(local.Settings, remoteSettings),
		UI:        MergePrefs(local.UI, remoteUI),
	}
	apply := func() {
		s.local.ReplaceCollections(merged, schema.Collections...)
	}
	if s.applyHook != nil {
		s.applyHook(apply)
	} else {
		apply()
	}
	return seedNeeded, nil
}

// Sync runs a pull followed by a push, seeding the remote first when the
// pull asks for it. This is the one-shot used by the CLI's sync command.
func (s *Syncer) Sync(ctx context.Context) (PushStats, error) {
	seed, err := s.Pull(ctx)
	if err != nil {
		return PushStats{}, err
	}
	return s.Push(ctx, seed)
}

func (s *Syncer) save(ctx context.Context, col schema.Collection, record any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	return s.remote.Save(ctx, col, record)
}

func (s *Syncer) list(ctx context.Context, col schema.Collection) ([]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	return s.remote.List(ctx, col)
}

// removeAll pushes deletions one by one. Failures are logged and skipped
// so one bad delete does not block the rest of the batch.
func (s *Syncer) removeAll(ctx context.Context, col schema.Collection, ids []string) int {
	removed := 0
	for _, id := range ids {
		callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
		err := s.remote.Remove(callCtx, col, id)
		cancel()
		if err != nil {
			s.logger.Printf("[sync] delete %s/%s failed: %v", col, id, err)
			continue
		}
		removed++
	}
	return removed
}

func (s *Syncer) decodePatients(docs []json.RawMessage) []schema.Patient {
	out := make([]schema.Patient, 0, len(docs))
	for _, doc := range docs {
		var p schema.Patient
		if err := json.Unmarshal(doc, &p); err != nil {
			s.logger.Printf("[sync] skipping malformed remote patient: %v", err)
			continue
		}
		if p.ID == "" {
			continue
		}
		out = append(out, schema.NormalizePatient(p))
	}
	return out
}

func (s *Syncer) decodeReminders(docs []json.RawMessage) []schema.Reminder {
	out := make([]schema.Reminder, 0, len(docs))
	for _, doc := range docs {
		var r schema.Reminder
		if err := json.Unmarshal(doc, &r); err != nil {
			s.logger.Printf("[sync] skipping malformed remote reminder: %v", err)
			continue
		}
		if r.ID == "" {
			continue
		}
		out = append(out, schema.NormalizeReminder(r))
	}
	return out
}

func (s *Syncer) decodePrefs(docs []json.RawMessage) schema.Prefs {
	for _, doc := range docs {
		var rec prefsRecord
		if err := json.Unmarshal(doc, &rec); err != nil {
			s.logger.Printf("[sync] skipping malformed remote prefs: %v", err)
			continue
		}
		if rec.Values != nil {
			return rec.Values
		}
	}
	return schema.Prefs{}
}

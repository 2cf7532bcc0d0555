// Package daemon runs the background autosync loop: it watches the local
// store for changes, debounces them, and drives the syncer.
//
// The engine:
// 1. Subscribes to store change events and schedules a debounced push
// 2. Periodically pulls remote state and merges it in
// 3. Seeds an empty remote once from the local roster
// 4. Retries failed pushes on a fixed backoff
package daemon

import (
	"context"
	"log"
	"os"
	stdsync "sync"
	"time"

	"github.com/palliative-rounds/rounds/internal/store"
	"github.com/palliative-rounds/rounds/internal/sync"
)

// State describes what the engine is doing right now. The CLI status badge
// renders these directly.
type State int

const (
	// StateIdle means nothing is dirty and nothing is in flight.
	StateIdle State = iota
	// StateScheduled means local changes are waiting out the debounce.
	StateScheduled
	// StateSyncing means a push or pull is in flight.
	StateSyncing
	// StateError means the last attempt failed; a retry is scheduled.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateSyncing:
		return "syncing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Config holds engine tuning.
type Config struct {
	// Debounce is how long after the last local change a push waits.
	// Bursts of edits inside the window collapse into one push.
	Debounce time.Duration

	// PullInterval is how often remote state is fetched and merged.
	PullInterval time.Duration

	// Logger for engine activity.
	Logger *log.Logger

	// OnStateChange, when set, runs synchronously on every state
	// transition. Used by the status badge. The callback must not call
	// back into the engine.
	OnStateChange func(State)
}

// DefaultConfig returns the tuning the desktop build ships with.
func DefaultConfig() *Config {
	return &Config{
		Debounce:     1200 * time.Millisecond,
		PullInterval: 30 * time.Second,
		Logger:       log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Engine owns the autosync loop. One push or pull runs at a time; overlap
// is impossible by construction.
type Engine struct {
	syncer *sync.Syncer
	store  *store.LocalStore
	config *Config

	mu          stdsync.Mutex
	state       State
	dirty       bool
	lastChange  time.Time
	retryAt     time.Time
	applying    bool
	pullFailed  bool
	seededOnce  bool
	unsubscribe []func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// New creates an engine. Use Start to begin the loop.
func New(syncer *sync.Syncer, st *store.LocalStore, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	if config.PullInterval <= 0 {
		config.PullInterval = DefaultConfig().PullInterval
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		syncer: syncer,
		store:  st,
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}

	// Subscribe at construction so edits made before Start are not lost.
	for _, event := range []string{
		store.EventPatientsChanged,
		store.EventRemindersChanged,
		store.EventSettingsChanged,
		store.EventUIChanged,
	} {
		off := st.Bus().On(event, func(any) { e.Notify() })
		e.unsubscribe = append(e.unsubscribe, off)
	}

	// Pull merges write back into the store through this hook. Only events
	// raised inside it are the engine's own echo; edits that land elsewhere
	// during a pull, including its remote-fetch window, still mark dirty.
	syncer.SetApplyHook(func(apply func()) {
		e.mu.Lock()
		e.applying = true
		e.mu.Unlock()
		apply()
		e.mu.Lock()
		e.applying = false
		e.mu.Unlock()
	})
	return e
}

// Start launches the background loops. It blocks until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.config.Logger.Println("Starting autosync engine")

	// First pull happens immediately so a fresh device converges without
	// waiting a full interval.
	e.runPull()

	e.wg.Add(2)
	go e.pushLoop()
	go e.pullLoop()

	select {
	case <-ctx.Done():
		e.config.Logger.Println("Shutdown signal received")
		return e.Stop()
	case <-e.ctx.Done():
		return nil
	}
}

// Stop shuts the engine down and waits for in-flight work to finish.
func (e *Engine) Stop() error {
	e.config.Logger.Println("Stopping autosync engine")
	for _, off := range e.unsubscribe {
		off()
	}
	e.cancel()
	e.wg.Wait()
	e.config.Logger.Println("Autosync engine stopped")
	return nil
}

// Notify tells the engine local state changed. Safe from any goroutine.
// Changes the engine itself applied during a pull merge are ignored, so a
// pull never schedules a push of its own echo.
func (e *Engine) Notify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applying {
		return
	}
	e.dirty = true
	e.lastChange = time.Now()
	if e.state == StateIdle {
		e.setStateLocked(StateScheduled)
	}
}

// Status returns the current engine state.
func (e *Engine) Status() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SyncNow runs one immediate pull+push cycle, bypassing the debounce. Used
// by the CLI's manual sync trigger while the daemon is running.
func (e *Engine) SyncNow() error {
	e.runPull()
	return e.runPush(false)
}

// pushLoop drives debounced pushes. It ticks at a fraction of the debounce
// so an expired window is noticed promptly.
func (e *Engine) pushLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.Debounce / 4)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.maybePush()
		}
	}
}

// maybePush pushes when the debounce window has expired, or re-schedules
// after an error once the backoff has elapsed.
func (e *Engine) maybePush() {
	e.mu.Lock()
	now := time.Now()

	if e.state == StateError {
		if now.Before(e.retryAt) {
			e.mu.Unlock()
			return
		}
		if e.pullFailed {
			// The merge is what failed; retry the pull, which runs its
			// own diff push on success.
			e.mu.Unlock()
			e.runPull()
			return
		}
		e.setStateLocked(StateScheduled)
		e.dirty = true
		e.lastChange = now.Add(-e.config.Debounce)
	}

	if !e.dirty || now.Sub(e.lastChange) < e.config.Debounce {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	if err := e.runPush(false); err != nil {
		e.config.Logger.Printf("Push failed: %v", err)
	}
}

// runPush performs one push inside the single in-flight slot.
func (e *Engine) runPush(forceAll bool) error {
	e.mu.Lock()
	if e.state == StateSyncing {
		e.mu.Unlock()
		return nil
	}
	e.dirty = false
	e.setStateLocked(StateSyncing)
	e.mu.Unlock()

	stats, err := e.syncer.Push(e.ctx, forceAll)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		// Keep the change dirty so the retry sends it.
		e.dirty = true
		e.retryAt = time.Now().Add(2 * e.config.Debounce)
		e.setStateLocked(StateError)
		return err
	}
	if stats.Total() > 0 {
		e.config.Logger.Printf("Pushed %d patients, %d reminders, %d deletes, %d pref docs",
			stats.Patients, stats.Reminders, stats.Deletes, stats.Prefs)
	}
	switch {
	case e.dirty:
		// Edits landed while the push ran; wait out a fresh window.
		e.setStateLocked(StateScheduled)
	case e.pullFailed:
		// Remote state was never merged; stay on error until a pull lands.
		e.setStateLocked(StateError)
	default:
		e.setStateLocked(StateIdle)
	}
	return nil
}

// pullLoop periodically merges remote state in.
func (e *Engine) pullLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.PullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.runPull()
		}
	}
}

// runPull performs one pull inside the single in-flight slot, then runs a
// diff push so records that changed during the pull, or before the engine
// started, go out without waiting for another trigger. When the remote
// turns out to be empty and local has data, the push is a one-time forceAll
// seed instead.
func (e *Engine) runPull() {
	e.mu.Lock()
	if e.state == StateSyncing {
		e.mu.Unlock()
		return
	}
	e.setStateLocked(StateSyncing)
	e.mu.Unlock()

	seedNeeded, err := e.syncer.Pull(e.ctx)

	e.mu.Lock()
	if err != nil {
		e.pullFailed = true
		e.retryAt = time.Now().Add(2 * e.config.Debounce)
		e.setStateLocked(StateError)
		e.mu.Unlock()
		e.config.Logger.Printf("Pull failed: %v", err)
		return
	}
	e.pullFailed = false
	if e.dirty {
		e.setStateLocked(StateScheduled)
	} else {
		e.setStateLocked(StateIdle)
	}
	forceAll := seedNeeded && !e.seededOnce
	if forceAll {
		e.seededOnce = true
	}
	e.mu.Unlock()

	if forceAll {
		e.config.Logger.Println("Remote is empty, seeding from local roster")
	}
	if err := e.runPush(forceAll); err != nil {
		e.config.Logger.Printf("Post-pull push failed: %v", err)
	}
}

// setStateLocked transitions state and fires the callback. Caller holds mu.
func (e *Engine) setStateLocked(next State) {
	if e.state == next {
		return
	}
	e.state = next
	if e.config.OnStateChange != nil {
		e.config.OnStateChange(next)
	}
}

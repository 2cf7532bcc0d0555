package store

import "sync"

// Event names emitted by the store. Payload types are documented per event.
const (
	// EventPatientsChanged fires after any patient mutation. Payload:
	// []schema.Patient (copy).
	EventPatientsChanged = "patients:changed"

	// EventPatientUpdated fires after a single patient update. Payload:
	// schema.Patient (copy).
	EventPatientUpdated = "patient:updated"

	// EventRemindersChanged fires after any reminder mutation. Payload:
	// []schema.Reminder (copy).
	EventRemindersChanged = "reminders:changed"

	// EventSettingsChanged and EventUIChanged fire after preference
	// updates. Payload: schema.Prefs (copy).
	EventSettingsChanged = "settings:changed"
	EventUIChanged       = "ui:changed"

	// EventRestored fires once after Restore/Reload. Payload: nil.
	EventRestored = "restored"
)

// Handler receives an event payload. Handlers run synchronously on the
// goroutine that performed the mutation, after the mutation has been
// persisted and the store lock released.
type Handler func(payload any)

// Bus is a minimal synchronous publish/subscribe hub. Modules interested in
// store changes subscribe here instead of wrapping store methods.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// On registers a handler for event and returns an unsubscribe func.
func (b *Bus) On(event string, fn Handler) (off func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[event] == nil {
		b.subs[event] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[event][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[event], id)
	}
}

// Emit invokes every handler registered for event, in registration order.
func (b *Bus) Emit(event string, payload any) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.subs[event]))
	for id := range b.subs[event] {
		ids = append(ids, id)
	}
	// Stable order: registration order equals id order.
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.subs[event][id])
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(payload)
	}
}

package schema

import "strings"

// Reminder is a free-text nudge, optionally tied to a patient. Reminders
// carry no updatedAt, so sync conflict resolution for them falls back to
// createdAt and then structural comparison. DueAt is optional and does not
// participate in conflict resolution.
type Reminder struct {
	ID           string `json:"id"`
	Text         Text   `json:"text"`
	ForPatientID Text   `json:"forPatientId"`
	CreatedAt    Text   `json:"createdAt"`
	DueAt        Text   `json:"dueAt,omitempty"`
	Done         Flag   `json:"done"`
}

// NewReminder builds a reminder with a fresh id and creation stamp.
func NewReminder(text, forPatientID string) Reminder {
	return Reminder{
		ID:           NewID("rem"),
		Text:         Text(text),
		ForPatientID: Text(forPatientID),
		CreatedAt:    NowStamp(),
	}
}

// NormalizeReminder coerces a reminder of any origin into a complete shape.
// Total and idempotent, same contract as NormalizePatient.
func NormalizeReminder(r Reminder) Reminder {
	if strings.TrimSpace(string(r.CreatedAt)) == "" {
		r.CreatedAt = NowStamp()
	}
	return r
}

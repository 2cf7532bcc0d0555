// Package remote provides RemoteStore transports: an in-memory loopback,
// an HTTP client, and a websocket client.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	stdsync "sync"

	"github.com/palliative-rounds/rounds/internal/schema"
)

// Memory is an in-process remote. It backs tests and the loopback mode
// where a single machine wants the full sync pipeline without a network.
type Memory struct {
	mu      stdsync.Mutex
	records map[schema.Collection]map[string]json.RawMessage
	failure error
	saves   int
}

// NewMemory returns an empty in-memory remote.
func NewMemory() *Memory {
	return &Memory{records: make(map[schema.Collection]map[string]json.RawMessage)}
}

// Fail makes every subsequent call return err. Pass nil to recover.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// List implements RemoteStore.
func (m *Memory) List(ctx context.Context, col schema.Collection) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return nil, m.failure
	}
	out := make([]json.RawMessage, 0, len(m.records[col]))
	for _, doc := range m.records[col] {
		cp := make(json.RawMessage, len(doc))
		copy(cp, doc)
		out = append(out, cp)
	}
	return out, nil
}

// Save implements RemoteStore. The record must carry an "id" field.
func (m *Memory) Save(ctx context.Context, col schema.Collection, record any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return "", m.failure
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	id, err := recordID(data)
	if err != nil {
		return "", err
	}
	if m.records[col] == nil {
		m.records[col] = make(map[string]json.RawMessage)
	}
	m.records[col][id] = data
	m.saves++
	return id, nil
}

// Saves reports how many save calls have succeeded.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Remove implements RemoteStore. Removing an absent id is a no-op.
func (m *Memory) Remove(ctx context.Context, col schema.Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}
	delete(m.records[col], id)
	return nil
}

// Len reports how many records the collection holds.
func (m *Memory) Len(col schema.Collection) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[col])
}

func recordID(data []byte) (string, error) {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("decode record id: %w", err)
	}
	if probe.ID == "" {
		return "", fmt.Errorf("record has no id")
	}
	return probe.ID, nil
}

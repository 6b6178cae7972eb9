// Package store keeps the latest analysis per patient.
//
// A new analysis for a patient replaces the previous one; results are never
// merged. Two implementations exist: MemoryStore for single-process use and
// tests, PostgresStore for deployments with a database.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/JonMunkholm/trutrend/internal/core"
)

// ErrNotFound is returned when no analysis is stored for a patient.
var ErrNotFound = errors.New("analysis not found")

// ResultStore persists analyses keyed by patient.
type ResultStore interface {
	// Replace stores a as the patient's latest analysis.
	Replace(ctx context.Context, a *core.Analysis) error

	// Latest returns the patient's analysis or ErrNotFound.
	Latest(ctx context.Context, patientID string) (*core.Analysis, error)

	// Delete removes the patient's analysis. Deleting a missing one is not an error.
	Delete(ctx context.Context, patientID string) error
}

// encode and decode copy an analysis through its JSON form, so callers never
// share memory with the store.
func encode(a *core.Analysis) ([]byte, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return b, nil
}

func decode(b []byte) (*core.Analysis, error) {
	var a core.Analysis
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &a, nil
}

// MemoryStore is a ResultStore backed by a map.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string][]byte)}
}

func (m *MemoryStore) Replace(ctx context.Context, a *core.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := encode(a)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.results[a.PatientID] = b
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Latest(ctx context.Context, patientID string) (*core.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	b, ok := m.results[patientID]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return decode(b)
}

func (m *MemoryStore) Delete(ctx context.Context, patientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.results, patientID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of patients with a stored analysis.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results)
}

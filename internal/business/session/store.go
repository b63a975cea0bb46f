package session

import (
	"context"
	"sync"

	"github.com/jbaylocal/marketplace-api/pkg/model"
)

// StateStore persists the two client-state slots of a session: the active
// location and the saved listing identifiers.
type StateStore interface {
	LoadState(ctx context.Context, sessionID string) (model.SessionState, error)
	SaveLocation(ctx context.Context, sessionID string, loc model.Coordinate) error
	ClearLocation(ctx context.Context, sessionID string) error
	SaveSavedListings(ctx context.Context, sessionID string, ids []string) error
}

// MemoryStore keeps session state in process. It backs tests and local runs
// without Firestore or Redis.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]model.SessionState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]model.SessionState)}
}

func (m *MemoryStore) LoadState(ctx context.Context, sessionID string) (model.SessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.states[sessionID]
	st.SavedListings = append([]string(nil), st.SavedListings...)
	return st, nil
}

func (m *MemoryStore) SaveLocation(ctx context.Context, sessionID string, loc model.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[sessionID]
	st.Location = &loc
	m.states[sessionID] = st
	return nil
}

func (m *MemoryStore) ClearLocation(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[sessionID]
	st.Location = nil
	m.states[sessionID] = st
	return nil
}

func (m *MemoryStore) SaveSavedListings(ctx context.Context, sessionID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.states[sessionID]
	st.SavedListings = append([]string(nil), ids...)
	m.states[sessionID] = st
	return nil
}

package session

import (
	"context"
	"strings"
	"sync"
)

// SavedSet is the set of listing identifiers a session bookmarked, in the
// order they were saved. Every mutation is written through to the store
// while the lock is held, so the last write wins.
type SavedSet struct {
	sessionID string
	store     StateStore

	mu  sync.Mutex
	ids []string
}

func NewSavedSet(sessionID string, store StateStore) *SavedSet {
	return &SavedSet{sessionID: sessionID, store: store}
}

// Restore replaces the in-memory set with persisted identifiers, dropping
// blanks and duplicates.
func (s *SavedSet) Restore(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = s.ids[:0]
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
}

// Add saves id. It reports false when id was already present.
func (s *SavedSet) Add(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, &ValidationError{Field: "id", Message: "listing id is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) >= 0 {
		return false, nil
	}
	s.ids = append(s.ids, id)
	return true, s.persist(ctx)
}

// Remove unsaves id. It reports false when id was not present.
func (s *SavedSet) Remove(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.ids = append(s.ids[:i], s.ids[i+1:]...)
	return true, s.persist(ctx)
}

func (s *SavedSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(strings.TrimSpace(id)) >= 0
}

// Values returns a copy of the saved identifiers.
func (s *SavedSet) Values() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *SavedSet) indexOf(id string) int {
	for i, v := range s.ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (s *SavedSet) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	snapshot := make([]string, len(s.ids))
	copy(snapshot, s.ids)
	if err := s.store.SaveSavedListings(ctx, s.sessionID, snapshot); err != nil {
		return persistenceError("save saved listings", err)
	}
	return nil
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session bundles the per-visitor state: active location and saved listings.
type Session struct {
	ID       string
	Location *Provider
	Saved    *SavedSet

	lastSeen time.Time
}

// Registry keeps sessions with state in memory so that state survives a
// failed store write, and restores them from the store on first use.
// Sessions without state are handed out unregistered until Retain.
type Registry struct {
	store   StateStore
	locator Locator
	opts    ProviderOptions
	logFn   func(string)

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(store StateStore, locator Locator, opts ProviderOptions, logFn func(string)) *Registry {
	if logFn == nil {
		logFn = func(string) {}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		store:    store,
		locator:  locator,
		opts:     opts,
		logFn:    logFn,
		sessions: make(map[string]*Session),
	}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an identifier issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Open returns the session for id, restoring it from the store when it is not
// in memory. An empty or malformed id starts a new session. Only sessions
// restored with a location or saved listings are registered; the rest stay
// unregistered until Retain, so read-only traffic holds no memory. The
// boolean reports whether a new identifier was issued.
func (r *Registry) Open(ctx context.Context, id string) (*Session, bool) {
	created := false
	if !ValidID(id) {
		id = NewID()
		created = true
	}

	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = r.opts.Now()
		r.mu.Unlock()
		return s, created
	}
	r.mu.Unlock()

	s := r.newSession(id)
	if created || r.store == nil {
		return s, created
	}
	state, err := r.store.LoadState(ctx, id)
	if err != nil {
		r.logFn(fmt.Sprintf("session %s: load state: %v", id, err))
		return s, created
	}
	if state.Location == nil && len(state.SavedListings) == 0 {
		return s, created
	}
	s.Location.Restore(state)
	s.Saved.Restore(state.SavedListings)
	return r.Retain(s), created
}

// Retain registers s before its first mutation. When another request
// registered the same ID meanwhile, that session is returned instead.
func (r *Registry) Retain(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.opts.Now()
	if existing, ok := r.sessions[s.ID]; ok {
		existing.lastSeen = now
		return existing
	}
	s.lastSeen = now
	r.sessions[s.ID] = s
	return s
}

func (r *Registry) newSession(id string) *Session {
	return &Session{
		ID:       id,
		Location: NewProvider(id, r.store, r.locator, r.opts),
		Saved:    NewSavedSet(id, r.store),
		lastSeen: r.opts.Now(),
	}
}

// Get returns an in-memory session without touching the store.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of sessions held in memory.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Prune drops sessions idle for longer than maxIdle. Their persisted state
// stays in the store and is restored on the next Open.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := r.opts.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jbaylocal/marketplace-api/pkg/model"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	fieldLocation    = "location"
	fieldSaved       = "savedListings"
	fieldUpdatedAt   = "updatedAt"
)

// SessionStore keeps session state in a Redis hash per session, refreshed
// to ttl on every write.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) LoadState(ctx context.Context, sessionID string) (model.SessionState, error) {
	fields, err := s.client.HGetAll(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return model.SessionState{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	var state model.SessionState
	if raw, ok := fields[fieldLocation]; ok {
		var loc model.Coordinate
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			return model.SessionState{}, fmt.Errorf("decode session %s location: %w", sessionID, err)
		}
		state.Location = &loc
	}
	if raw, ok := fields[fieldSaved]; ok {
		if err := json.Unmarshal([]byte(raw), &state.SavedListings); err != nil {
			return model.SessionState{}, fmt.Errorf("decode session %s saved listings: %w", sessionID, err)
		}
	}
	if raw, ok := fields[fieldUpdatedAt]; ok {
		state.UpdatedAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return state, nil
}

func (s *SessionStore) SaveLocation(ctx context.Context, sessionID string, loc model.Coordinate) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	return s.write(ctx, sessionID, func(pipe redis.Pipeliner, key string) {
		pipe.HSet(ctx, key, fieldLocation, data)
	})
}

func (s *SessionStore) ClearLocation(ctx context.Context, sessionID string) error {
	return s.write(ctx, sessionID, func(pipe redis.Pipeliner, key string) {
		pipe.HDel(ctx, key, fieldLocation)
	})
}

func (s *SessionStore) SaveSavedListings(ctx context.Context, sessionID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode saved listings: %w", err)
	}
	return s.write(ctx, sessionID, func(pipe redis.Pipeliner, key string) {
		pipe.HSet(ctx, key, fieldSaved, data)
	})
}

func (s *SessionStore) write(ctx context.Context, sessionID string, fn func(pipe redis.Pipeliner, key string)) error {
	key := sessionKeyPrefix + sessionID
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fn(pipe, key)
		pipe.HSet(ctx, key, fieldUpdatedAt, time.Now().UTC().Format(time.RFC3339Nano))
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

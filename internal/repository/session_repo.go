package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jbaylocal/marketplace-api/pkg/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const sessionsCollection = "sessions"

// SessionRepository stores browsing session state, one document per session.
type SessionRepository struct {
	client *firestore.Client
}

func NewSessionRepository(client *firestore.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// LoadState returns the stored state, or an empty state for unknown sessions.
func (r *SessionRepository) LoadState(ctx context.Context, sessionID string) (model.SessionState, error) {
	snap, err := r.client.Collection(sessionsCollection).Doc(sessionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.SessionState{}, nil
		}
		return model.SessionState{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	var state model.SessionState
	if err := snap.DataTo(&state); err != nil {
		return model.SessionState{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return state, nil
}

func (r *SessionRepository) SaveLocation(ctx context.Context, sessionID string, loc model.Coordinate) error {
	return r.merge(ctx, sessionID, map[string]any{"location": loc})
}

func (r *SessionRepository) ClearLocation(ctx context.Context, sessionID string) error {
	return r.merge(ctx, sessionID, map[string]any{"location": firestore.Delete})
}

func (r *SessionRepository) SaveSavedListings(ctx context.Context, sessionID string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return r.merge(ctx, sessionID, map[string]any{"savedListings": ids})
}

func (r *SessionRepository) merge(ctx context.Context, sessionID string, fields map[string]any) error {
	fields["updatedAt"] = time.Now().UTC()
	ref := r.client.Collection(sessionsCollection).Doc(sessionID)
	if _, err := ref.Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/pkg/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatsRepository manages the system/catalogStats singleton document.
type StatsRepository struct {
	client *firestore.Client
}

func NewStatsRepository(client *firestore.Client) *StatsRepository {
	return &StatsRepository{client: client}
}

func (r *StatsRepository) SaveCatalogStats(ctx context.Context, stats model.CatalogStats) error {
	if stats.LastUpdated.IsZero() {
		stats.LastUpdated = time.Now().UTC()
	}
	ref := r.client.Collection("system").Doc("catalogStats")
	if _, err := ref.Set(ctx, stats); err != nil {
		return fmt.Errorf("save catalog stats: %w", err)
	}
	return nil
}

func (r *StatsRepository) GetCatalogStats(ctx context.Context) (model.CatalogStats, error) {
	ref := r.client.Collection("system").Doc("catalogStats")
	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.CatalogStats{}, catalog.ErrNoStats
		}
		return model.CatalogStats{}, fmt.Errorf("get catalog stats: %w", err)
	}
	var stats model.CatalogStats
	if err := snap.DataTo(&stats); err != nil {
		return model.CatalogStats{}, fmt.Errorf("decode catalog stats: %w", err)
	}
	return stats, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/joho/godotenv"
	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/internal/platform/cache"
	"github.com/jbaylocal/marketplace-api/internal/platform/config"
	firestoreclient "github.com/jbaylocal/marketplace-api/internal/platform/firestore"
	"github.com/jbaylocal/marketplace-api/internal/repository"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Preview changes without writing to Firestore")
	samples := flag.Int("samples", 5, "Number of sample patches to print")
	flag.Parse()

	ctx := context.Background()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, credsSource, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer client.Close()

	log.Printf("Connected to Firestore project %s using %s credentials", cfg.FirebaseProjectID, credsSource)

	mode := "LIVE"
	if *dryRun {
		mode = "DRY-RUN"
	}

	fmt.Printf("\n=== Listing Backfill [%s] ===\n", mode)
	fmt.Println("==========================================")

	repo := repository.NewListingRepository(client)
	updated, err := backfill(ctx, repo, *dryRun, *samples)
	if err != nil {
		log.Fatalf("Backfill failed: %v", err)
	}

	if updated > 0 && cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisDB)
		if err != nil {
			log.Printf("Skipping cache invalidation: %v", err)
		} else {
			defer redisClient.Close()
			if err := cache.NewListingCache(repo, redisClient, cfg.CacheTTL, nil).Invalidate(ctx); err != nil {
				log.Printf("Cache invalidation failed: %v", err)
			} else {
				fmt.Println("Listing cache invalidated")
			}
		}
	}

	fmt.Println("==========================================")
	fmt.Println("Backfill completed!")
}

// backfill reports how many documents it wrote.
func backfill(ctx context.Context, repo *repository.ListingRepository, dryRun bool, samples int) (int, error) {
	fmt.Println("\nScanning services collection...")

	docs, err := repo.FetchAll(ctx)
	if err != nil {
		return 0, err
	}
	fmt.Printf("Found %d listing documents\n", len(docs))
	if len(docs) == 0 {
		return 0, nil
	}

	patches := make(map[string]map[string]any)
	fieldCounts := make(map[string]int)
	for _, doc := range docs {
		patch := catalog.Backfill(doc.Data, doc.CreateTime)
		if len(patch) == 0 {
			continue
		}
		patches[doc.ID] = patch
		for field := range patch {
			fieldCounts[field]++
		}

		if len(patches) <= samples {
			fmt.Printf("\n--- Sample %d: %s ---\n", len(patches), doc.ID)
			for _, field := range sortedKeys(patch) {
				fmt.Printf("  %-12s %v -> %v\n", field, doc.Data[field], patch[field])
			}
		}
	}

	fmt.Printf("\n=== Analysis Summary ===\n")
	fmt.Printf("Total documents:    %d\n", len(docs))
	fmt.Printf("Need backfill:      %d\n", len(patches))
	for _, field := range sortedKeys(fieldCounts) {
		fmt.Printf("  %-12s %d\n", field, fieldCounts[field])
	}

	if len(patches) == 0 {
		fmt.Println("\nAll listings are complete!")
		return 0, nil
	}
	if dryRun {
		fmt.Printf("\n[DRY-RUN] Would update %d documents. Run without --dry-run to apply changes.\n", len(patches))
		return 0, nil
	}

	fmt.Printf("\nApplying backfill to %d documents...\n", len(patches))
	if err := repo.BatchPatch(ctx, patches); err != nil {
		return 0, err
	}
	fmt.Printf("\nUpdated %d documents\n", len(patches))
	return len(patches), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

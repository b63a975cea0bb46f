package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/internal/platform/config"
	firestoreclient "github.com/jbaylocal/marketplace-api/internal/platform/firestore"
	"github.com/jbaylocal/marketplace-api/internal/repository"
)

func main() {
	id := flag.String("id", "", "Listing document ID")
	flag.Parse()
	if *id == "" {
		log.Fatal("--id is required")
	}

	ctx := context.Background()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, _, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer client.Close()

	repo := repository.NewListingRepository(client)
	raw, err := repo.Get(ctx, *id)
	if errors.Is(err, catalog.ErrNotFound) {
		log.Fatalf("Listing %s does not exist", *id)
	}
	if err != nil {
		log.Fatalf("Failed to get listing: %v", err)
	}

	fmt.Printf("Document ID: %s\n\n", *id)
	printJSON("Stored document", raw)

	listing := catalog.Normalize(raw)
	printJSON("Normalized listing", listing)

	fmt.Printf("\n=== Field checks ===\n")
	for _, field := range []string{"isActive", "featured", "views", "_createdAt"} {
		if v, ok := raw[field]; ok {
			fmt.Printf("%-12s %v (type: %T)\n", field, v, v)
		} else {
			fmt.Printf("%-12s MISSING\n", field)
		}
	}
	if listing.Location == nil {
		fmt.Println("location     MISSING (listing hidden from map and distance filters)")
	}
	if patch := catalog.Backfill(raw, listing.CreatedAt); len(patch) > 0 {
		fmt.Printf("\nbackfill-listings would write: %v\n", patch)
	}
}

func printJSON(title string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal %s: %v", title, err)
	}
	fmt.Printf("%s:\n%s\n\n", title, data)
}

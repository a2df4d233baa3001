package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ashinth-ffyo/harmony-cup/internal/config"
	"github.com/ashinth-ffyo/harmony-cup/internal/logger"
	"github.com/ashinth-ffyo/harmony-cup/internal/models"
	"github.com/ashinth-ffyo/harmony-cup/internal/store"
)

// migrate copies the local snapshot file into the Firestore document used by
// STORE_BACKEND=firestore.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFile)

	if cfg.GCPProjectID == "" {
		log.Fatal().Msg("GCP_PROJECT_ID is required")
	}

	ctx := context.Background()

	// Open source (file store)
	src, err := store.NewFileStore(cfg.DataFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open file store")
	}
	snap, err := src.LoadSnapshot(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read snapshot")
	}

	// Open destination (firestore)
	dst, err := store.NewFirestoreStore(ctx, cfg.GCPProjectID, cfg.FirestoreDatabase, cfg.GoogleCredentialsFile, cfg.FirestoreCollection, cfg.FirestoreDocument)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open firestore store")
	}
	defer dst.Close()

	dbName := cfg.FirestoreDatabase
	if dbName == "" {
		dbName = "(default)"
	}
	fmt.Printf("Migrating %s -> Firestore (project: %s, database: %s, document: %s/%s)\n\n",
		cfg.DataFile, cfg.GCPProjectID, dbName, cfg.FirestoreCollection, cfg.FirestoreDocument)

	total := 0
	for _, c := range models.Categories {
		fmt.Printf("  %s: %d team(s)\n", c, len(snap[c]))
		total += len(snap[c])
	}

	if err := dst.SaveSnapshot(ctx, snap); err != nil {
		log.Fatal().Err(err).Msg("failed to write snapshot to firestore")
	}

	fmt.Printf("\nDone. Migrated %d team(s) across %d categories.\n", total, len(models.Categories))
}

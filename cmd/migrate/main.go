package main

// Apply client state migrations:
//   go run ./cmd/migrate

import (
	"context"
	"log"
	"os"

	"jobassist/internal/shared/config"
	"jobassist/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultOptions())
	sqlDB, err := db.Connect(ctx, cfg.SessionDBPath, opts)
	if err != nil {
		log.Printf("failed to open session database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	version, err := db.SchemaVersion(sqlDB)
	if err != nil {
		log.Printf("failed to read schema version: %v", err)
		os.Exit(1)
	}
	log.Printf("session database %s at schema version %d", cfg.SessionDBPath, version)
}

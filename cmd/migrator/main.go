package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"vidtube/internal/config"
	"vidtube/internal/storage/mongodb"
	"vidtube/internal/storage/postgres"
	"vidtube/internal/storage/sqlite"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (or use CONFIG_PATH env)")
	flag.Parse()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	cfg := config.MustLoadPath(configPath)

	switch cfg.Storage.Driver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Println("Connecting to MongoDB...")

		// indexes are ensured on connect
		storage, err := mongodb.New(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
		if err != nil {
			log.Fatalf("failed to connect to mongodb: %v", err)
		}
		defer storage.Close(ctx)

		log.Println("MongoDB connected, indexes created successfully")
	case config.DriverSQLite:
		log.Printf("Migrating sqlite database at %s...", cfg.Storage.SQLite.Path)

		if err := sqlite.Migrate(cfg.Storage.SQLite.Path); err != nil {
			log.Fatalf("failed to migrate sqlite: %v", err)
		}
	case config.DriverPostgres:
		log.Println("Migrating postgres database...")

		if err := postgres.Migrate(cfg.Storage.Postgres.DSN); err != nil {
			log.Fatalf("failed to migrate postgres: %v", err)
		}
	}

	fmt.Println("Database initialization completed successfully")
}

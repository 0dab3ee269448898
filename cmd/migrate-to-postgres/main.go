// migrate-to-postgres copies generation history from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/dungeons.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user cloudquest \
//	    -pg-password cloudquest \
//	    -pg-database cloudquest
//
// DATABASE_URL, when set, replaces the discrete -pg-* flags.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/lawnchairsociety/cloudquest/internal/config"
	"github.com/lawnchairsociety/cloudquest/internal/database"
)

func main() {
	sqlitePath := flag.String("sqlite", "data/dungeons.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "cloudquest", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "cloudquest", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	if _, err := os.Stat(*sqlitePath); err != nil {
		log.Fatalf("SQLite database not found: %v", err)
	}

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.Open(config.DatabaseConfig{Driver: "sqlite", SQLitePath: *sqlitePath})
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	pg := config.DefaultConfig().Database.Postgres
	pg.URL = os.Getenv("DATABASE_URL")
	pg.Host = *pgHost
	pg.Port = *pgPort
	pg.User = *pgUser
	pg.Password = *pgPassword
	pg.Database = *pgDatabase
	pg.SSLMode = *pgSSLMode

	if pg.URL != "" {
		log.Println("Opening PostgreSQL database from DATABASE_URL")
	} else {
		log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", pg.User, pg.Host, pg.Port, pg.Database)
	}
	dstCfg := config.DatabaseConfig{Driver: "postgres", Postgres: pg}
	openTarget := database.Open // also ensures the schema exists
	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
		openTarget = database.OpenWithoutMigrations
	}

	dst, err := openTarget(dstCfg)
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	log.Println("Migrating table: dungeon_generations")
	stats, err := database.CopyGenerations(context.Background(), src, dst, *dryRun)
	if err != nil {
		log.Fatalf("Failed to migrate dungeon_generations: %v", err)
	}

	log.Println("====================================")
	log.Printf("Migration complete! Copied %d rows, skipped %d already present", stats.Copied, stats.Skipped)
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}

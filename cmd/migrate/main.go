// ==============================================================================
// DATABASE MIGRATION - cmd/migrate/main.go
// ==============================================================================
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"paydash/pkg/logger"
)

const usage = "Usage: migrate [up|down|steps N|version|force VERSION]"

func main() {
	_ = godotenv.Load()
	log := logger.New("payment-migrate")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required", nil)
	}
	source := os.Getenv("MIGRATIONS_PATH")
	if source == "" {
		source = "file://migrations"
	}

	if len(os.Args) < 2 {
		log.Fatal(usage, nil)
	}
	command := os.Args[1]

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal("Failed to create migration driver", map[string]interface{}{"error": err.Error()})
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		log.Fatal("Failed to create migrate instance", map[string]interface{}{"error": err.Error(), "source": source})
	}

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("Migration failed", map[string]interface{}{"error": err.Error()})
		}
		log.Info("Migrations applied", nil)

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("Migration rollback failed", map[string]interface{}{"error": err.Error()})
		}
		log.Info("Migrations rolled back", nil)

	case "steps":
		n := intArg(log)
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal("Migration steps failed", map[string]interface{}{"error": err.Error(), "steps": n})
		}
		log.Info("Migration steps applied", map[string]interface{}{"steps": n})

	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatal("Failed to get version", map[string]interface{}{"error": err.Error()})
		}
		fmt.Printf("Current version: %d (dirty: %t)\n", version, dirty)

	case "force":
		version := intArg(log)
		if err := m.Force(version); err != nil {
			log.Fatal("Force migration failed", map[string]interface{}{"error": err.Error()})
		}
		log.Info("Forced migration version", map[string]interface{}{"version": version})

	default:
		log.Fatal(usage, map[string]interface{}{"command": command})
	}
}

func intArg(log logger.Logger) int {
	if len(os.Args) < 3 {
		log.Fatal(usage, nil)
	}
	n, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatal("Argument must be an integer", map[string]interface{}{"value": os.Args[2]})
	}
	return n
}

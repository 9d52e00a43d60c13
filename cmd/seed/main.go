package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"pkm/internal/config"
	"pkm/internal/domain/models"
	"pkm/internal/domain/repositories"
	"pkm/internal/repository/postgres"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed projects")
	file := flag.String("file", "cmd/seed/tree.example.yaml", "YAML project forest to create")
	userID := flag.String("user", "", "Owner of the seeded projects (defaults to DEV_USER_ID)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	logger, closeLog, err := config.NewLogger(cfg, "seed")
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	owner := *userID
	if owner == "" {
		owner = cfg.DevUserID
	}
	if owner == "" && !*schemaOnly {
		log.Fatalf("No owner: pass -user or set DEV_USER_ID")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Printf("🗑️  Dropping all tables (prefix: %s)...", cfg.TablePrefix)
		if err := postgres.DropSchema(ctx, pool, tables, logger); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.EnsureSchema(ctx, pool, tables, logger); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Failed to open seed file: %v", err)
	}
	defer f.Close()

	forest, err := parseSeedFile(f)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("🌱 Seeding %d projects for %s (environment: %s, prefix: %s)",
		forest.count(), owner, cfg.Environment, cfg.TablePrefix)

	// One unit of work: a failure anywhere leaves nothing behind
	factory := postgres.NewUnitOfWorkFactory(&postgres.RepositoryConfig{
		Pool:        pool,
		Tables:      tables,
		Logger:      logger,
		LockTimeout: cfg.LockTimeout,
	})
	err = repositories.Run(ctx, factory, func(ctx context.Context, uow repositories.UnitOfWork) error {
		return createForest(ctx, uow.Projects(), owner, forest.Projects, func(depth int, p *models.Project) {
			log.Printf("  %s✓ %s (%s)", strings.Repeat("  ", depth), p.Name, p.ID)
		})
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed, nothing was written: %v", err)
	}

	log.Println("🎉 Seeding complete!")
}

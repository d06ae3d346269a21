package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/eduhub/marketplace-api/config"
	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/utils/logger"
)

func main() {
	demo := flag.Bool("demo", false, "also create the demo teacher and courses")
	flag.Parse()

	// Load environment variables
	if err := config.LoadENV(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	env, err := config.Get()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// SQL tracing is noisy for a one-shot seed
	store, err := database.StartGORM(env, logger.NewNop())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Run seeds
	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("EduHub - Database Seeding")
	fmt.Println(separator)
	fmt.Println()

	if err := database.RunSeeds(store.GetDB(), *demo || env.SEED_DEMO_DATA); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("🎉 Seeding completed successfully!")
	fmt.Println(separator)
	fmt.Println()
	fmt.Println("Demo accounts are created on first login:")
	fmt.Println("  admin@example.com / admin123")
	fmt.Println("  teacher@example.com / teacher123")
	fmt.Println("  student@example.com / student123")
}

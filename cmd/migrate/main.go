package main

import (
	"fmt"
	"os"

	"github.com/eduhub/marketplace-api/config"
	"github.com/eduhub/marketplace-api/database"
	"github.com/eduhub/marketplace-api/utils/logger"
)

func main() {
	if err := config.LoadENV(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to load environment variables:", err)
		os.Exit(1)
	}
	env, err := config.Get()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(env.GO_ENV)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := database.StartGORM(env, log)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}
	if err := store.HealthCheck(); err != nil {
		log.Fatal("database health check failed", "error", err)
	}

	log.Info("all migrations completed", "driver", store.Driver())
}

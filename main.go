package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/reeler/reeler/internal"
	"github.com/reeler/reeler/pkg/logger"
)

var log = logger.Get("Main")

// main is the entry point to the program. Configuration is sourced
// from the environment (optionally seeded from a .env file), or from
// a TOML file when REELER_CONFIG points to one.
func main() {
	if err := godotenv.Load(); err == nil {
		log.Emit(logger.DEBUG, "Loaded environment from .env file\n")
	}

	config := internal.ReelerConfig{}
	if configPath := os.Getenv("REELER_CONFIG"); configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
	} else if err := config.LoadFromEnv(); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := internal.New(config).Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Reeler exited with error: %v\n", err)
		os.Exit(1)
	}

	log.Emit(logger.STOP, "Reeler shutdown complete\n")
}

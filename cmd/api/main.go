package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ndk123-web/backend-structure/internal/infra/app"
	"github.com/ndk123-web/backend-structure/internal/infra/config"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file read before the environment is bound")
	flag.Parse()

	if err := run(*envFile); err != nil {
		log.Printf("videotube identity: %v", err)
		os.Exit(1)
	}
}

// run blocks until SIGINT or SIGTERM drains the HTTP and gRPC servers.
func run(envFile string) error {
	// A missing dotenv file is normal outside local development.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	identity, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build %s: %w", cfg.App.Name, err)
	}
	return identity.Run(ctx)
}

package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/destinyrisingdb/artifactdb/internal/app"
	"github.com/destinyrisingdb/artifactdb/internal/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, errLoad := config.Load(*configPath)
	if errLoad != nil {
		log.Fatalf("load config: %v", errLoad)
	}
	config.SetupLogging(cfg.Logging)

	if *migrateOnly {
		if errMigrate := app.Migrate(cfg); errMigrate != nil {
			log.Fatalf("migrate: %v", errMigrate)
		}
		log.Info("migrations applied")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if errRun := app.RunServer(ctx, cfg); errRun != nil {
		log.Fatalf("server: %v", errRun)
	}
}

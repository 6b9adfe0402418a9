package main

import (
	"context"
	"os"
	"time"

	"crypto-donation-tracker/internal/domain/repository"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/database"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// Deletes every milestone seen flag from the configured store so a restarted
// campaign announces its milestones again.
func main() {
	log, err := logger.NewLogger("info", "development")
	if err != nil {
		panic(err)
	}
	log = log.WithComponent("reset-milestones")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var repo repository.MilestoneRepository
	switch cfg.Store.Driver {
	case config.StoreNeo4J:
		client := database.NewNeo4JClient(&cfg.Neo4J, log)
		if err := client.Connect(ctx); err != nil {
			log.Fatal("Failed to connect to Neo4j", zap.Error(err))
		}
		defer client.Close(ctx)
		repo = database.NewNeo4JMilestoneRepository(client, log)

	case config.StorePostgres:
		db, err := database.OpenPostgres(ctx, &cfg.Postgres, log)
		if err != nil {
			log.Fatal("Failed to connect to Postgres", zap.Error(err))
		}
		defer db.Close()
		repo = database.NewPostgresMilestoneRepository(db, log)

	default:
		log.Info("Memory store holds no persisted flags, nothing to reset")
		return
	}

	deleted, err := repo.Reset(ctx)
	if err != nil {
		log.Error("Failed to reset milestone flags", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Reset complete", zap.String("driver", cfg.Store.Driver), zap.Int64("deleted", deleted))
}

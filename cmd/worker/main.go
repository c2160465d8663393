package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"docquery/internal/activities"
	"docquery/internal/config"
	"docquery/internal/storage"
	"docquery/internal/workflows"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx, cfg.EmbedDim); err != nil {
		log.Fatal(err)
	}
	a, err := activities.New(cfg, db)
	if err != nil {
		log.Fatal(err)
	}
	activities.Register(w, a)

	log.Printf("docquery worker connected to %s queue=%s embed_providers=%q score_providers=%q", cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.EmbedProviders, cfg.ScoreProviders)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}

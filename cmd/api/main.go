package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"docquery/internal/api"
	"docquery/internal/config"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	h := api.NewServer(cfg)
	log.Printf("docquery api listening on %s embed_providers=%q score_providers=%q", cfg.APIAddr, cfg.EmbedProviders, cfg.ScoreProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}

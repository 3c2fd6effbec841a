package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ytdlp-panel/internal/config"
	"ytdlp-panel/internal/logstore"
	"ytdlp-panel/internal/proxy"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Note: failed to load .env: %v", err)
	}

	// Optional: Load config from file if exists
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Printf("Note: config.json invalid, using defaults: %v", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv(os.Getenv)

	console, color := logstore.Console()
	logs := logstore.New(cfg.MaxLogs, console, color)

	server, err := proxy.NewServer(cfg, logs)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatal(err)
	}
}
